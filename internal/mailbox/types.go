package mailbox

import "time"

// Kind identifies the kind of inter-agent message.
type Kind string

const (
	// KindMessage is a direct agent-to-agent message.
	KindMessage Kind = "message"

	// KindBroadcast marks a message fanned out to every teammate.
	KindBroadcast Kind = "broadcast"

	// KindShutdownRequest asks an agent to wind down.
	KindShutdownRequest Kind = "shutdown_request"

	// KindShutdownResponse answers a shutdown request.
	KindShutdownResponse Kind = "shutdown_response"

	// KindPlanApprovalResponse answers a plan approval request.
	KindPlanApprovalResponse Kind = "plan_approval_response"
)

// validKinds for Send validation.
var validKinds = map[Kind]bool{
	KindMessage:              true,
	KindBroadcast:            true,
	KindShutdownRequest:      true,
	KindShutdownResponse:     true,
	KindPlanApprovalResponse: true,
}

// ValidateKind returns true if the given kind is a known message kind.
func ValidateKind(k Kind) bool {
	return validKinds[k]
}

// Message represents a single inter-agent communication. Immutable once
// appended.
type Message struct {
	ID       string `json:"id"`
	TeamName string `json:"team_name"`
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     Kind   `json:"type"`
	Content  string `json:"content"`

	// Summary is an optional short form for displays.
	Summary string `json:"summary,omitempty"`

	// RequestID correlates handshake responses (shutdown, plan approval)
	// with their request. Correlation is the caller's responsibility; the
	// mailbox only carries the field.
	RequestID string `json:"request_id,omitempty"`

	// Approve carries the verdict on handshake responses.
	Approve *bool `json:"approve,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Fields carries the optional message fields for Send.
type Fields struct {
	Summary   string
	RequestID string
	Approve   *bool
}
