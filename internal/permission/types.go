package permission

import (
	"context"
	"time"
)

// Decision is the terminal state of one authorization request.
type Decision string

const (
	// DecisionAllowedTemporary permits this single call only.
	DecisionAllowedTemporary Decision = "allowed_temporary"

	// DecisionAllowedSession permits this call and caches a grant for the
	// rest of the process session.
	DecisionAllowedSession Decision = "allowed_session"

	// DecisionRejected denies the call. Rejection never destroys grants
	// already issued for other tools.
	DecisionRejected Decision = "rejected"
)

// GrantScope selects how long an approval lasts.
type GrantScope string

const (
	// ScopeTemporary approves exactly one call.
	ScopeTemporary GrantScope = "temporary"

	// ScopeSession approves all calls matching the derived trust scope for
	// the rest of the process session.
	ScopeSession GrantScope = "session"
)

// Confirmation is one pending authorization request handed to the prompter.
// The prompter resolves it by calling exactly one of Allow or Reject.
type Confirmation struct {
	// Tool is the tool identifier.
	Tool string

	// Input is the normalized tool input.
	Input map[string]any

	// Command is the shell-like command extracted from Input, if any.
	Command string

	// Risk is the derived risk score in [0, 100].
	Risk int

	// Prefix is the derived command-prefix trust scope, or "" when scope
	// derivation failed or does not apply. When empty, a session grant is
	// scoped to the exact input instead.
	Prefix string

	// SessionAvailable reports whether the "allow for the session" option
	// is offered. High-risk commands force a two-option decision; calling
	// Allow(ScopeSession) on such a confirmation degrades to a temporary
	// approval and caches nothing.
	SessionAvailable bool

	resolved chan resolution
}

type resolution struct {
	allowed bool
	scope   GrantScope
}

// Allow resolves the confirmation positively with the given scope.
// Calling Allow more than once, or after Reject, is a no-op.
func (c *Confirmation) Allow(scope GrantScope) {
	select {
	case c.resolved <- resolution{allowed: true, scope: scope}:
	default:
	}
}

// Reject resolves the confirmation negatively.
func (c *Confirmation) Reject() {
	select {
	case c.resolved <- resolution{allowed: false}:
	default:
	}
}

// Prompter presents a pending confirmation to the user. Implementations
// must resolve the confirmation via Allow or Reject; the surrounding wait
// is cancelled through ctx. The terminal UI supplies the real prompter;
// tests and headless runs supply function values.
type Prompter func(ctx context.Context, c *Confirmation)

// Grant is a cached session approval.
type Grant struct {
	Tool      string    // Tool identifier
	Scope     string    // Derived trust scope key (prefix or exact input)
	GrantedAt time.Time // When the user approved
}
