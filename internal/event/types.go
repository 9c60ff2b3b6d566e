package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "slot.acquired", "task.created")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Permission Events
// -----------------------------------------------------------------------------

// PermissionRequestedEvent is emitted when a tool call requires approval.
type PermissionRequestedEvent struct {
	baseEvent
	Tool     string // Tool name
	Scope    string // Derived trust scope (prefix or exact input)
	HighRisk bool   // Whether session caching is structurally unavailable
}

// NewPermissionRequestedEvent creates a PermissionRequestedEvent.
func NewPermissionRequestedEvent(tool, scope string, highRisk bool) PermissionRequestedEvent {
	return PermissionRequestedEvent{
		baseEvent: newBaseEvent("permission.requested"),
		Tool:      tool,
		Scope:     scope,
		HighRisk:  highRisk,
	}
}

// PermissionDecidedEvent is emitted once an authorization request resolves.
type PermissionDecidedEvent struct {
	baseEvent
	Tool     string // Tool name
	Scope    string // Derived trust scope
	Decision string // "allowed_temporary", "allowed_session", or "rejected"
	Cached   bool   // True when the decision came from a session grant
}

// NewPermissionDecidedEvent creates a PermissionDecidedEvent.
func NewPermissionDecidedEvent(tool, scope, decision string, cached bool) PermissionDecidedEvent {
	return PermissionDecidedEvent{
		baseEvent: newBaseEvent("permission.decided"),
		Tool:      tool,
		Scope:     scope,
		Decision:  decision,
		Cached:    cached,
	}
}

// -----------------------------------------------------------------------------
// Semaphore Events
// -----------------------------------------------------------------------------

// SlotAcquiredEvent is emitted when a process obtains an API slot.
type SlotAcquiredEvent struct {
	baseEvent
	Slot int // Slot index
	PID  int // Owning process ID
}

// NewSlotAcquiredEvent creates a SlotAcquiredEvent.
func NewSlotAcquiredEvent(slot, pid int) SlotAcquiredEvent {
	return SlotAcquiredEvent{
		baseEvent: newBaseEvent("slot.acquired"),
		Slot:      slot,
		PID:       pid,
	}
}

// SlotReleasedEvent is emitted when a slot token is removed by its owner.
type SlotReleasedEvent struct {
	baseEvent
	Slot int
	PID  int
}

// NewSlotReleasedEvent creates a SlotReleasedEvent.
func NewSlotReleasedEvent(slot, pid int) SlotReleasedEvent {
	return SlotReleasedEvent{
		baseEvent: newBaseEvent("slot.released"),
		Slot:      slot,
		PID:       pid,
	}
}

// SlotReclaimedEvent is emitted when a stale slot token is forcibly removed,
// its previous holder presumed crashed.
type SlotReclaimedEvent struct {
	baseEvent
	Slot int           // Slot index reclaimed
	Age  time.Duration // Age of the stale token
}

// NewSlotReclaimedEvent creates a SlotReclaimedEvent.
func NewSlotReclaimedEvent(slot int, age time.Duration) SlotReclaimedEvent {
	return SlotReclaimedEvent{
		baseEvent: newBaseEvent("slot.reclaimed"),
		Slot:      slot,
		Age:       age,
	}
}

// -----------------------------------------------------------------------------
// Team and Task Events
// -----------------------------------------------------------------------------

// TeamCreatedEvent is emitted when a team is created (not on fetch).
type TeamCreatedEvent struct {
	baseEvent
	Team   string
	Agents []string
}

// NewTeamCreatedEvent creates a TeamCreatedEvent.
func NewTeamCreatedEvent(team string, agents []string) TeamCreatedEvent {
	return TeamCreatedEvent{
		baseEvent: newBaseEvent("team.created"),
		Team:      team,
		Agents:    agents,
	}
}

// TeamDeletedEvent is emitted when a team and its state are removed.
type TeamDeletedEvent struct {
	baseEvent
	Team   string
	Forced bool
}

// NewTeamDeletedEvent creates a TeamDeletedEvent.
func NewTeamDeletedEvent(team string, forced bool) TeamDeletedEvent {
	return TeamDeletedEvent{
		baseEvent: newBaseEvent("team.deleted"),
		Team:      team,
		Forced:    forced,
	}
}

// TaskCreatedEvent is emitted when a task is added to a team's board.
type TaskCreatedEvent struct {
	baseEvent
	Team    string
	TaskID  int
	Subject string
}

// NewTaskCreatedEvent creates a TaskCreatedEvent.
func NewTaskCreatedEvent(team string, taskID int, subject string) TaskCreatedEvent {
	return TaskCreatedEvent{
		baseEvent: newBaseEvent("task.created"),
		Team:      team,
		TaskID:    taskID,
		Subject:   subject,
	}
}

// TaskUpdatedEvent is emitted when a task's status or owner changes.
type TaskUpdatedEvent struct {
	baseEvent
	Team   string
	TaskID int
	Status string
	Owner  string
}

// NewTaskUpdatedEvent creates a TaskUpdatedEvent.
func NewTaskUpdatedEvent(team string, taskID int, status, owner string) TaskUpdatedEvent {
	return TaskUpdatedEvent{
		baseEvent: newBaseEvent("task.updated"),
		Team:      team,
		TaskID:    taskID,
		Status:    status,
		Owner:     owner,
	}
}

// -----------------------------------------------------------------------------
// Mailbox Events
// -----------------------------------------------------------------------------

// MailboxMessageEvent is emitted for every message appended to a mailbox.
type MailboxMessageEvent struct {
	baseEvent
	Team      string
	From      string
	To        string
	MessageID string
	Kind      string
}

// NewMailboxMessageEvent creates a MailboxMessageEvent.
func NewMailboxMessageEvent(team, from, to, messageID, kind string) MailboxMessageEvent {
	return MailboxMessageEvent{
		baseEvent: newBaseEvent("mailbox.message"),
		Team:      team,
		From:      from,
		To:        to,
		MessageID: messageID,
		Kind:      kind,
	}
}

// -----------------------------------------------------------------------------
// Snapshot Events
// -----------------------------------------------------------------------------

// SnapshotCreatedEvent is emitted when a conversation snapshot is written.
type SnapshotCreatedEvent struct {
	baseEvent
	SnapshotID   string
	Reason       string
	MessageCount int
}

// NewSnapshotCreatedEvent creates a SnapshotCreatedEvent.
func NewSnapshotCreatedEvent(snapshotID, reason string, messageCount int) SnapshotCreatedEvent {
	return SnapshotCreatedEvent{
		baseEvent:    newBaseEvent("snapshot.created"),
		SnapshotID:   snapshotID,
		Reason:       reason,
		MessageCount: messageCount,
	}
}

// -----------------------------------------------------------------------------
// Hook Events
// -----------------------------------------------------------------------------

// HookErrorEvent is emitted when a registered hook fails. Hook failures are
// observed but never propagate to the wrapped tool call.
type HookErrorEvent struct {
	baseEvent
	Hook  string // Registered hook name
	Point string // Extension point: "before_prompt", "before_tool", "after_tool"
	Err   string // Error message
}

// NewHookErrorEvent creates a HookErrorEvent.
func NewHookErrorEvent(hook, point, errMsg string) HookErrorEvent {
	return HookErrorEvent{
		baseEvent: newBaseEvent("hook.error"),
		Hook:      hook,
		Point:     point,
		Err:       errMsg,
	}
}

// ToolStartedEvent is emitted by the telemetry hook when a wrapped tool
// call begins.
type ToolStartedEvent struct {
	baseEvent
	Tool string
}

// NewToolStartedEvent creates a ToolStartedEvent.
func NewToolStartedEvent(tool string) ToolStartedEvent {
	return ToolStartedEvent{
		baseEvent: newBaseEvent("tool.started"),
		Tool:      tool,
	}
}

// ToolFinishedEvent is emitted by the telemetry hook when a wrapped tool
// call reaches its terminal event.
type ToolFinishedEvent struct {
	baseEvent
	Tool     string
	Success  bool
	Err      string
	Progress int // Number of progress notifications forwarded
}

// NewToolFinishedEvent creates a ToolFinishedEvent.
func NewToolFinishedEvent(tool string, success bool, errMsg string, progress int) ToolFinishedEvent {
	return ToolFinishedEvent{
		baseEvent: newBaseEvent("tool.finished"),
		Tool:      tool,
		Success:   success,
		Err:       errMsg,
		Progress:  progress,
	}
}
