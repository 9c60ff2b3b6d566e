package taskboard

import "time"

// Status represents the current state of a shared task.
type Status string

const (
	// StatusOpen indicates the task is waiting for an owner.
	StatusOpen Status = "open"

	// StatusInProgress indicates an agent is actively working the task.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task finished.
	StatusCompleted Status = "completed"

	// StatusBlocked indicates the task is waiting on its blockedBy edges.
	StatusBlocked Status = "blocked"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	default:
		return false
	}
}

// IsResolved returns true if the task no longer counts against team
// deletion. Only completed tasks are resolved.
func (s Status) IsResolved() bool {
	return s == StatusCompleted
}

// Task is one unit of work on a team's board.
type Task struct {
	// ID is unique and monotonically assigned per team, never reused.
	ID int `json:"id"`

	// TeamName is the normalized owning team.
	TeamName string `json:"team_name"`

	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status"`

	// BlockedBy lists task IDs this task waits on. Advisory metadata:
	// consumed by calling agents, not enforced by the board.
	BlockedBy []int `json:"blocked_by,omitempty"`

	// Owner is the agent currently responsible, if any.
	Owner string `json:"owner,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter selects a subset of a team's tasks. Zero fields match everything.
type Filter struct {
	Status Status
	Owner  string
}

func (f Filter) matches(t Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Owner != "" && t.Owner != f.Owner {
		return false
	}
	return true
}

// Update carries the mutable fields of a task. Nil pointers leave the
// corresponding field unchanged.
type Update struct {
	Status      *Status
	Owner       *string
	Description *string
	BlockedBy   *[]int
}

// boardState is the persisted per-team board file.
type boardState struct {
	NextID int    `json:"next_id"`
	Tasks  []Task `json:"tasks"`
}
