package snapshot

import (
	"time"

	"github.com/kestrelhq/kestrel/internal/tool"
)

// Meta describes a snapshot without its message payload.
type Meta struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	Reason          string    `json:"reason"`
	Label           string    `json:"label,omitempty"`
	MessageLogName  string    `json:"messageLogName"`
	ForkNumber      int       `json:"forkNumber,omitempty"`
	SidechainNumber int       `json:"sidechainNumber,omitempty"`
	SourcePath      string    `json:"sourcePath"`
	MessageCount    int       `json:"messageCount"`
}

// Message is one entry of a conversation log. ToolName is recorded for
// tool-use entries; the Tool field is reconnected from the live registry
// when a snapshot is loaded and is never serialized.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content,omitempty"`
	ToolName  string         `json:"toolName,omitempty"`
	ToolInput map[string]any `json:"toolInput,omitempty"`

	Tool tool.Tool `json:"-"`
}

// Snapshot is a fully loaded snapshot: metadata plus the message array.
type Snapshot struct {
	Meta
	Messages []Message `json:"messages"`
}

// CreateRequest names the live log to snapshot and why.
type CreateRequest struct {
	MessageLogName  string
	ForkNumber      int
	SidechainNumber int
	Reason          string
	Label           string
}
