package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
)

// RegisterTelemetry attaches the built-in telemetry hooks: tool lifecycle
// events published on the runtime bus for anything observing it.
func RegisterTelemetry(b *Bus) {
	b.RegisterBeforeTool("telemetry", func(ctx context.Context, call ToolCall) error {
		b.Emit(event.NewToolStartedEvent(call.Tool))
		return nil
	})
	b.RegisterAfterTool("telemetry", func(ctx context.Context, call ToolCall, outcome Outcome) error {
		errMsg := ""
		if outcome.Err != nil {
			errMsg = outcome.Err.Error()
		}
		b.Emit(event.NewToolFinishedEvent(call.Tool, outcome.Success, errMsg, outcome.Progress))
		return nil
	})
}

// auditRecord is one line of the audit log.
type auditRecord struct {
	Time     time.Time `json:"time"`
	Tool     string    `json:"tool"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	Progress int       `json:"progress"`
	Duration string    `json:"duration"`
}

// RegisterAudit attaches the built-in audit hook, appending one JSONL
// record per finished tool call to {dir}/audit.jsonl.
func RegisterAudit(b *Bus, dir string) {
	var mu sync.Mutex

	b.RegisterAfterTool("audit", func(ctx context.Context, call ToolCall, outcome Outcome) error {
		rec := auditRecord{
			Time:     time.Now(),
			Tool:     call.Tool,
			Success:  outcome.Success,
			Progress: outcome.Progress,
			Duration: outcome.Duration.String(),
		}
		if outcome.Err != nil {
			rec.Error = outcome.Err.Error()
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		data = append(data, '\n')

		mu.Lock()
		defer mu.Unlock()

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create audit directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "audit.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("append audit record: %w", err)
		}
		return f.Close()
	})
}
