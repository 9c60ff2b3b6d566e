package hook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/logging"
	"github.com/kestrelhq/kestrel/internal/tool"
)

// Point identifies an extension point.
type Point string

const (
	// PointBeforePrompt runs before each prompt is assembled for the model.
	PointBeforePrompt Point = "before_prompt"

	// PointBeforeTool runs before each wrapped tool call starts.
	PointBeforeTool Point = "before_tool"

	// PointAfterTool runs after each wrapped tool call reaches its
	// terminal event.
	PointAfterTool Point = "after_tool"
)

// PromptState is the prompt/context tuple passed through before-prompt
// hooks. Hooks mutate it in place; later hooks see earlier hooks' rewrites.
type PromptState struct {
	Prompt  string
	Context map[string]string
}

// ToolCall describes one wrapped tool invocation.
type ToolCall struct {
	Tool  string
	Input map[string]any
}

// Outcome summarizes a finished tool call for after-tool hooks.
type Outcome struct {
	Success  bool
	Data     any
	Err      error
	Progress int // Number of progress notifications forwarded
	Duration time.Duration
}

// BeforePromptHook transforms the prompt state. An error is logged and the
// state left as the hook's predecessor produced it.
type BeforePromptHook func(ctx context.Context, state *PromptState) error

// BeforeToolHook observes a tool call about to start.
type BeforeToolHook func(ctx context.Context, call ToolCall) error

// AfterToolHook observes a finished tool call.
type AfterToolHook func(ctx context.Context, call ToolCall, outcome Outcome) error

type namedBeforePrompt struct {
	name string
	fn   BeforePromptHook
}

type namedBeforeTool struct {
	name string
	fn   BeforeToolHook
}

type namedAfterTool struct {
	name string
	fn   AfterToolHook
}

// Bus is the process-wide hook registry, populated once at startup and
// consulted on every tool and prompt event.
type Bus struct {
	mu           sync.RWMutex
	beforePrompt []namedBeforePrompt
	beforeTool   []namedBeforeTool
	afterTool    []namedAfterTool
	events       *event.Bus
	logger       *logging.Logger
}

// NewBus creates a hook Bus. events and logger are optional.
func NewBus(events *event.Bus, logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{
		events: events,
		logger: logger.WithComponent("hook"),
	}
}

// RegisterBeforePrompt adds a named before-prompt hook. Re-registering an
// existing name replaces the callback but keeps its position in the order.
func (b *Bus) RegisterBeforePrompt(name string, fn BeforePromptHook) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, h := range b.beforePrompt {
		if h.name == name {
			b.beforePrompt[i].fn = fn
			return
		}
	}
	b.beforePrompt = append(b.beforePrompt, namedBeforePrompt{name: name, fn: fn})
}

// RegisterBeforeTool adds a named before-tool hook, idempotently.
func (b *Bus) RegisterBeforeTool(name string, fn BeforeToolHook) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, h := range b.beforeTool {
		if h.name == name {
			b.beforeTool[i].fn = fn
			return
		}
	}
	b.beforeTool = append(b.beforeTool, namedBeforeTool{name: name, fn: fn})
}

// RegisterAfterTool adds a named after-tool hook, idempotently.
func (b *Bus) RegisterAfterTool(name string, fn AfterToolHook) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, h := range b.afterTool {
		if h.name == name {
			b.afterTool[i].fn = fn
			return
		}
	}
	b.afterTool = append(b.afterTool, namedAfterTool{name: name, fn: fn})
}

// Registered returns the hook names attached to a point, in run order.
func (b *Bus) Registered(point Point) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var names []string
	switch point {
	case PointBeforePrompt:
		for _, h := range b.beforePrompt {
			names = append(names, h.name)
		}
	case PointBeforeTool:
		for _, h := range b.beforeTool {
			names = append(names, h.name)
		}
	case PointAfterTool:
		for _, h := range b.afterTool {
			names = append(names, h.name)
		}
	}
	return names
}

// Emit publishes a cross-cutting telemetry event on the underlying bus.
func (b *Bus) Emit(ev event.Event) {
	if b.events != nil {
		b.events.Publish(ev)
	}
}

// RunBeforePrompt passes state through every before-prompt hook in
// registration order. A failing hook is logged and skipped; the state is
// whatever the last successful hook produced.
func (b *Bus) RunBeforePrompt(ctx context.Context, state *PromptState) *PromptState {
	b.mu.RLock()
	hooks := make([]namedBeforePrompt, len(b.beforePrompt))
	copy(hooks, b.beforePrompt)
	b.mu.RUnlock()

	for _, h := range hooks {
		if err := b.safeBeforePrompt(ctx, h, state); err != nil {
			b.reportHookError(h.name, PointBeforePrompt, err)
		}
	}
	return state
}

// RunTool wraps a tool call with before/after hooks. The returned channel
// reproduces the tool's native stream: every progress event forwarded
// unchanged, followed by exactly one terminal event, then close.
func (b *Bus) RunTool(ctx context.Context, t tool.Tool, input map[string]any) <-chan tool.Event {
	out := make(chan tool.Event)
	call := ToolCall{Tool: t.Name(), Input: input}

	go func() {
		defer close(out)

		b.runBeforeTool(ctx, call)
		started := time.Now()

		outcome := Outcome{}
		for ev := range t.Call(ctx, input) {
			switch ev.Kind {
			case tool.KindProgress:
				outcome.Progress++
			case tool.KindResult:
				outcome.Success = true
				outcome.Data = ev.Data
			case tool.KindError:
				outcome.Err = ev.Err
			}
			out <- ev
		}
		outcome.Duration = time.Since(started)

		b.runAfterTool(ctx, call, outcome)
	}()

	return out
}

func (b *Bus) runBeforeTool(ctx context.Context, call ToolCall) {
	b.mu.RLock()
	hooks := make([]namedBeforeTool, len(b.beforeTool))
	copy(hooks, b.beforeTool)
	b.mu.RUnlock()

	for _, h := range hooks {
		if err := b.safeBeforeTool(ctx, h, call); err != nil {
			b.reportHookError(h.name, PointBeforeTool, err)
		}
	}
}

func (b *Bus) runAfterTool(ctx context.Context, call ToolCall, outcome Outcome) {
	b.mu.RLock()
	hooks := make([]namedAfterTool, len(b.afterTool))
	copy(hooks, b.afterTool)
	b.mu.RUnlock()

	for _, h := range hooks {
		if err := b.safeAfterTool(ctx, h, call, outcome); err != nil {
			b.reportHookError(h.name, PointAfterTool, err)
		}
	}
}

// safeBeforePrompt invokes a hook, converting panics into errors so one
// misbehaving hook cannot crash the host call.
func (b *Bus) safeBeforePrompt(ctx context.Context, h namedBeforePrompt, state *PromptState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h.fn(ctx, state)
}

func (b *Bus) safeBeforeTool(ctx context.Context, h namedBeforeTool, call ToolCall) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h.fn(ctx, call)
}

func (b *Bus) safeAfterTool(ctx context.Context, h namedAfterTool, call ToolCall, outcome Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return h.fn(ctx, call, outcome)
}

// reportHookError logs a hook failure and publishes it for observers.
// Hook errors never propagate to the wrapped call.
func (b *Bus) reportHookError(name string, point Point, err error) {
	b.logger.Error("hook failed",
		"hook", name,
		"point", string(point),
		"error", err.Error(),
	)
	b.Emit(event.NewHookErrorEvent(name, string(point), err.Error()))
}
