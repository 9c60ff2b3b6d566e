// Package tool defines the contract between the kestrel runtime and the
// tools an agent may invoke. Tools declare their capabilities through
// explicit booleans rather than optional-method presence, and stream their
// output as a closed union of progress, result, and error events.
package tool

import "context"

// Tool is implemented by anything an agent can invoke. Call produces an
// ordered sequence of progress events followed by exactly one terminal
// event (result or error), after which the channel is closed.
type Tool interface {
	// Name returns the tool's stable identifier.
	Name() string

	// IsReadOnly reports whether the tool cannot mutate external state.
	IsReadOnly() bool

	// IsConcurrencySafe reports whether calls may overlap with other tools.
	IsConcurrencySafe() bool

	// NeedsPermissions reports whether the given input requires user
	// authorization before the tool may run.
	NeedsPermissions(input map[string]any) bool

	// Call executes the tool. The returned channel yields zero or more
	// progress events and exactly one terminal event, then closes.
	// Implementations must respect ctx cancellation.
	Call(ctx context.Context, input map[string]any) <-chan Event
}

// EventKind discriminates the tool event union.
type EventKind string

const (
	// KindProgress is a non-terminal progress notification.
	KindProgress EventKind = "progress"

	// KindResult is the successful terminal event.
	KindResult EventKind = "result"

	// KindError is the failed terminal event.
	KindError EventKind = "error"
)

// Event is one element of a tool's output stream.
type Event struct {
	Kind    EventKind
	Content string // Progress content; empty otherwise
	Data    any    // Result payload; nil otherwise
	Err     error  // Error cause; nil otherwise
}

// Progress constructs a progress event.
func Progress(content string) Event {
	return Event{Kind: KindProgress, Content: content}
}

// Result constructs the successful terminal event.
func Result(data any) Event {
	return Event{Kind: KindResult, Data: data}
}

// Errorf constructs the failed terminal event.
func Errorf(err error) Event {
	return Event{Kind: KindError, Err: err}
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == KindResult || e.Kind == KindError
}
