// Package kerrors provides centralized error definitions and error handling
// utilities for the kestrel runtime. It defines sentinel errors for each
// coordination subsystem, semantic error types, and classification helpers.
//
// Creating errors:
//
//	err := kerrors.NewNotFoundError("team", "alpha")
//	err := fmt.Errorf("%w: %s", kerrors.ErrTaskNotFound, taskRef)
//
// Checking errors:
//
//	if kerrors.Is(err, kerrors.ErrPermissionDenied) { ... }
//	if kerrors.IsNotFound(err) { ... }
package kerrors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Permission-related sentinel errors
var (
	// ErrPermissionDenied indicates the user rejected a tool invocation.
	// It aborts only that tool call, never the session.
	ErrPermissionDenied = New("permission denied")
	// ErrPromptUnavailable indicates no prompter was configured for a call
	// that required interactive approval.
	ErrPromptUnavailable = New("no permission prompter available")
)

// Semaphore-related sentinel errors
var (
	// ErrAcquireCancelled indicates a slot acquisition wait was cancelled
	// before any slot was obtained. The caller must not proceed with the
	// guarded call.
	ErrAcquireCancelled = New("slot acquisition cancelled")
)

// Team and task sentinel errors
var (
	// ErrTeamNotFound indicates a lookup for an unknown team.
	ErrTeamNotFound = New("team not found")
	// ErrTeamNotEmpty indicates a non-forced delete of a team that still
	// has unresolved tasks.
	ErrTeamNotEmpty = New("team has unresolved tasks")
	// ErrTaskNotFound indicates a lookup for an unknown task ID.
	ErrTaskNotFound = New("task not found")
)

// Mailbox sentinel errors
var (
	// ErrNoRecipients indicates a broadcast resolved zero eligible
	// recipients. Fatal to that call, not to the process.
	ErrNoRecipients = New("broadcast has no eligible recipients")
)

// Snapshot sentinel errors
var (
	// ErrSnapshotNotFound indicates a snapshot reference resolved nothing.
	ErrSnapshotNotFound = New("snapshot not found")
	// ErrSnapshotCorrupt indicates a snapshot file failed structural
	// validation when explicitly loaded.
	ErrSnapshotCorrupt = New("snapshot file is corrupt")
	// ErrSourceLogMissing indicates the live message log to snapshot does
	// not exist or is not a valid message array.
	ErrSourceLogMissing = New("source message log missing or invalid")
)

// Storage sentinel errors
var (
	// ErrInvalidPath indicates an attempted escape from a sandboxed storage
	// directory. Always rejected, never silently clamped.
	ErrInvalidPath = New("path escapes storage directory")
)

// NotFoundError is a semantic error for missing resources, carrying the
// resource kind and identifier for user-facing messages.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a NotFoundError for the given resource and ID.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is allows errors.Is matching against the subsystem sentinels.
func (e *NotFoundError) Is(target error) bool {
	switch e.Resource {
	case "team":
		return target == ErrTeamNotFound
	case "task":
		return target == ErrTaskNotFound
	case "snapshot":
		return target == ErrSnapshotNotFound
	}
	return false
}

// ValidationError is a semantic error for invalid input or state.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if err represents a missing resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	if As(err, &nf) {
		return true
	}
	return Is(err, ErrTeamNotFound) || Is(err, ErrTaskNotFound) || Is(err, ErrSnapshotNotFound)
}

// IsUserFacing returns true if err is safe to display verbatim to users.
// Internal I/O failures are not user-facing; coordination-level results are.
func IsUserFacing(err error) bool {
	if IsNotFound(err) {
		return true
	}
	var ve *ValidationError
	if As(err, &ve) {
		return true
	}
	return Is(err, ErrPermissionDenied) ||
		Is(err, ErrTeamNotEmpty) ||
		Is(err, ErrNoRecipients) ||
		Is(err, ErrSnapshotCorrupt) ||
		Is(err, ErrInvalidPath)
}
