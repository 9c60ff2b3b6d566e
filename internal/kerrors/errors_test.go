package kerrors

import (
	"fmt"
	"testing"
)

func TestNotFoundErrorMatchesSentinels(t *testing.T) {
	err := NewNotFoundError("team", "alpha")

	if !Is(err, ErrTeamNotFound) {
		t.Error("team NotFoundError does not match ErrTeamNotFound")
	}
	if Is(err, ErrTaskNotFound) {
		t.Error("team NotFoundError matches ErrTaskNotFound")
	}
	if got := err.Error(); got != "team not found: alpha" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{NewNotFoundError("snapshot", "x"), true},
		{fmt.Errorf("lookup: %w", ErrTaskNotFound), true},
		{fmt.Errorf("wrapped: %w", ErrTeamNotFound), true},
		{ErrNoRecipients, false},
		{New("disk on fire"), false},
	}
	for _, tc := range cases {
		if got := IsNotFound(tc.err); got != tc.want {
			t.Errorf("IsNotFound(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsUserFacing(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrPermissionDenied, true},
		{fmt.Errorf("delete: %w", ErrTeamNotEmpty), true},
		{NewValidationError("status", "unknown"), true},
		{fmt.Errorf("load: %w", ErrSnapshotCorrupt), true},
		{New("open /tmp/x: permission denied"), false},
	}
	for _, tc := range cases {
		if got := IsUserFacing(tc.err); got != tc.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	if got := NewValidationError("subject", "must not be empty").Error(); got != "invalid subject: must not be empty" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewValidationError("", "bare message").Error(); got != "bare message" {
		t.Errorf("Error() = %q", got)
	}
}
