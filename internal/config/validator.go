package config

import (
	"fmt"
	"strings"

	"github.com/kestrelhq/kestrel/internal/logging"
)

// ValidationErrors aggregates configuration problems so the user sees
// all of them at once instead of fixing one per run.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for values that would misbehave at
// runtime. It returns all problems found, not just the first.
func (c *Config) Validate() []error {
	var errs []error

	if c.Semaphore.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("semaphore.max_concurrent must be at least 1, got %d", c.Semaphore.MaxConcurrent))
	}
	if c.Semaphore.StaleAfterSeconds < 1 {
		errs = append(errs, fmt.Errorf("semaphore.stale_after_seconds must be at least 1, got %d", c.Semaphore.StaleAfterSeconds))
	}
	if c.Semaphore.PollIntervalMs < 1 {
		errs = append(errs, fmt.Errorf("semaphore.poll_interval_ms must be at least 1, got %d", c.Semaphore.PollIntervalMs))
	}

	if c.Mailbox.PollIntervalMs < 1 {
		errs = append(errs, fmt.Errorf("mailbox.poll_interval_ms must be at least 1, got %d", c.Mailbox.PollIntervalMs))
	}

	if c.Snapshots.ListLimit < 0 {
		errs = append(errs, fmt.Errorf("snapshots.list_limit must not be negative, got %d", c.Snapshots.ListLimit))
	}

	if !isValidLogLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %s, got %q",
			strings.Join(logging.ValidLevels(), ", "), c.Logging.Level))
	}

	return errs
}

func isValidLogLevel(level string) bool {
	upper := strings.ToUpper(level)
	for _, valid := range logging.ValidLevels() {
		if upper == valid {
			return true
		}
	}
	return false
}
