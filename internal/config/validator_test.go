package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Semaphore.MaxConcurrent = 0
	cfg.Semaphore.PollIntervalMs = -1
	cfg.Logging.Level = "LOUD"

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}

	msg := ValidationErrors(errs).Error()
	for _, want := range []string{"max_concurrent", "poll_interval_ms", "logging.level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateLogLevelCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("lowercase level rejected: %v", errs)
	}
}

func TestValidateNegativeListLimit(t *testing.T) {
	cfg := Default()
	cfg.Snapshots.ListLimit = -1
	if errs := cfg.Validate(); len(errs) != 1 {
		t.Errorf("Validate() = %v, want one error", errs)
	}
}
