package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Kestrel configuration
type Config struct {
	Semaphore   SemaphoreConfig   `mapstructure:"semaphore"`
	Mailbox     MailboxConfig     `mapstructure:"mailbox"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	Snapshots   SnapshotsConfig   `mapstructure:"snapshots"`
	Hooks       HooksConfig       `mapstructure:"hooks"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Paths       PathsConfig       `mapstructure:"paths"`
}

// SemaphoreConfig controls the cross-process API concurrency limiter
type SemaphoreConfig struct {
	// MaxConcurrent is the number of API slots shared across processes
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// StaleAfterSeconds is how old a slot file must be before another
	// process may reclaim it (default: 120)
	StaleAfterSeconds int `mapstructure:"stale_after_seconds"`
	// PollIntervalMs is how often a blocked acquirer re-checks for a
	// free slot (in milliseconds)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// MailboxConfig controls inter-agent messaging behavior
type MailboxConfig struct {
	// PollIntervalMs is the inbox watcher's poll interval (in milliseconds).
	// Filesystem notification wakes the watcher earlier when available.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// PermissionsConfig controls the tool permission gate
type PermissionsConfig struct {
	// HighRiskPatterns are additional regular expressions classifying
	// commands as high-risk. Matching commands always re-prompt and are
	// never session-cached, on top of the built-in pattern set.
	HighRiskPatterns []string `mapstructure:"high_risk_patterns"`
}

// SnapshotsConfig controls conversation snapshot behavior
type SnapshotsConfig struct {
	// ListLimit is the default number of snapshots shown by listing commands
	ListLimit int `mapstructure:"list_limit"`
}

// HooksConfig controls the hook bus
type HooksConfig struct {
	// ManifestPath points at a YAML manifest enabling or disabling named
	// hooks. Empty means no manifest; registered hooks all run.
	ManifestPath string `mapstructure:"manifest_path"`
	// AuditLog enables the builtin audit hook writing audit.jsonl
	AuditLog bool `mapstructure:"audit_log"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "DEBUG", "INFO", "WARN", "ERROR" (default: "INFO")
	Level string `mapstructure:"level"`
}

// PathsConfig controls where Kestrel stores coordination state
type PathsConfig struct {
	// BaseDir is the root of all on-disk state: teams, task boards,
	// mailboxes, semaphore slots, snapshots, logs.
	// Supports ~ for home directory expansion (default: ~/.kestrel).
	BaseDir string `mapstructure:"base_dir"`
}

// ResolveBaseDir returns the expanded, absolute base directory.
func (p *PathsConfig) ResolveBaseDir() string {
	path := p.BaseDir
	if path == "" {
		path = "~/.kestrel"
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return path
}

// TeamsDir returns the team directory's storage path.
func (p *PathsConfig) TeamsDir() string { return filepath.Join(p.ResolveBaseDir(), "teams") }

// TaskboardDir returns the task board's storage path.
func (p *PathsConfig) TaskboardDir() string { return filepath.Join(p.ResolveBaseDir(), "taskboard") }

// MailboxDir returns the mailbox root.
func (p *PathsConfig) MailboxDir() string { return filepath.Join(p.ResolveBaseDir(), "mailbox") }

// SemaphoreDir returns the API slot directory.
func (p *PathsConfig) SemaphoreDir() string {
	return filepath.Join(p.ResolveBaseDir(), ".api-semaphore")
}

// SnapshotsDir returns the snapshot storage path.
func (p *PathsConfig) SnapshotsDir() string { return filepath.Join(p.ResolveBaseDir(), "snapshots") }

// MessageLogDir returns where live conversation logs are kept.
func (p *PathsConfig) MessageLogDir() string { return filepath.Join(p.ResolveBaseDir(), "logs") }

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Semaphore: SemaphoreConfig{
			MaxConcurrent:     2,
			StaleAfterSeconds: 120,
			PollIntervalMs:    250,
		},
		Mailbox: MailboxConfig{
			PollIntervalMs: 500,
		},
		Permissions: PermissionsConfig{
			HighRiskPatterns: []string{},
		},
		Snapshots: SnapshotsConfig{
			ListLimit: 20,
		},
		Hooks: HooksConfig{
			ManifestPath: "",
			AuditLog:     false,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "INFO",
		},
		Paths: PathsConfig{
			BaseDir: "~/.kestrel",
		},
	}
}

// StaleAfter returns the slot staleness threshold as a time.Duration
func (c *SemaphoreConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSeconds) * time.Second
}

// PollInterval returns the acquire poll interval as a time.Duration
func (c *SemaphoreConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// PollInterval returns the watcher poll interval as a time.Duration
func (c *MailboxConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Semaphore defaults
	viper.SetDefault("semaphore.max_concurrent", defaults.Semaphore.MaxConcurrent)
	viper.SetDefault("semaphore.stale_after_seconds", defaults.Semaphore.StaleAfterSeconds)
	viper.SetDefault("semaphore.poll_interval_ms", defaults.Semaphore.PollIntervalMs)

	// Mailbox defaults
	viper.SetDefault("mailbox.poll_interval_ms", defaults.Mailbox.PollIntervalMs)

	// Permission defaults
	viper.SetDefault("permissions.high_risk_patterns", defaults.Permissions.HighRiskPatterns)

	// Snapshot defaults
	viper.SetDefault("snapshots.list_limit", defaults.Snapshots.ListLimit)

	// Hook defaults
	viper.SetDefault("hooks.manifest_path", defaults.Hooks.ManifestPath)
	viper.SetDefault("hooks.audit_log", defaults.Hooks.AuditLog)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Paths defaults
	viper.SetDefault("paths.base_dir", defaults.Paths.BaseDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kestrel")
	}
	// Fall back to ~/.config/kestrel
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kestrel"
	}
	return filepath.Join(home, ".config", "kestrel")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
