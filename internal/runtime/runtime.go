// Package runtime assembles the coordination services into a single
// container: logging, events, permissions, the API slot limiter, hooks,
// teams, the task board, mailboxes, and snapshots. Construction wires the
// cross-service dependencies (team deletion cleans up task boards and
// mailboxes; broadcasts resolve recipients through the team directory).
package runtime

import (
	"fmt"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/hook"
	"github.com/kestrelhq/kestrel/internal/logging"
	"github.com/kestrelhq/kestrel/internal/mailbox"
	"github.com/kestrelhq/kestrel/internal/permission"
	"github.com/kestrelhq/kestrel/internal/semaphore"
	"github.com/kestrelhq/kestrel/internal/snapshot"
	"github.com/kestrelhq/kestrel/internal/taskboard"
	"github.com/kestrelhq/kestrel/internal/team"
	"github.com/kestrelhq/kestrel/internal/tool"
)

// Runtime holds the fully wired coordination services.
type Runtime struct {
	Config    *config.Config
	Logger    *logging.Logger
	Bus       *event.Bus
	Tools     *tool.Registry
	Gate      *permission.Gate
	Limiter   *semaphore.Limiter
	Hooks     *hook.Bus
	Teams     *team.Directory
	Board     *taskboard.Board
	Mailbox   *mailbox.Mailbox
	Snapshots *snapshot.Store
}

// New builds a Runtime from cfg. prompter answers permission requests and
// is required for any Gate.Authorize call to succeed; passing nil is valid
// for workflows that never authorize tools.
func New(cfg *config.Config, prompter permission.Prompter) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	baseDir := cfg.Paths.ResolveBaseDir()

	var logger *logging.Logger
	if cfg.Logging.Enabled {
		var err error
		logger, err = logging.NewLogger(baseDir, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	} else {
		logger = logging.NopLogger()
	}

	bus := event.NewBus()
	bus.SetLogger(logger)
	registry := tool.NewRegistry()

	gate := permission.NewGate(prompter, bus, logger)
	if err := gate.ExtendRiskPatterns(cfg.Permissions.HighRiskPatterns); err != nil {
		logger.Close()
		return nil, err
	}

	hooks := hook.NewBus(bus, logger)
	hook.RegisterTelemetry(hooks)
	if cfg.Hooks.AuditLog {
		hook.RegisterAudit(hooks, baseDir)
	}
	if cfg.Hooks.ManifestPath != "" {
		manifest, err := hook.LoadManifest(cfg.Hooks.ManifestPath)
		if err != nil {
			logger.Close()
			return nil, fmt.Errorf("failed to load hook manifest: %w", err)
		}
		if err := manifest.Apply(hooks, baseDir); err != nil {
			logger.Close()
			return nil, fmt.Errorf("failed to apply hook manifest: %w", err)
		}
	}

	teams := team.NewDirectory(cfg.Paths.TeamsDir(), bus, logger)
	board := taskboard.NewBoard(cfg.Paths.TaskboardDir(), bus, logger)
	teams.SetTaskChecker(board)
	teams.OnDelete(board.RemoveTeam)

	mbox := mailbox.NewMailbox(cfg.Paths.MailboxDir(), teams.Agents, bus, logger)
	mbox.SetPollInterval(cfg.Mailbox.PollInterval())
	teams.OnDelete(mbox.RemoveTeam)

	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		Bus:    bus,
		Tools:  registry,
		Gate:   gate,
		Limiter: semaphore.NewLimiter(semaphore.Config{
			Dir:           cfg.Paths.SemaphoreDir(),
			MaxConcurrent: cfg.Semaphore.MaxConcurrent,
			StaleAfter:    cfg.Semaphore.StaleAfter(),
			PollInterval:  cfg.Semaphore.PollInterval(),
		}, bus, logger),
		Hooks:     hooks,
		Teams:     teams,
		Board:     board,
		Mailbox:   mbox,
		Snapshots: snapshot.NewStore(cfg.Paths.SnapshotsDir(), cfg.Paths.MessageLogDir(), registry, bus, logger),
	}

	logger.Info("runtime initialized", "base_dir", baseDir)
	return rt, nil
}

// Close flushes and releases runtime resources.
func (r *Runtime) Close() error {
	r.Bus.Clear()
	return r.Logger.Close()
}
