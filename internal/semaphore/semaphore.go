package semaphore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/logging"
)

const (
	// DefaultMaxConcurrent is the default number of slots.
	DefaultMaxConcurrent = 2

	// DefaultStaleAfter is how old a slot token must be before another
	// acquirer may presume its holder crashed and reclaim it.
	DefaultStaleAfter = 120 * time.Second

	// DefaultPollInterval is the wait between acquisition sweeps.
	DefaultPollInterval = 250 * time.Millisecond
)

// Config sizes and paces a Limiter. Zero fields take the defaults above.
type Config struct {
	Dir           string        // Directory holding slot token files
	MaxConcurrent int           // Number of slots, N
	StaleAfter    time.Duration // Staleness threshold for reclamation
	PollInterval  time.Duration // Interval between acquisition sweeps
}

// Limiter is the cross-process API call limiter. It is the only primitive
// in the runtime with a true mutual-exclusion guarantee.
type Limiter struct {
	dir          string
	max          int
	staleAfter   time.Duration
	pollInterval time.Duration
	bus          *event.Bus
	logger       *logging.Logger
}

// tokenInfo is the JSON body of a slot token file, identifying the holder
// for post-hoc debugging. Staleness is judged from file mtime, not from
// this payload.
type tokenInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Slot is an exclusively-owned token representing one permitted concurrent
// upstream call. Release it when the call finishes.
type Slot struct {
	index   int
	path    string
	limiter *Limiter
}

// Index returns the slot's position in [0, N).
func (s *Slot) Index() int { return s.index }

// Release removes the token the holder created. Safe to call once; the
// token is identified by path, so a reclaimed-and-reacquired slot is never
// released by its previous holder's stale handle (the file is simply gone).
func (s *Slot) Release() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release slot %d: %w", s.index, err)
	}
	s.limiter.logger.Debug("slot released", "slot", s.index)
	if s.limiter.bus != nil {
		s.limiter.bus.Publish(event.NewSlotReleasedEvent(s.index, os.Getpid()))
	}
	return nil
}

// NewLimiter creates a Limiter rooted at cfg.Dir. The directory is created
// on first acquisition. bus and logger are optional.
func NewLimiter(cfg Config, bus *event.Bus, logger *logging.Logger) *Limiter {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Limiter{
		dir:          cfg.Dir,
		max:          cfg.MaxConcurrent,
		staleAfter:   cfg.StaleAfter,
		pollInterval: cfg.PollInterval,
		bus:          bus,
		logger:       logger.WithComponent("semaphore"),
	}
}

// Acquire blocks until a slot is obtained or ctx is cancelled. On
// cancellation it returns ErrAcquireCancelled wrapping ctx's cause; no slot
// is held and the guarded call must not proceed.
func (l *Limiter) Acquire(ctx context.Context) (*Slot, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create semaphore directory: %w", err)
	}

	for {
		if slot := l.sweep(); slot != nil {
			return slot, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", kerrors.ErrAcquireCancelled, ctx.Err())
		case <-time.After(l.pollInterval):
		}
	}
}

// TryAcquire performs a single sweep without waiting. Returns (nil, false)
// when every slot is held by a live process.
func (l *Limiter) TryAcquire() (*Slot, bool) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, false
	}
	slot := l.sweep()
	return slot, slot != nil
}

// sweep attempts exclusive creation of each slot token in turn. A token
// older than the staleness threshold is forcibly removed (holder presumed
// crashed), but that slot is not retried in the same pass, so two processes
// reclaiming concurrently still race through O_EXCL on the next sweep.
func (l *Limiter) sweep() *Slot {
	for i := 0; i < l.max; i++ {
		path := l.slotPath(i)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				l.reclaimIfStale(i, path)
				continue
			}
			l.logger.Warn("slot create failed", "slot", i, "error", err.Error())
			continue
		}

		hostname, herr := os.Hostname()
		if herr != nil {
			hostname = "unknown"
		}
		info := tokenInfo{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now()}
		if data, err := json.Marshal(info); err == nil {
			_, _ = f.Write(data)
		}
		_ = f.Close()

		l.logger.Debug("slot acquired", "slot", i)
		if l.bus != nil {
			l.bus.Publish(event.NewSlotAcquiredEvent(i, os.Getpid()))
		}
		return &Slot{index: i, path: path, limiter: l}
	}
	return nil
}

// reclaimIfStale removes a held token whose age exceeds the staleness
// threshold. Removal failures are ignored; the next sweep retries.
func (l *Limiter) reclaimIfStale(index int, path string) {
	fi, err := os.Stat(path)
	if err != nil {
		return // holder released between create attempt and stat
	}

	age := time.Since(fi.ModTime())
	if age < l.staleAfter {
		return
	}

	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("stale slot removal failed", "slot", index, "error", err.Error())
		}
		return
	}

	l.logger.Warn("reclaimed stale slot", "slot", index, "age", age.String())
	if l.bus != nil {
		l.bus.Publish(event.NewSlotReclaimedEvent(index, age))
	}
}

// Status reports how many slots are currently held (stale tokens count as
// held until reclaimed) and the configured maximum.
func (l *Limiter) Status() (held, max int) {
	for i := 0; i < l.max; i++ {
		if _, err := os.Stat(l.slotPath(i)); err == nil {
			held++
		}
	}
	return held, l.max
}

func (l *Limiter) slotPath(i int) string {
	return filepath.Join(l.dir, fmt.Sprintf("slot-%d.lock", i))
}
