package taskboard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/logging"
	"github.com/kestrelhq/kestrel/internal/team"
)

// Board stores one task list per team as {dir}/<team>.json, with a sibling
// .lock file guarding read-modify-write sequences across processes.
type Board struct {
	dir    string
	bus    *event.Bus
	logger *logging.Logger
}

// NewBoard creates a Board rooted at dir. bus and logger are optional.
func NewBoard(dir string, bus *event.Bus, logger *logging.Logger) *Board {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Board{
		dir:    dir,
		bus:    bus,
		logger: logger.WithComponent("taskboard"),
	}
}

// Create assigns the next integer ID for the team and appends a new open
// task. IDs are monotonic and never reused, even after deletion.
func (b *Board) Create(teamName, subject, description string, blockedBy []int) (Task, error) {
	norm, err := team.NormalizeName(teamName)
	if err != nil {
		return Task{}, err
	}
	if subject == "" {
		return Task{}, kerrors.NewValidationError("subject", "must not be empty")
	}

	var created Task
	err = b.mutate(norm, func(state *boardState) error {
		state.NextID++
		now := time.Now()
		created = Task{
			ID:          state.NextID,
			TeamName:    norm,
			Subject:     subject,
			Description: description,
			Status:      StatusOpen,
			BlockedBy:   blockedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		state.Tasks = append(state.Tasks, created)
		return nil
	})
	if err != nil {
		return Task{}, err
	}

	b.logger.Info("task created", "team", norm, "task_id", created.ID, "subject", subject)
	if b.bus != nil {
		b.bus.Publish(event.NewTaskCreatedEvent(norm, created.ID, subject))
	}
	return created, nil
}

// Get returns one task by ID.
func (b *Board) Get(teamName string, id int) (Task, error) {
	norm, err := team.NormalizeName(teamName)
	if err != nil {
		return Task{}, err
	}

	state, err := b.load(norm)
	if err != nil {
		return Task{}, err
	}
	for _, t := range state.Tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return Task{}, fmt.Errorf("%w: %s#%d", kerrors.ErrTaskNotFound, norm, id)
}

// List returns the team's tasks matching the filter, in insertion order.
// A pure read: no lock is taken.
func (b *Board) List(teamName string, f Filter) ([]Task, error) {
	norm, err := team.NormalizeName(teamName)
	if err != nil {
		return nil, err
	}

	state, err := b.load(norm)
	if err != nil {
		return nil, err
	}

	var out []Task
	for _, t := range state.Tasks {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Update applies the non-nil fields of upd to a task. The board performs no
// validation that blockedBy tasks are resolved before allowing
// in_progress; honoring the dependency graph is the calling agents'
// convention.
func (b *Board) Update(teamName string, id int, upd Update) (Task, error) {
	norm, err := team.NormalizeName(teamName)
	if err != nil {
		return Task{}, err
	}
	if upd.Status != nil && !upd.Status.IsValid() {
		return Task{}, kerrors.NewValidationError("status", fmt.Sprintf("unknown status %q", *upd.Status))
	}

	var updated Task
	err = b.mutate(norm, func(state *boardState) error {
		for i := range state.Tasks {
			if state.Tasks[i].ID != id {
				continue
			}
			t := &state.Tasks[i]
			if upd.Status != nil {
				t.Status = *upd.Status
			}
			if upd.Owner != nil {
				t.Owner = *upd.Owner
			}
			if upd.Description != nil {
				t.Description = *upd.Description
			}
			if upd.BlockedBy != nil {
				t.BlockedBy = *upd.BlockedBy
			}
			t.UpdatedAt = time.Now()
			updated = *t
			return nil
		}
		return fmt.Errorf("%w: %s#%d", kerrors.ErrTaskNotFound, norm, id)
	})
	if err != nil {
		return Task{}, err
	}

	b.logger.Info("task updated", "team", norm, "task_id", id, "status", string(updated.Status))
	if b.bus != nil {
		b.bus.Publish(event.NewTaskUpdatedEvent(norm, id, string(updated.Status), updated.Owner))
	}
	return updated, nil
}

// Delete removes a task from the board. Its ID is never reassigned because
// next_id only grows.
func (b *Board) Delete(teamName string, id int) error {
	norm, err := team.NormalizeName(teamName)
	if err != nil {
		return err
	}

	return b.mutate(norm, func(state *boardState) error {
		for i := range state.Tasks {
			if state.Tasks[i].ID == id {
				state.Tasks = append(state.Tasks[:i], state.Tasks[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s#%d", kerrors.ErrTaskNotFound, norm, id)
	})
}

// HasUnresolved reports whether any task on the team's board is not yet
// completed. Implements team.TaskChecker.
func (b *Board) HasUnresolved(teamName string) (bool, error) {
	tasks, err := b.List(teamName, Filter{})
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		if !t.Status.IsResolved() {
			return true, nil
		}
	}
	return false, nil
}

// RemoveTeam deletes the team's board file and lock. Registered with the
// team directory's delete cleanup.
func (b *Board) RemoveTeam(teamName string) error {
	norm, err := team.NormalizeName(teamName)
	if err != nil {
		return err
	}
	for _, p := range []string{b.statePath(norm), b.lockPath(norm)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove board state: %w", err)
		}
	}
	return nil
}

// mutate runs fn over the team's board state under the per-team file lock,
// persisting the result with write-then-rename.
func (b *Board) mutate(norm string, fn func(*boardState) error) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create board directory: %w", err)
	}

	lock := NewFileLock(b.lockPath(norm))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock board for %s: %w", norm, err)
	}
	defer func() { _ = lock.Unlock() }()

	state, err := b.load(norm)
	if err != nil {
		return err
	}

	if err := fn(&state); err != nil {
		return err
	}
	return b.save(norm, state)
}

// load reads the team's board state. A missing file is an empty board, not
// an error: boards are created lazily on first task.
func (b *Board) load(norm string) (boardState, error) {
	data, err := os.ReadFile(b.statePath(norm))
	if err != nil {
		if os.IsNotExist(err) {
			return boardState{}, nil
		}
		return boardState{}, fmt.Errorf("read board state: %w", err)
	}

	var state boardState
	if err := json.Unmarshal(data, &state); err != nil {
		return boardState{}, fmt.Errorf("parse board state for %s: %w", norm, err)
	}
	return state, nil
}

func (b *Board) save(norm string, state boardState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal board state: %w", err)
	}

	path := b.statePath(norm)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write board state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit board state: %w", err)
	}
	return nil
}

func (b *Board) statePath(norm string) string {
	return filepath.Join(b.dir, norm+".json")
}

func (b *Board) lockPath(norm string) string {
	return filepath.Join(b.dir, norm+".lock")
}
