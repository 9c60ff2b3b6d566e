package team

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/logging"
)

// TaskChecker reports whether a team still has unresolved tasks. The task
// board provides the real implementation; Delete consults it before
// removing team state.
type TaskChecker interface {
	HasUnresolved(team string) (bool, error)
}

// Directory is the registry of teams. Team records are JSON files under
// {dir}/<name>.json; every cross-process view is a fresh read.
type Directory struct {
	mu       sync.Mutex
	dir      string
	checker  TaskChecker
	removers []func(team string) error
	bus      *event.Bus
	logger   *logging.Logger
}

// NewDirectory creates a Directory rooted at dir. bus and logger are
// optional.
func NewDirectory(dir string, bus *event.Bus, logger *logging.Logger) *Directory {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Directory{
		dir:    dir,
		bus:    bus,
		logger: logger.WithComponent("team"),
	}
}

// SetTaskChecker wires the unresolved-task check used by Delete.
func (d *Directory) SetTaskChecker(c TaskChecker) {
	d.mu.Lock()
	d.checker = c
	d.mu.Unlock()
}

// OnDelete registers a cleanup function run when a team is removed. The
// task board and mailbox register their per-team state removal here.
func (d *Directory) OnDelete(remover func(team string) error) {
	d.mu.Lock()
	d.removers = append(d.removers, remover)
	d.mu.Unlock()
}

// Ensure is an idempotent create-or-fetch. Names are normalized; when the
// team already exists its stored record is returned unchanged and
// initialAgents are ignored.
func (d *Directory) Ensure(name string, initialAgents []string) (Team, error) {
	norm, err := NormalizeName(name)
	if err != nil {
		return Team{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, err := d.read(norm); err == nil {
		return t, nil
	} else if !kerrors.Is(err, kerrors.ErrTeamNotFound) {
		return Team{}, err
	}

	agents := make([]string, 0, len(initialAgents))
	seen := map[string]bool{}
	for _, a := range initialAgents {
		na, err := NormalizeName(a)
		if err != nil {
			return Team{}, fmt.Errorf("agent %q: %w", a, err)
		}
		if !seen[na] {
			agents = append(agents, na)
			seen[na] = true
		}
	}

	t := Team{Name: norm, Agents: agents, CreatedAt: time.Now()}
	if err := d.write(t); err != nil {
		return Team{}, err
	}

	d.logger.Info("team created", "team", norm, "agents", strings.Join(agents, ","))
	if d.bus != nil {
		d.bus.Publish(event.NewTeamCreatedEvent(norm, agents))
	}
	return t, nil
}

// Get fetches a team by name.
func (d *Directory) Get(name string) (Team, error) {
	norm, err := NormalizeName(name)
	if err != nil {
		return Team{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(norm)
}

// Agents returns the normalized roster of a team.
func (d *Directory) Agents(name string) ([]string, error) {
	t, err := d.Get(name)
	if err != nil {
		return nil, err
	}
	return t.Agents, nil
}

// AddAgent appends an agent to an existing team's roster, idempotently.
func (d *Directory) AddAgent(name, agent string) (Team, error) {
	norm, err := NormalizeName(name)
	if err != nil {
		return Team{}, err
	}
	na, err := NormalizeName(agent)
	if err != nil {
		return Team{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	t, err := d.read(norm)
	if err != nil {
		return Team{}, err
	}
	if t.HasAgent(na) {
		return t, nil
	}
	t.Agents = append(t.Agents, na)
	if err := d.write(t); err != nil {
		return Team{}, err
	}
	return t, nil
}

// List returns all registered teams, sorted by name.
func (d *Directory) List() ([]Team, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list teams: %w", err)
	}

	var teams []Team
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := d.read(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue // unreadable record; surfaced when fetched directly
		}
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

// Delete removes a team and all its state. Without force, deletion fails
// with ErrTeamNotEmpty while unresolved tasks remain on the team's board.
func (d *Directory) Delete(name string, force bool) error {
	norm, err := NormalizeName(name)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.read(norm); err != nil {
		return err
	}

	if !force && d.checker != nil {
		unresolved, err := d.checker.HasUnresolved(norm)
		if err != nil {
			return fmt.Errorf("checking tasks for %s: %w", norm, err)
		}
		if unresolved {
			return fmt.Errorf("%w: %s", kerrors.ErrTeamNotEmpty, norm)
		}
	}

	for _, remove := range d.removers {
		if err := remove(norm); err != nil {
			return fmt.Errorf("removing state for %s: %w", norm, err)
		}
	}

	if err := os.Remove(d.recordPath(norm)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove team record: %w", err)
	}

	d.logger.Info("team deleted", "team", norm, "forced", force)
	if d.bus != nil {
		d.bus.Publish(event.NewTeamDeletedEvent(norm, force))
	}
	return nil
}

func (d *Directory) recordPath(norm string) string {
	return filepath.Join(d.dir, norm+".json")
}

func (d *Directory) read(norm string) (Team, error) {
	data, err := os.ReadFile(d.recordPath(norm))
	if err != nil {
		if os.IsNotExist(err) {
			return Team{}, kerrors.NewNotFoundError("team", norm)
		}
		return Team{}, fmt.Errorf("read team record: %w", err)
	}

	var t Team
	if err := json.Unmarshal(data, &t); err != nil {
		return Team{}, fmt.Errorf("parse team record %s: %w", norm, err)
	}
	return t, nil
}

// write persists a team record with write-then-rename so a concurrent
// reader never sees a torn file.
func (d *Directory) write(t Team) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create teams directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal team record: %w", err)
	}

	path := d.recordPath(t.Name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write team record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit team record: %w", err)
	}
	return nil
}
