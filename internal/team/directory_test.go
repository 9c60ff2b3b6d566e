package team

import (
	"errors"
	"testing"

	"github.com/kestrelhq/kestrel/internal/kerrors"
)

func TestDirectory_EnsureCreatesAndNormalizes(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)

	tm, err := d.Ensure("Alpha Team", []string{"Lead", "worker B", "lead"})
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if tm.Name != "alpha-team" {
		t.Errorf("Name = %q, want alpha-team", tm.Name)
	}
	if len(tm.Agents) != 2 || tm.Agents[0] != "lead" || tm.Agents[1] != "worker-b" {
		t.Errorf("Agents = %v, want [lead worker-b]", tm.Agents)
	}
	if tm.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestDirectory_EnsureIsIdempotent(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)

	first, err := d.Ensure("alpha", []string{"lead"})
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	// A second ensure fetches the stored record; new initial agents are
	// ignored rather than merged.
	second, err := d.Ensure("alpha", []string{"intruder"})
	if err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	if len(second.Agents) != 1 || second.Agents[0] != "lead" {
		t.Errorf("Agents = %v, want [lead]", second.Agents)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("second Ensure changed CreatedAt")
	}
}

func TestDirectory_GetMissingTeam(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)

	_, err := d.Get("ghost")
	if !kerrors.Is(err, kerrors.ErrTeamNotFound) {
		t.Errorf("err = %v, want ErrTeamNotFound", err)
	}
}

func TestDirectory_HostileNameRejected(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)

	if _, err := d.Ensure("../../../etc", nil); err != nil {
		// "../../../etc" normalizes to "etc": allowed but sandboxed.
		t.Fatalf("Ensure() error = %v", err)
	}
	_, err := d.Ensure("///", nil)
	if !kerrors.Is(err, kerrors.ErrInvalidPath) {
		t.Errorf("err = %v, want ErrInvalidPath", err)
	}
}

func TestDirectory_AddAgent(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)

	if _, err := d.Ensure("alpha", []string{"lead"}); err != nil {
		t.Fatal(err)
	}
	tm, err := d.AddAgent("alpha", "Worker C")
	if err != nil {
		t.Fatalf("AddAgent() error = %v", err)
	}
	if !tm.HasAgent("worker-c") {
		t.Error("agent not added")
	}

	// Idempotent re-add.
	tm, err = d.AddAgent("alpha", "worker-c")
	if err != nil {
		t.Fatalf("AddAgent() error = %v", err)
	}
	if len(tm.Agents) != 2 {
		t.Errorf("Agents = %v, want 2 entries", tm.Agents)
	}
}

type fakeChecker struct {
	unresolved bool
	err        error
}

func (f fakeChecker) HasUnresolved(string) (bool, error) { return f.unresolved, f.err }

func TestDirectory_DeleteBlockedByUnresolvedTasks(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)
	d.SetTaskChecker(fakeChecker{unresolved: true})

	if _, err := d.Ensure("alpha", []string{"lead"}); err != nil {
		t.Fatal(err)
	}

	err := d.Delete("alpha", false)
	if !kerrors.Is(err, kerrors.ErrTeamNotEmpty) {
		t.Fatalf("err = %v, want ErrTeamNotEmpty", err)
	}

	// Force bypasses the check.
	if err := d.Delete("alpha", true); err != nil {
		t.Fatalf("forced Delete() error = %v", err)
	}
	if _, err := d.Get("alpha"); !kerrors.Is(err, kerrors.ErrTeamNotFound) {
		t.Errorf("team survived forced delete: %v", err)
	}
}

func TestDirectory_DeleteRunsRemovers(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)

	var removed []string
	d.OnDelete(func(team string) error {
		removed = append(removed, "tasks:"+team)
		return nil
	})
	d.OnDelete(func(team string) error {
		removed = append(removed, "mailbox:"+team)
		return nil
	})

	if _, err := d.Ensure("alpha", nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete("alpha", true); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(removed) != 2 || removed[0] != "tasks:alpha" || removed[1] != "mailbox:alpha" {
		t.Errorf("removers ran as %v", removed)
	}
}

func TestDirectory_DeleteRemoverFailureSurfaces(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)
	boom := errors.New("disk full")
	d.OnDelete(func(string) error { return boom })

	if _, err := d.Ensure("alpha", nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Delete("alpha", true); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped remover failure", err)
	}
}

func TestDirectory_List(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)

	for _, name := range []string{"bravo", "alpha", "charlie"} {
		if _, err := d.Ensure(name, nil); err != nil {
			t.Fatal(err)
		}
	}

	teams, err := d.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(teams) != 3 {
		t.Fatalf("List() returned %d teams, want 3", len(teams))
	}
	if teams[0].Name != "alpha" || teams[2].Name != "charlie" {
		t.Errorf("teams not sorted: %v", teams)
	}
}

func TestDirectory_ListEmpty(t *testing.T) {
	d := NewDirectory(t.TempDir(), nil, nil)
	teams, err := d.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(teams) != 0 {
		t.Errorf("List() = %v, want empty", teams)
	}
}
