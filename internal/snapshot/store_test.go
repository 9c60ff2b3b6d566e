package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/tool"
)

type fakeTool struct {
	name string
}

func (f fakeTool) Name() string                         { return f.name }
func (f fakeTool) IsReadOnly() bool                     { return true }
func (f fakeTool) IsConcurrencySafe() bool              { return true }
func (f fakeTool) NeedsPermissions(map[string]any) bool { return false }
func (f fakeTool) Call(context.Context, map[string]any) <-chan tool.Event {
	ch := make(chan tool.Event, 1)
	ch <- tool.Result("ok")
	close(ch)
	return ch
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	logDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatal(err)
	}
	return NewStore(filepath.Join(root, "snapshots"), logDir, nil, nil, nil), logDir
}

func writeLog(t *testing.T, logDir, name string, messages []Message) {
	t.Helper()
	data, err := json.Marshal(messages)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(logDir, name+".json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestStore_CreateAndList(t *testing.T) {
	store, logDir := newTestStore(t)
	writeLog(t, logDir, "main", []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	})

	meta, err := store.Create(CreateRequest{MessageLogName: "main", Reason: "manual", Label: "pre-refactor"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if meta.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", meta.MessageCount)
	}
	if !strings.HasSuffix(meta.ID, "-pre-refactor") {
		t.Errorf("ID = %q, want label slug suffix", meta.ID)
	}
	if meta.SourcePath != filepath.Join(logDir, "main.json") {
		t.Errorf("SourcePath = %q", meta.SourcePath)
	}

	metas, err := store.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 1 || metas[0].ID != meta.ID {
		t.Errorf("List() = %+v", metas)
	}
}

func TestStore_CreateMissingSourceLog(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Create(CreateRequest{MessageLogName: "nope", Reason: "manual"})
	if !kerrors.Is(err, kerrors.ErrSourceLogMissing) {
		t.Errorf("err = %v, want ErrSourceLogMissing", err)
	}
}

func TestStore_CreateRejectsNonArrayLog(t *testing.T) {
	store, logDir := newTestStore(t)
	if err := os.WriteFile(filepath.Join(logDir, "main.json"), []byte(`{"not":"an array"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Create(CreateRequest{MessageLogName: "main", Reason: "manual"}); err == nil {
		t.Error("Create() accepted a non-array message log")
	}
}

func TestStore_CreateForkAndSidechainPaths(t *testing.T) {
	store, logDir := newTestStore(t)
	writeLog(t, logDir, "main-fork-2-sidechain-1", []Message{{Role: "user", Content: "x"}})

	meta, err := store.Create(CreateRequest{
		MessageLogName:  "main",
		ForkNumber:      2,
		SidechainNumber: 1,
		Reason:          "auto",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasSuffix(meta.SourcePath, "main-fork-2-sidechain-1.json") {
		t.Errorf("SourcePath = %q", meta.SourcePath)
	}
}

func TestStore_CreateSameSecondCollision(t *testing.T) {
	store, logDir := newTestStore(t)
	writeLog(t, logDir, "main", []Message{{Role: "user", Content: "x"}})

	req := CreateRequest{MessageLogName: "main", Reason: "manual", Label: "pre-refactor"}
	first, err := store.Create(req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Create(req)
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}

	if first.ID == second.ID {
		t.Fatalf("both snapshots share id %q", first.ID)
	}
	// Same-second creates get a numeric suffix rather than overwriting.
	if second.ID == first.ID+"-2" || first.ID == second.ID+"-2" {
		return
	}
	// Otherwise the clock ticked between creates; both files must exist.
	metas, err := store.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Errorf("List() found %d snapshots, want 2", len(metas))
	}
}

func TestStore_SnapshotFileIsReadOnly(t *testing.T) {
	store, logDir := newTestStore(t)
	writeLog(t, logDir, "main", []Message{{Role: "user", Content: "x"}})

	meta, err := store.Create(CreateRequest{MessageLogName: "main", Reason: "manual"})
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(store.path(meta.ID))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0222 != 0 {
		t.Errorf("snapshot file mode = %v, want no write bits", info.Mode())
	}
}

func TestStore_ListNewestFirstWithLimit(t *testing.T) {
	store, logDir := newTestStore(t)
	writeLog(t, logDir, "main", []Message{{Role: "user", Content: "x"}})

	var ids []string
	for _, label := range []string{"one", "two", "three"} {
		meta, err := store.Create(CreateRequest{MessageLogName: "main", Reason: "manual", Label: label})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, meta.ID)
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := store.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("List(2) returned %d, want 2", len(metas))
	}
	if metas[0].ID != ids[2] || metas[1].ID != ids[1] {
		t.Errorf("List(2) order = [%s %s], want newest-first", metas[0].ID, metas[1].ID)
	}
}

func TestStore_ListSkipsCorruptFiles(t *testing.T) {
	store, logDir := newTestStore(t)
	writeLog(t, logDir, "main", []Message{{Role: "user", Content: "x"}})

	if _, err := store.Create(CreateRequest{MessageLogName: "main", Reason: "manual"}); err != nil {
		t.Fatal(err)
	}
	corrupt := filepath.Join(store.dir, "garbage"+snapshotSuffix)
	if err := os.WriteFile(corrupt, []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	metas, err := store.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("List() returned %d snapshots, want corrupt file skipped", len(metas))
	}
}

func TestStore_Resolve(t *testing.T) {
	store, logDir := newTestStore(t)
	writeLog(t, logDir, "main", []Message{{Role: "user", Content: "x"}})

	var ids []string
	for _, label := range []string{"alpha-work", "beta-work"} {
		meta, err := store.Create(CreateRequest{MessageLogName: "main", Reason: "manual", Label: label})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, meta.ID)
		time.Sleep(5 * time.Millisecond)
	}
	newest, oldest := ids[1], ids[0]

	t.Run("empty returns newest", func(t *testing.T) {
		meta, err := store.Resolve("")
		if err != nil {
			t.Fatal(err)
		}
		if meta.ID != newest {
			t.Errorf("Resolve(\"\") = %s, want %s", meta.ID, newest)
		}
	})

	t.Run("exact id", func(t *testing.T) {
		meta, err := store.Resolve(oldest)
		if err != nil {
			t.Fatal(err)
		}
		if meta.ID != oldest {
			t.Errorf("Resolve(%s) = %s", oldest, meta.ID)
		}
	})

	t.Run("unambiguous prefix", func(t *testing.T) {
		prefix := oldest[:len(oldest)-1]
		if strings.HasPrefix(newest, prefix) {
			t.Skip("ids share the prefix under test")
		}
		meta, err := store.Resolve(prefix)
		if err != nil {
			t.Fatal(err)
		}
		if meta.ID != oldest {
			t.Errorf("Resolve(%s) = %s, want %s", prefix, meta.ID, oldest)
		}
	})

	t.Run("positional index", func(t *testing.T) {
		meta, err := store.Resolve("2")
		if err != nil {
			t.Fatal(err)
		}
		if meta.ID != oldest {
			t.Errorf("Resolve(2) = %s, want second-newest %s", meta.ID, oldest)
		}
	})

	t.Run("label substring", func(t *testing.T) {
		meta, err := store.Resolve("ALPHA")
		if err != nil {
			t.Fatal(err)
		}
		if meta.ID != oldest {
			t.Errorf("Resolve(ALPHA) = %s, want %s", meta.ID, oldest)
		}
	})

	t.Run("miss", func(t *testing.T) {
		if _, err := store.Resolve("zzz-no-such"); !kerrors.Is(err, kerrors.ErrSnapshotNotFound) {
			t.Errorf("err = %v, want ErrSnapshotNotFound", err)
		}
	})
}

func TestStore_ResolveEmptyStore(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Resolve(""); !kerrors.Is(err, kerrors.ErrSnapshotNotFound) {
		t.Errorf("err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestStore_LoadMessagesReconnectsTools(t *testing.T) {
	root := t.TempDir()
	logDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		t.Fatal(err)
	}
	registry := tool.NewRegistry()
	registry.Register(fakeTool{name: "bash"})
	store := NewStore(filepath.Join(root, "snapshots"), logDir, registry, nil, nil)

	writeLog(t, logDir, "main", []Message{
		{Role: "user", Content: "run it"},
		{Role: "assistant", ToolName: "bash", ToolInput: map[string]any{"command": "ls"}},
		{Role: "assistant", ToolName: "vanished"},
	})
	meta, err := store.Create(CreateRequest{MessageLogName: "main", Reason: "manual"})
	if err != nil {
		t.Fatal(err)
	}

	snap, err := store.LoadMessages(meta.ID)
	if err != nil {
		t.Fatalf("LoadMessages() error = %v", err)
	}
	if len(snap.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(snap.Messages))
	}
	if snap.Messages[1].Tool == nil || snap.Messages[1].Tool.Name() != "bash" {
		t.Error("bash tool reference not reconnected")
	}
	if snap.Messages[2].Tool != nil {
		t.Error("unknown tool should stay nil")
	}
}

func TestStore_LoadMessagesCorrupt(t *testing.T) {
	store, _ := newTestStore(t)
	if err := os.MkdirAll(store.dir, 0755); err != nil {
		t.Fatal(err)
	}
	id := "20260101-000000-broken"
	if err := os.WriteFile(store.path(id), []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.LoadMessages(id); !kerrors.Is(err, kerrors.ErrSnapshotCorrupt) {
		t.Errorf("err = %v, want ErrSnapshotCorrupt", err)
	}
}

func TestStore_LoadMessagesNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.LoadMessages("nothing"); !kerrors.Is(err, kerrors.ErrSnapshotNotFound) {
		t.Errorf("err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSessionID(t *testing.T) {
	a := SessionID("/home/a/project", "default")
	b := SessionID("/home/b/project", "default")
	c := SessionID("/home/a/project", "review")

	if len(a) != 16 {
		t.Errorf("len = %d, want 16", len(a))
	}
	if a == b || a == c {
		t.Error("distinct workdirs/scopes must not share a session id")
	}
	if a != SessionID("/home/a/project", "default") {
		t.Error("session id is not deterministic")
	}
	// Scope sanitization makes cosmetic variants converge.
	if SessionID("/home/a/project", "Default") != a {
		t.Error("scope sanitization should normalize case")
	}
}
