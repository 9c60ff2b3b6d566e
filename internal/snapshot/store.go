package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/logging"
	"github.com/kestrelhq/kestrel/internal/tool"
	"github.com/kestrelhq/kestrel/internal/util"
)

const (
	snapshotSuffix = ".snapshot.json"

	// idTimeLayout is the timestamp prefix of a snapshot id.
	idTimeLayout = "20060102-150405"

	// maxSlugLen bounds the label/reason slug appended to the timestamp.
	maxSlugLen = 40

	// maxCollisionSuffix bounds how many same-id snapshots can be created
	// before Create gives up. In practice two within one second is rare.
	maxCollisionSuffix = 100
)

// Store reads and writes conversation snapshots under a single directory.
type Store struct {
	dir      string
	logDir   string
	registry *tool.Registry
	bus      *event.Bus
	logger   *logging.Logger
	mu       sync.Mutex
}

// NewStore creates a Store. dir holds snapshot files; logDir holds the
// live message logs snapshots are taken from. registry reconnects tool
// references on load and may be nil. bus and logger are optional.
func NewStore(dir, logDir string, registry *tool.Registry, bus *event.Bus, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{
		dir:      dir,
		logDir:   logDir,
		registry: registry,
		bus:      bus,
		logger:   logger.WithComponent("snapshot"),
	}
}

// SessionID derives the identity used to name a conversation's live log.
// It hashes the working directory together with a sanitized scope token
// so unrelated projects and conversations never share a log.
func SessionID(workDir, scope string) string {
	sum := sha256.Sum256([]byte(workDir + "\x00" + util.SanitizeName(scope)))
	return hex.EncodeToString(sum[:])[:16]
}

// SourcePath returns the live log path a CreateRequest resolves to.
func (s *Store) SourcePath(req CreateRequest) string {
	name := req.MessageLogName
	if req.ForkNumber > 0 {
		name += fmt.Sprintf("-fork-%d", req.ForkNumber)
	}
	if req.SidechainNumber > 0 {
		name += fmt.Sprintf("-sidechain-%d", req.SidechainNumber)
	}
	return filepath.Join(s.logDir, name+".json")
}

// Create reads the live message log named by req and writes an immutable
// snapshot of it. The snapshot id is the creation timestamp plus a slug
// of the label (or reason when no label is given); a numeric suffix
// disambiguates ids created within the same second.
func (s *Store) Create(req CreateRequest) (Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.MessageLogName == "" {
		return Meta{}, fmt.Errorf("message log name is required")
	}
	if req.Reason == "" {
		return Meta{}, fmt.Errorf("snapshot reason is required")
	}

	sourcePath := s.SourcePath(req)
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, fmt.Errorf("%w: %s", kerrors.ErrSourceLogMissing, sourcePath)
		}
		return Meta{}, fmt.Errorf("failed to read message log: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return Meta{}, fmt.Errorf("message log %s is not a message array: %w", sourcePath, err)
	}

	now := time.Now()
	slugSource := req.Label
	if slugSource == "" {
		slugSource = req.Reason
	}
	baseID := now.Format(idTimeLayout) + "-" + util.Slug(slugSource, maxSlugLen)

	meta := Meta{
		CreatedAt:       now,
		Reason:          req.Reason,
		Label:           req.Label,
		MessageLogName:  req.MessageLogName,
		ForkNumber:      req.ForkNumber,
		SidechainNumber: req.SidechainNumber,
		SourcePath:      sourcePath,
		MessageCount:    len(messages),
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return Meta{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	// Exclusive create makes the collision check race-free: a second
	// writer in the same second lands on the next suffix.
	for n := 1; n <= maxCollisionSuffix; n++ {
		id := baseID
		if n > 1 {
			id = fmt.Sprintf("%s-%d", baseID, n)
		}
		meta.ID = id

		payload, err := json.MarshalIndent(Snapshot{Meta: meta, Messages: messages}, "", "  ")
		if err != nil {
			return Meta{}, fmt.Errorf("failed to marshal snapshot: %w", err)
		}

		err = writeExclusive(s.path(id), payload)
		if err == nil {
			s.logger.Info("snapshot created", "id", id, "reason", req.Reason, "messages", len(messages))
			if s.bus != nil {
				s.bus.Publish(event.NewSnapshotCreatedEvent(id, req.Reason, len(messages)))
			}
			return meta, nil
		}
		if !os.IsExist(err) {
			return Meta{}, fmt.Errorf("failed to write snapshot: %w", err)
		}
	}

	return Meta{}, fmt.Errorf("failed to allocate snapshot id for %s", baseID)
}

// List returns snapshot metadata newest-first. Corrupt snapshot files
// are skipped. A non-positive limit returns everything.
func (s *Store) List(limit int) ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var metas []Meta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil || meta.ID == "" {
			s.logger.Warn("skipping corrupt snapshot", "file", entry.Name())
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].CreatedAt.After(metas[j].CreatedAt)
		}
		return metas[i].ID > metas[j].ID
	})

	if limit > 0 && len(metas) > limit {
		metas = metas[:limit]
	}
	return metas, nil
}

// Resolve finds a snapshot by reference. An empty ref returns the most
// recent snapshot. Otherwise resolution tries, in order: exact id,
// unambiguous id prefix, 1-based position in the newest-first listing,
// and case-insensitive label substring.
func (s *Store) Resolve(ref string) (Meta, error) {
	metas, err := s.List(0)
	if err != nil {
		return Meta{}, err
	}
	if len(metas) == 0 {
		return Meta{}, fmt.Errorf("%w: no snapshots exist", kerrors.ErrSnapshotNotFound)
	}

	if ref == "" {
		return metas[0], nil
	}

	for _, m := range metas {
		if m.ID == ref {
			return m, nil
		}
	}

	var prefixMatch *Meta
	prefixCount := 0
	for i := range metas {
		if strings.HasPrefix(metas[i].ID, ref) {
			prefixMatch = &metas[i]
			prefixCount++
		}
	}
	if prefixCount == 1 {
		return *prefixMatch, nil
	}

	if idx, err := strconv.Atoi(ref); err == nil && idx >= 1 && idx <= len(metas) {
		return metas[idx-1], nil
	}

	lowered := strings.ToLower(ref)
	for _, m := range metas {
		if m.Label != "" && strings.Contains(strings.ToLower(m.Label), lowered) {
			return m, nil
		}
	}

	return Meta{}, fmt.Errorf("%w: %q", kerrors.ErrSnapshotNotFound, ref)
}

// LoadMessages resolves ref and deserializes the full snapshot,
// reconnecting each message's tool reference by name so history can be
// replayed. A structurally invalid snapshot file is an error here even
// though List would silently skip it.
func (s *Store) LoadMessages(ref string) (*Snapshot, error) {
	// An exact id names its file directly. This keeps corrupt snapshots
	// loadable by id even though List (and therefore Resolve) skips them,
	// so the caller sees a corruption error rather than a lookup miss.
	id := ref
	if _, err := os.Stat(s.path(ref)); ref == "" || err != nil {
		meta, err := s.Resolve(ref)
		if err != nil {
			return nil, err
		}
		id = meta.ID
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", kerrors.ErrSnapshotCorrupt, id, err)
	}
	if snap.ID == "" {
		return nil, fmt.Errorf("%w: %s: missing id", kerrors.ErrSnapshotCorrupt, id)
	}
	if snap.Messages == nil {
		return nil, fmt.Errorf("%w: %s: missing message array", kerrors.ErrSnapshotCorrupt, id)
	}

	if s.registry != nil {
		for i := range snap.Messages {
			name := snap.Messages[i].ToolName
			if name == "" {
				continue
			}
			if t, ok := s.registry.Lookup(name); ok {
				snap.Messages[i].Tool = t
			} else {
				s.logger.Warn("snapshot references unknown tool", "snapshot", snap.ID, "tool", name)
			}
		}
	}

	return &snap, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+snapshotSuffix)
}

// writeExclusive creates path with O_EXCL so an existing file is never
// overwritten, then drops write permission to keep the snapshot
// read-only on disk.
func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	if err := os.Chmod(path, 0444); err != nil {
		return err
	}
	return nil
}
