package mailbox

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelhq/kestrel/internal/team"
)

const (
	inboxFile  = "inbox.jsonl"
	outboxFile = "outbox.jsonl"
)

// Store provides file-based mailbox storage. Messages are persisted as
// JSONL (one JSON object per line) in append-only logs; each delivery
// writes the recipient's inbox and the sender's outbox.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store rooted at dir. The directory structure is
// created lazily on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Append persists a message to the recipient's inbox log and the sender's
// outbox log. If msg.ID is empty a unique ID is generated; if CreatedAt is
// zero the current time is used. The populated message is returned.
func (s *Store) Append(msg Message) (Message, error) {
	if msg.From == "" {
		return Message{}, fmt.Errorf("mailbox: message From field is required")
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("mailbox: message To field is required")
	}
	if !ValidateKind(msg.Kind) {
		return Message{}, fmt.Errorf("mailbox: unknown message type %q", msg.Kind)
	}

	teamNorm, err := team.NormalizeName(msg.TeamName)
	if err != nil {
		return Message{}, err
	}
	fromNorm, err := team.NormalizeName(msg.From)
	if err != nil {
		return Message{}, err
	}
	toNorm, err := team.NormalizeName(msg.To)
	if err != nil {
		return Message{}, err
	}
	msg.TeamName, msg.From, msg.To = teamNorm, fromNorm, toNorm

	if msg.ID == "" {
		msg.ID = generateID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("mailbox: marshal message: %w", err)
	}
	data = append(data, '\n')

	inbox := filepath.Join(s.agentDir(teamNorm, toNorm), inboxFile)
	outbox := filepath.Join(s.agentDir(teamNorm, fromNorm), outboxFile)

	if err := s.atomicAppend(inbox, data); err != nil {
		return Message{}, err
	}
	if err := s.atomicAppend(outbox, data); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// ReadInbox returns all messages in an agent's inbox, in append order.
func (s *Store) ReadInbox(teamName, agent string) ([]Message, error) {
	return s.readLog(teamName, agent, inboxFile)
}

// ReadOutbox returns all messages an agent has sent, in append order.
func (s *Store) ReadOutbox(teamName, agent string) ([]Message, error) {
	return s.readLog(teamName, agent, outboxFile)
}

// InboxPath returns the path of an agent's inbox log, for change watchers.
func (s *Store) InboxPath(teamName, agent string) (string, error) {
	teamNorm, err := team.NormalizeName(teamName)
	if err != nil {
		return "", err
	}
	agentNorm, err := team.NormalizeName(agent)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.agentDir(teamNorm, agentNorm), inboxFile), nil
}

// RemoveTeam deletes all mailbox state for a team. Registered with the
// team directory's delete cleanup.
func (s *Store) RemoveTeam(teamName string) error {
	teamNorm, err := team.NormalizeName(teamName)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.dir, teamNorm)); err != nil {
		return fmt.Errorf("mailbox: remove team state: %w", err)
	}
	return nil
}

func (s *Store) agentDir(teamNorm, agentNorm string) string {
	return filepath.Join(s.dir, teamNorm, agentNorm)
}

func (s *Store) readLog(teamName, agent, logName string) ([]Message, error) {
	teamNorm, err := team.NormalizeName(teamName)
	if err != nil {
		return nil, err
	}
	agentNorm, err := team.NormalizeName(agent)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.agentDir(teamNorm, agentNorm), logName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mailbox: open log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var messages []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			// Skip malformed lines rather than failing the whole read
			continue
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mailbox: scan log: %w", err)
	}

	return messages, nil
}

// atomicAppend appends data to a log under a mutex to serialize writers in
// this process; cross-process appenders rely on O_APPEND, which is atomic
// for writes under PIPE_BUF on POSIX systems.
func (s *Store) atomicAppend(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mailbox: create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("mailbox: open log for append: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("mailbox: append to log: %w", err)
	}

	return f.Close()
}

// idCounter provides per-process uniqueness for message IDs.
var idCounter atomic.Uint64

// generateID produces a unique message ID using timestamp, PID, and an
// atomic counter.
func generateID() string {
	return fmt.Sprintf("msg-%d-%d-%d", time.Now().UnixNano(), os.Getpid(), idCounter.Add(1))
}
