package mailbox

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelhq/kestrel/internal/event"
	"github.com/kestrelhq/kestrel/internal/kerrors"
	"github.com/kestrelhq/kestrel/internal/logging"
	"github.com/kestrelhq/kestrel/internal/team"
)

// defaultPollInterval is the default interval for the Watch poller.
const defaultPollInterval = 500 * time.Millisecond

// Roster resolves a team's agent names. The team directory provides the
// real implementation; broadcasts use it to fan out.
type Roster func(teamName string) ([]string, error)

// Mailbox provides the high-level interface for inter-agent messaging:
// validated sends, team broadcasts, and a poll-based inbox watcher.
type Mailbox struct {
	store        *Store
	roster       Roster
	bus          *event.Bus
	logger       *logging.Logger
	pollInterval time.Duration
}

// NewMailbox creates a Mailbox backed by a file store rooted at dir.
// roster is required for Broadcast; bus and logger are optional.
func NewMailbox(dir string, roster Roster, bus *event.Bus, logger *logging.Logger) *Mailbox {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Mailbox{
		store:        NewStore(dir),
		roster:       roster,
		bus:          bus,
		logger:       logger.WithComponent("mailbox"),
		pollInterval: defaultPollInterval,
	}
}

// SetPollInterval configures the interval between Watch polls.
// Must be called before Watch. Zero or negative values are ignored.
func (m *Mailbox) SetPollInterval(d time.Duration) {
	if d > 0 {
		m.pollInterval = d
	}
}

// Send appends one message to the recipient's inbox log and the sender's
// outbox log, returning the assigned message ID.
func (m *Mailbox) Send(teamName, from, to string, kind Kind, content string, fields Fields) (string, error) {
	msg, err := m.store.Append(Message{
		TeamName:  teamName,
		From:      from,
		To:        to,
		Kind:      kind,
		Content:   content,
		Summary:   fields.Summary,
		RequestID: fields.RequestID,
		Approve:   fields.Approve,
	})
	if err != nil {
		return "", err
	}

	m.logger.Debug("message sent",
		"team", msg.TeamName, "from", msg.From, "to", msg.To, "kind", string(msg.Kind))
	if m.bus != nil {
		m.bus.Publish(event.NewMailboxMessageEvent(msg.TeamName, msg.From, msg.To, msg.ID, string(msg.Kind)))
	}
	return msg.ID, nil
}

// Broadcast resolves all team agents except the sender and sends one
// independent message (distinct ID) per recipient. Fails with
// ErrNoRecipients when no eligible recipient exists.
func (m *Mailbox) Broadcast(teamName, from, content string) ([]string, error) {
	if m.roster == nil {
		return nil, fmt.Errorf("mailbox: no roster configured for broadcast")
	}

	agents, err := m.roster(teamName)
	if err != nil {
		return nil, err
	}

	// The roster holds normalized names; normalize the sender the same way
	// Send does before excluding it.
	fromNorm, err := team.NormalizeName(from)
	if err != nil {
		return nil, err
	}

	var recipients []string
	for _, a := range agents {
		if a != fromNorm {
			recipients = append(recipients, a)
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: team %s", kerrors.ErrNoRecipients, teamName)
	}

	ids := make([]string, 0, len(recipients))
	for _, to := range recipients {
		id, err := m.Send(teamName, from, to, KindBroadcast, content, Fields{})
		if err != nil {
			return ids, fmt.Errorf("broadcast to %s: %w", to, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReadInbox returns the full contents of an agent's append-only inbox log,
// in append order. There is no acknowledgement primitive; consumers track
// their own read offset.
func (m *Mailbox) ReadInbox(teamName, agent string) ([]Message, error) {
	return m.store.ReadInbox(teamName, agent)
}

// ReadOutbox returns everything an agent has sent, in append order.
func (m *Mailbox) ReadOutbox(teamName, agent string) ([]Message, error) {
	return m.store.ReadOutbox(teamName, agent)
}

// RemoveTeam deletes all mailbox state for a team.
func (m *Mailbox) RemoveTeam(teamName string) error {
	return m.store.RemoveTeam(teamName)
}

// maxWatchErrors is the number of consecutive read errors before the
// watcher logs at error level. Individual failures are expected
// (transient I/O); sustained failures indicate a real problem.
const maxWatchErrors = 5

// Watch polls an agent's inbox and invokes handler for each message
// appended after the initial snapshot, in append order. It returns a
// cancel function that stops the watcher and waits for it to exit.
func (m *Mailbox) Watch(teamName, agent string, handler func(Message)) (cancel func()) {
	var stopped atomic.Bool
	var wg sync.WaitGroup

	// Take the initial snapshot synchronously so any Send after Watch
	// returns is guaranteed to be seen by the poller.
	seen := 0
	if msgs, err := m.ReadInbox(teamName, agent); err == nil {
		seen = len(msgs)
	}
	// On snapshot failure start from 0: re-delivering existing messages
	// is safer than silently skipping them.

	wake, stopWake := m.newWaker(teamName, agent)

	wg.Add(1)
	go func() {
		defer wg.Done()
		consecutiveErrors := 0
		for !stopped.Load() {
			select {
			case <-time.After(m.pollInterval):
			case <-wake:
			}
			if stopped.Load() {
				return
			}

			messages, err := m.ReadInbox(teamName, agent)
			if err != nil {
				consecutiveErrors++
				if consecutiveErrors >= maxWatchErrors {
					m.logger.Error("inbox watch failing",
						"team", teamName, "agent", agent, "error", err.Error())
					consecutiveErrors = 0
				}
				continue
			}
			consecutiveErrors = 0

			if len(messages) > seen {
				for _, msg := range messages[seen:] {
					handler(msg)
				}
				seen = len(messages)
			}
		}
	}()

	return func() {
		stopped.Store(true)
		stopWake()
		wg.Wait()
	}
}
