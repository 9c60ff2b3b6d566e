package mailbox

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// newWaker returns a channel that fires when the agent's inbox log
// changes, letting Watch react ahead of its next poll tick. The returned
// stop function releases the underlying filesystem watcher.
//
// The waker is best-effort: on any setup failure it returns a nil channel
// (which never fires) and polling alone drives delivery.
func (m *Mailbox) newWaker(teamName, agent string) (<-chan struct{}, func()) {
	nop := func() {}

	path, err := m.store.InboxPath(teamName, agent)
	if err != nil {
		return nil, nop
	}

	// fsnotify watches directories; the inbox file may not exist yet.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nop
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Debug("fsnotify unavailable, polling only", "error", err.Error())
		return nil, nop
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, nop
	}

	wake := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == path && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return wake, func() { _ = w.Close() }
}
