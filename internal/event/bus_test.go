package event

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kestrelhq/kestrel/internal/logging"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var received []Event
	bus.Subscribe("task.created", func(e Event) {
		received = append(received, e)
	})

	bus.Publish(NewTaskCreatedEvent("alpha", 1, "Write report"))
	bus.Publish(NewTeamCreatedEvent("alpha", []string{"lead"}))

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	ev, ok := received[0].(TaskCreatedEvent)
	if !ok {
		t.Fatalf("expected TaskCreatedEvent, got %T", received[0])
	}
	if ev.Team != "alpha" || ev.TaskID != 1 {
		t.Errorf("unexpected event payload: %+v", ev)
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()

	count := 0
	bus.SubscribeAll(func(e Event) { count++ })

	bus.Publish(NewSlotAcquiredEvent(0, 123))
	bus.Publish(NewSlotReleasedEvent(0, 123))

	if count != 2 {
		t.Errorf("wildcard handler called %d times, want 2", count)
	}
}

func TestBus_RegistrationOrder(t *testing.T) {
	bus := NewBus()

	var order []int
	bus.Subscribe("mailbox.message", func(Event) { order = append(order, 1) })
	bus.Subscribe("mailbox.message", func(Event) { order = append(order, 2) })
	bus.Subscribe("mailbox.message", func(Event) { order = append(order, 3) })

	bus.Publish(NewMailboxMessageEvent("alpha", "lead", "b", "msg-1", "message"))

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("handlers ran out of registration order: %v", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.Subscribe("snapshot.created", func(Event) { count++ })

	bus.Publish(NewSnapshotCreatedEvent("snap-1", "manual", 4))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	bus.Publish(NewSnapshotCreatedEvent("snap-2", "manual", 4))

	if count != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", count)
	}

	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe() = true, want false")
	}
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()
	bus.SetLogger(logging.NopLogger())

	called := false
	bus.Subscribe("hook.error", func(Event) { panic("boom") })
	bus.Subscribe("hook.error", func(Event) { called = true })

	bus.Publish(NewHookErrorEvent("audit", "after_tool", "disk full"))

	if !called {
		t.Error("handler after panicking handler was not called")
	}
}

func TestBus_PanicIsReportedThroughInjectedLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := logging.NewLogger(dir, logging.LevelError)
	if err != nil {
		t.Fatal(err)
	}

	bus := NewBus()
	bus.SetLogger(logger)
	bus.Subscribe("hook.error", func(Event) { panic("boom") })
	bus.Publish(NewHookErrorEvent("audit", "after_tool", "disk full"))

	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatalf("debug.log missing: %v", err)
	}
	if !strings.Contains(string(data), "event handler panicked") {
		t.Errorf("panic report not logged: %s", data)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewToolStartedEvent("bash"))
		}()
	}
	wg.Wait()

	if count != 10 {
		t.Errorf("handler called %d times, want 10", count)
	}
}

func TestBus_ClearAndCount(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("a", func(Event) {})
	bus.Subscribe("b", func(Event) {})

	if got := bus.SubscriptionCount(); got != 2 {
		t.Errorf("SubscriptionCount() = %d, want 2", got)
	}

	bus.Clear()
	if got := bus.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", got)
	}
}
