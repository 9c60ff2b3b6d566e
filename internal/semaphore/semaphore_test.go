package semaphore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/internal/kerrors"
)

func newTestLimiter(t *testing.T, max int) *Limiter {
	t.Helper()
	return NewLimiter(Config{
		Dir:           t.TempDir(),
		MaxConcurrent: max,
		StaleAfter:    DefaultStaleAfter,
		PollInterval:  10 * time.Millisecond,
	}, nil, nil)
}

func TestLimiter_CardinalityBound(t *testing.T) {
	l := newTestLimiter(t, 2)

	s1, ok := l.TryAcquire()
	if !ok {
		t.Fatal("first TryAcquire failed")
	}
	s2, ok := l.TryAcquire()
	if !ok {
		t.Fatal("second TryAcquire failed")
	}
	if _, ok := l.TryAcquire(); ok {
		t.Fatal("third TryAcquire succeeded with max=2")
	}

	held, max := l.Status()
	if held != 2 || max != 2 {
		t.Errorf("Status() = (%d, %d), want (2, 2)", held, max)
	}

	if err := s1.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, ok := l.TryAcquire(); !ok {
		t.Error("TryAcquire failed after a release freed a slot")
	}
	_ = s2.Release()
}

func TestLimiter_ThirdAcquireBlocksUntilRelease(t *testing.T) {
	l := newTestLimiter(t, 2)

	ctx := context.Background()
	s1, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	s2, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	acquired := make(chan *Slot, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s, err := l.Acquire(ctx)
		if err != nil {
			t.Errorf("blocked Acquire() error = %v", err)
			return
		}
		acquired <- s
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire resolved before any release")
	case <-time.After(50 * time.Millisecond):
	}

	if err := s1.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	select {
	case s := <-acquired:
		_ = s.Release()
	case <-time.After(2 * time.Second):
		t.Fatal("third acquire did not resolve after release")
	}

	wg.Wait()
	_ = s2.Release()
}

func TestLimiter_StaleSlotReclaimed(t *testing.T) {
	dir := t.TempDir()
	l := NewLimiter(Config{
		Dir:           dir,
		MaxConcurrent: 1,
		StaleAfter:    100 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
	}, nil, nil)

	s, ok := l.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire failed on empty semaphore")
	}

	// Backdate the token past the staleness threshold, simulating a
	// crashed holder that never released.
	old := time.Now().Add(-time.Second)
	if err := os.Chtimes(s.path, old, old); err != nil {
		t.Fatalf("backdating token: %v", err)
	}

	// The reclaiming sweep removes the stale token but does not retry the
	// slot in the same pass; the next sweep gets it.
	if _, ok := l.TryAcquire(); ok {
		t.Fatal("reclaiming sweep should not grant the reclaimed slot")
	}
	s2, ok := l.TryAcquire()
	if !ok {
		t.Fatal("slot not acquirable after stale reclamation")
	}
	_ = s2.Release()
}

func TestLimiter_FreshSlotNotReclaimed(t *testing.T) {
	l := newTestLimiter(t, 1)

	s, ok := l.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire failed")
	}
	defer func() { _ = s.Release() }()

	if _, ok := l.TryAcquire(); ok {
		t.Error("fresh token was reclaimed")
	}
}

func TestLimiter_AcquireCancellation(t *testing.T) {
	l := newTestLimiter(t, 1)

	s, ok := l.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire failed")
	}
	defer func() { _ = s.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	got, err := l.Acquire(ctx)
	if got != nil {
		t.Error("cancelled Acquire returned a slot")
	}
	if !kerrors.Is(err, kerrors.ErrAcquireCancelled) {
		t.Errorf("err = %v, want ErrAcquireCancelled", err)
	}

	// The blocked acquirer must not have left a token behind.
	held, _ := l.Status()
	if held != 1 {
		t.Errorf("held = %d after cancelled acquire, want 1", held)
	}
}

func TestLimiter_ReleaseIsIdempotentOnMissingToken(t *testing.T) {
	l := newTestLimiter(t, 1)

	s, ok := l.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire failed")
	}
	if err := s.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := s.Release(); err != nil {
		t.Errorf("second Release() error = %v, want nil", err)
	}
}

func TestLimiter_TokenRecordsHolder(t *testing.T) {
	dir := t.TempDir()
	l := NewLimiter(Config{Dir: dir, MaxConcurrent: 1}, nil, nil)

	s, ok := l.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire failed")
	}
	defer func() { _ = s.Release() }()

	data, err := os.ReadFile(filepath.Join(dir, "slot-0.lock"))
	if err != nil {
		t.Fatalf("reading token: %v", err)
	}
	if len(data) == 0 {
		t.Error("token file is empty, want holder info")
	}
}
