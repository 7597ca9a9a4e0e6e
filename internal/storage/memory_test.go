package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStoreConsume(t *testing.T) {
	ms := NewMemoryStore(WithSweepInterval(0))
	defer ms.Close()

	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 3; i++ {
		entry, ok, err := ms.Consume(ctx, "counter", 3, time.Minute, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("hit %d should be counted", i)
		}
		if entry.Count != i {
			t.Errorf("expected count %d, got %d", i, entry.Count)
		}
		if !entry.ResetAt.Equal(now.Add(time.Minute)) {
			t.Errorf("expected reset at %v, got %v", now.Add(time.Minute), entry.ResetAt)
		}
	}

	// Limit reached: denied and not incremented
	entry, ok, err := ms.Consume(ctx, "counter", 3, time.Minute, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("4th hit should be denied")
	}
	if entry.Count != 3 {
		t.Errorf("expected count to stay at 3, got %d", entry.Count)
	}
}

func TestMemoryStoreConsume_NewWindowAtResetAt(t *testing.T) {
	ms := NewMemoryStore(WithSweepInterval(0))
	defer ms.Close()

	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if _, _, err := ms.Consume(ctx, "key", 2, time.Minute, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Exactly at the reset instant the old window is over
	later := now.Add(time.Minute)
	entry, ok, err := ms.Consume(ctx, "key", 2, time.Minute, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("first hit of a new window should be counted")
	}
	if entry.Count != 1 {
		t.Errorf("expected count 1, got %d", entry.Count)
	}
	if !entry.ResetAt.Equal(later.Add(time.Minute)) {
		t.Errorf("expected reset at %v, got %v", later.Add(time.Minute), entry.ResetAt)
	}
}

func TestMemoryStorePeek(t *testing.T) {
	ms := NewMemoryStore(WithSweepInterval(0))
	defer ms.Close()

	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, found, err := ms.Peek(ctx, "missing", now); err != nil || found {
		t.Fatalf("expected missing key to be absent, found=%v err=%v", found, err)
	}
	if ms.Len() != 0 {
		t.Errorf("peek must not create entries, have %d", ms.Len())
	}

	if _, _, err := ms.Consume(ctx, "key", 5, time.Minute, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, found, err := ms.Peek(ctx, "key", now.Add(30*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || entry.Count != 1 {
		t.Errorf("expected live entry with count 1, got found=%v count=%d", found, entry.Count)
	}

	// Expired but not yet swept
	if _, found, _ := ms.Peek(ctx, "key", now.Add(time.Minute)); found {
		t.Error("expired entry should read as absent")
	}
	if ms.Len() != 1 {
		t.Errorf("peek must not remove entries, have %d", ms.Len())
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ms := NewMemoryStore(WithSweepInterval(0))
	defer ms.Close()

	ctx := context.Background()
	now := time.Now()

	if _, _, err := ms.Consume(ctx, "key", 1, time.Minute, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := ms.Delete(ctx, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Deleting twice is fine
	if err := ms.Delete(ctx, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, found, _ := ms.Peek(ctx, "key", now); found {
		t.Error("expected key to be deleted")
	}

	_, ok, err := ms.Consume(ctx, "key", 1, time.Minute, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("hit after delete should be counted")
	}
}

func TestMemoryStoreRemoveExpiredKeys(t *testing.T) {
	clock := newFakeClock()
	ms := NewMemoryStore(WithSweepInterval(0), WithClock(clock.Now), WithShardCount(4))
	defer ms.Close()

	ctx := context.Background()
	now := clock.Now()

	for i := 0; i < 10; i++ {
		if _, _, err := ms.Consume(ctx, fmt.Sprintf("short-%d", i), 5, time.Minute, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, _, err := ms.Consume(ctx, "long", 5, time.Hour, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if removed := ms.removeExpiredKeys(); removed != 0 {
		t.Errorf("nothing should expire yet, removed %d", removed)
	}

	clock.Advance(time.Minute)

	if removed := ms.removeExpiredKeys(); removed != 10 {
		t.Errorf("expected 10 entries removed, got %d", removed)
	}
	if ms.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", ms.Len())
	}
}

func TestMemoryStoreBackgroundSweep(t *testing.T) {
	clock := newFakeClock()
	ms := NewMemoryStore(WithSweepInterval(10*time.Millisecond), WithClock(clock.Now))
	defer ms.Close()

	ctx := context.Background()
	if _, _, err := ms.Consume(ctx, "key", 5, time.Second, clock.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(2 * time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for ms.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired entry was not swept")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemoryStoreSweepStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ms := NewMemoryStore(WithSweepInterval(time.Millisecond), WithContext(ctx))

	cancel()

	done := make(chan struct{})
	go func() {
		ms.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep goroutine did not stop after context cancel")
	}

	// Close after cancel must not block or panic
	if err := ms.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryStoreCloseIdempotent(t *testing.T) {
	ms := NewMemoryStore()

	if err := ms.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ms.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMemoryStoreConcurrentConsume(t *testing.T) {
	ms := NewMemoryStore(WithSweepInterval(0))
	defer ms.Close()

	ctx := context.Background()
	now := time.Now()

	const (
		limit   = 50
		workers = 200
	)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := ms.Consume(ctx, "shared", limit, time.Minute, now)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != limit {
		t.Errorf("expected exactly %d admitted hits, got %d", limit, got)
	}

	entry, found, _ := ms.Peek(ctx, "shared", now)
	if !found || entry.Count != limit {
		t.Errorf("expected stored count %d, got found=%v count=%d", limit, found, entry.Count)
	}
}

func TestMemoryStorePing(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()

	if err := ms.Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
