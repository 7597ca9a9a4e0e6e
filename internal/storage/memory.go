package storage

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often expired entries are dropped.
	DefaultSweepInterval = 5 * time.Minute
	// DefaultShardCount is the number of independently locked partitions.
	DefaultShardCount = 32
)

// MemoryStore implements Store interface using in-memory storage.
//
// Keys are spread over shards, each with its own mutex, so a consume only
// contends with other keys of the same shard and the sweep never holds more
// than one shard at a time. State is local to the process: several replicas
// each keep their own counts.
type MemoryStore struct {
	shards        []*shard
	now           func() time.Time
	sweepInterval time.Duration
	logger        *zap.Logger
	ctx           context.Context
	stopChan      chan struct{}
	closeOnce     sync.Once
	wg            sync.WaitGroup
}

type shard struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithSweepInterval sets how often expired entries are removed. Zero or a
// negative value disables the background sweep.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(ms *MemoryStore) {
		ms.sweepInterval = d
	}
}

// WithShardCount sets the number of shards. Values below 1 are ignored.
func WithShardCount(n int) MemoryOption {
	return func(ms *MemoryStore) {
		if n > 0 {
			ms.shards = newShards(n)
		}
	}
}

// WithClock replaces the clock used by the sweep.
func WithClock(now func() time.Time) MemoryOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// WithContext ties the sweep goroutine to ctx: cancelling it stops the sweep
// the same way Close does.
func WithContext(ctx context.Context) MemoryOption {
	return func(ms *MemoryStore) {
		if ctx != nil {
			ms.ctx = ctx
		}
	}
}

// WithLogger attaches a logger for sweep diagnostics.
func WithLogger(logger *zap.Logger) MemoryOption {
	return func(ms *MemoryStore) {
		if logger != nil {
			ms.logger = logger
		}
	}
}

// NewMemoryStore creates a new in-memory store and starts its sweep goroutine.
// Call Close to stop it.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	ms := &MemoryStore{
		shards:        newShards(DefaultShardCount),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		logger:        zap.NewNop(),
		ctx:           context.Background(),
		stopChan:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.sweepInterval > 0 {
		ms.wg.Add(1)
		go ms.cleanupExpiredKeys()
	}

	return ms
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{entries: make(map[string]Entry)}
	}
	return shards
}

func (ms *MemoryStore) shardFor(key string) *shard {
	return ms.shards[xxhash.Sum64String(key)%uint64(len(ms.shards))]
}

// cleanupExpiredKeys periodically removes expired keys
func (ms *MemoryStore) cleanupExpiredKeys() {
	defer ms.wg.Done()

	ticker := time.NewTicker(ms.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := ms.removeExpiredKeys()
			if removed > 0 {
				ms.logger.Debug("swept expired rate limit entries", zap.Int("removed", removed))
			}
		case <-ms.stopChan:
			return
		case <-ms.ctx.Done():
			return
		}
	}
}

// removeExpiredKeys drops every expired entry, one shard at a time, and
// returns how many were removed.
func (ms *MemoryStore) removeExpiredKeys() int {
	removed := 0
	for _, sh := range ms.shards {
		now := ms.now()
		sh.mu.Lock()
		for key, e := range sh.entries {
			if e.Expired(now) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Consume implements Store.
func (ms *MemoryStore) Consume(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Entry, bool, error) {
	sh := ms.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, exists := sh.entries[key]
	if !exists || e.Expired(now) {
		e = Entry{Count: 0, ResetAt: now.Add(window)}
	}

	if e.Count >= limit {
		return e, false, nil
	}

	e.Count++
	sh.entries[key] = e

	return e, true, nil
}

// Peek implements Store.
func (ms *MemoryStore) Peek(ctx context.Context, key string, now time.Time) (Entry, bool, error) {
	sh := ms.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, exists := sh.entries[key]
	if !exists || e.Expired(now) {
		return Entry{}, false, nil
	}

	return e, true, nil
}

// Delete removes the key from storage
func (ms *MemoryStore) Delete(ctx context.Context, key string) error {
	sh := ms.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()

	return nil
}

// Len returns the number of stored entries, expired ones included.
func (ms *MemoryStore) Len() int {
	n := 0
	for _, sh := range ms.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Ping checks if the storage is accessible
func (ms *MemoryStore) Ping(ctx context.Context) error {
	// In-memory storage is always accessible
	return nil
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (ms *MemoryStore) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.stopChan)
	})
	ms.wg.Wait()
	return nil
}
