package storage

import (
	"context"
	"time"
)

// Entry is the fixed-window state kept for one identifier.
type Entry struct {
	Count   int64     // hits counted in the current window
	ResetAt time.Time // when the current window ends
}

// Expired reports whether the window has ended at now. Expired entries are
// treated as absent by every reader, even if the sweep has not removed them yet.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ResetAt)
}

// Store defines the interface for rate limiter storage backends
type Store interface {
	// Consume opens a fresh window when the stored one is missing or expired,
	// then counts one hit if the count is still below limit. The read, check
	// and increment happen as one atomic step per key.
	// Returns the entry after the operation and whether the hit was counted.
	Consume(ctx context.Context, key string, limit int64, window time.Duration, now time.Time) (Entry, bool, error)

	// Peek returns the live entry for key without modifying anything.
	// found is false when the key is absent or its window has expired.
	Peek(ctx context.Context, key string, now time.Time) (entry Entry, found bool, err error)

	// Delete removes the key from storage
	Delete(ctx context.Context, key string) error

	// Ping checks if the storage is accessible
	Ping(ctx context.Context) error

	// Close releases the storage and stops any background work
	Close() error
}
