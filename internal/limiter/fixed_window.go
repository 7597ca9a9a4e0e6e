package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/akaash11/portfolio-api/internal/storage"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces limiter entries inside the store.
const DefaultKeyPrefix = "limiter:fixed_window:"

// FixedWindow implements the Fixed Window (Counting) rate limiting algorithm.
//
// How it works:
// 1. The first counted action for an identifier opens a window of
// WindowSeconds
// 2. Every allowed action inside the window increments the count
// 3. Once the count reaches MaxRequests further actions are denied
// 4. The first action at or after the window end opens a fresh window
//
// Up to 2x MaxRequests can slip through around a window boundary (a burst at
// the end of one window followed by a burst at the start of the next).
//
// The read, check and increment run inside the store as one atomic step, so
// concurrent callers for the same identifier can never be admitted past the
// limit.
type FixedWindow struct {
	store     storage.Store
	logger    *zap.Logger
	now       func() time.Time
	keyPrefix string
}

// Option configures a FixedWindow
type Option func(*FixedWindow)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(fw *FixedWindow) {
		if now != nil {
			fw.now = now
		}
	}
}

// WithKeyPrefix sets the prefix prepended to identifiers in the store.
func WithKeyPrefix(prefix string) Option {
	return func(fw *FixedWindow) {
		fw.keyPrefix = prefix
	}
}

// NewFixedWindow creates a new Fixed Window rate limiter on top of store.
//
// Example: 5 contact submissions per hour
//
//	fw := NewFixedWindow(store, logger)
//	res, err := fw.Consume(ctx, ip, Config{MaxRequests: 5, WindowSeconds: 3600})
func NewFixedWindow(store storage.Store, logger *zap.Logger, opts ...Option) *FixedWindow {
	fw := &FixedWindow{
		store:     store,
		logger:    logger,
		now:       time.Now,
		keyPrefix: DefaultKeyPrefix,
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Consume counts one action for identifier under cfg.
func (fw *FixedWindow) Consume(ctx context.Context, identifier string, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	now := fw.now()
	entry, allowed, err := fw.store.Consume(ctx, fw.stateKey(identifier), cfg.MaxRequests, cfg.Window(), now)
	if err != nil {
		fw.logger.Error("failed to consume fixed window", zap.String("identifier", identifier), zap.Error(err))
		return Result{}, fmt.Errorf("consume fixed window: %w", err)
	}

	res := Result{
		Success:        allowed,
		ResetInSeconds: secondsUntil(entry.ResetAt, now),
		Limit:          cfg.MaxRequests,
	}
	if allowed {
		res.Remaining = max(0, cfg.MaxRequests-entry.Count)
	} else {
		fw.logger.Debug("fixed window limit reached",
			zap.String("identifier", identifier),
			zap.Int64("count", entry.Count),
			zap.Int64("reset_in_seconds", res.ResetInSeconds),
		)
	}

	return res, nil
}

// Peek reports the current state for identifier without changing it.
// An absent or expired entry reads as a full, fresh window.
func (fw *FixedWindow) Peek(ctx context.Context, identifier string, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	now := fw.now()
	entry, found, err := fw.store.Peek(ctx, fw.stateKey(identifier), now)
	if err != nil {
		fw.logger.Error("failed to peek fixed window", zap.String("identifier", identifier), zap.Error(err))
		return Result{}, fmt.Errorf("peek fixed window: %w", err)
	}

	if !found {
		return Result{
			Success:        true,
			Remaining:      cfg.MaxRequests,
			ResetInSeconds: cfg.WindowSeconds,
			Limit:          cfg.MaxRequests,
		}, nil
	}

	remaining := max(0, cfg.MaxRequests-entry.Count)
	return Result{
		Success:        remaining > 0,
		Remaining:      remaining,
		ResetInSeconds: secondsUntil(entry.ResetAt, now),
		Limit:          cfg.MaxRequests,
	}, nil
}

// Reset clears the fixed window state for a specific identifier.
func (fw *FixedWindow) Reset(ctx context.Context, identifier string) error {
	if err := fw.store.Delete(ctx, fw.stateKey(identifier)); err != nil {
		fw.logger.Error("failed to reset fixed window state", zap.String("identifier", identifier), zap.Error(err))
		return fmt.Errorf("reset fixed window state: %w", err)
	}
	return nil
}

// stateKey generates the store key for identifier
func (fw *FixedWindow) stateKey(identifier string) string {
	return fw.keyPrefix + identifier
}
