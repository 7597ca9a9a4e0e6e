package limiter

import "context"

// RateLimiter enforces "at most N actions per identifier per window".
//
// Error Handling Behavior (Fail-Open)
// Over-limit is reported through Result.Success, never as an error. Errors
// mean the config was rejected (ErrInvalidConfig) or the backing store
// failed; callers sitting in a request path are expected to fail open on the
// latter.
type RateLimiter interface {
	// Consume counts one action for identifier if the window still has room.
	Consume(ctx context.Context, identifier string, cfg Config) (Result, error)

	// Peek reports what Consume would see without counting anything or
	// creating state.
	Peek(ctx context.Context, identifier string, cfg Config) (Result, error)

	// Reset clears the state for identifier. Resetting an unknown
	// identifier is not an error.
	Reset(ctx context.Context, identifier string) error
}
