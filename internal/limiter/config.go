package limiter

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a Config has a non-positive field.
var ErrInvalidConfig = errors.New("invalid rate limit config")

// Config describes one limit: at most MaxRequests actions per WindowSeconds.
type Config struct {
	MaxRequests   int64 `json:"max_requests"`
	WindowSeconds int64 `json:"window_seconds"`
}

// DefaultContactConfig is the limit applied to contact form submissions.
var DefaultContactConfig = Config{MaxRequests: 5, WindowSeconds: 3600}

// Validate checks that both fields are positive.
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: max_requests must be greater than 0, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds must be greater than 0, got %d", ErrInvalidConfig, c.WindowSeconds)
	}
	return nil
}

// Window returns the window length as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Result is the outcome of a Consume or Peek.
type Result struct {
	Success        bool  `json:"success"`
	Remaining      int64 `json:"remaining"`
	ResetInSeconds int64 `json:"reset_in_seconds"`
	Limit          int64 `json:"limit"`
}

// secondsUntil rounds the time left before resetAt up to whole seconds.
func secondsUntil(resetAt, now time.Time) int64 {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
