package service

import (
	"context"
	"strings"

	"github.com/akaash11/portfolio-api/internal/limiter"
	"go.uber.org/zap"
)

// RateLimitService exposes read and reset access to the contact limiter for
// operators.
type RateLimitService struct {
	limiter limiter.RateLimiter
	cfg     limiter.Config
	logger  *zap.Logger
}

// NewRateLimitService creates a new rate limit service reporting against cfg
func NewRateLimitService(rl limiter.RateLimiter, cfg limiter.Config, logger *zap.Logger) *RateLimitService {
	return &RateLimitService{
		limiter: rl,
		cfg:     cfg,
		logger:  logger,
	}
}

// Status returns the current quota for key without consuming anything.
func (s *RateLimitService) Status(ctx context.Context, key string) (limiter.Result, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return limiter.Result{}, ErrKeyRequired
	}

	return s.limiter.Peek(ctx, key, s.cfg)
}

// Reset clears the quota for key.
func (s *RateLimitService) Reset(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		return err
	}

	s.logger.Info("rate limit reset", zap.String("key", key))
	return nil
}
