package service

import (
	"context"
	"time"

	"github.com/akaash11/portfolio-api/internal/storage"
	"go.uber.org/zap"
)

// HealthService provides health check functionality
type HealthService struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewHealthService creates a new health service
func NewHealthService(store storage.Store, logger *zap.Logger) *HealthService {
	return &HealthService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetHealthStatus reports whether the rate limit store answers a ping.
func (s *HealthService) GetHealthStatus(ctx context.Context) (status string, timestamp string, err error) {
	timestamp = s.now().UTC().Format(time.RFC3339)

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("rate limit store ping failed", zap.Error(err))
		return HealthStatusUnhealthy, timestamp, err
	}

	return HealthStatusHealthy, timestamp, nil
}

// Ping verifies connectivity with the underlying store
func (s *HealthService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
