package handler

import (
	"context"
	"net/http"

	"github.com/akaash11/portfolio-api/internal/service"
	"go.uber.org/zap"
)

// StoreUnavailable is reported by /health instead of the raw store error.
const StoreUnavailable = "store unavailable"

type HealthCheckHandler struct {
	svc    *service.HealthService
	logger *zap.Logger
}

func NewHealthCheckHandler(svc *service.HealthService, logger *zap.Logger) *HealthCheckHandler {
	return &HealthCheckHandler{
		svc:    svc,
		logger: logger,
	}
}

// HealthCheck handles GET /health
func (h *HealthCheckHandler) HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, timestamp, err := h.svc.GetHealthStatus(r.Context())

		body := map[string]string{
			"status": status,
			"time":   timestamp,
		}

		if err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			body["error"] = StoreUnavailable
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}

		writeJSON(w, http.StatusOK, body)
	}
}

// Ping verifies connectivity with the underlying store for non-HTTP health checks.
func (h *HealthCheckHandler) Ping(ctx context.Context) error {
	return h.svc.Ping(ctx)
}
