package handler

import (
	"errors"
	"net/http"

	"github.com/akaash11/portfolio-api/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StatusResponse represents the status of a rate limit
type StatusResponse struct {
	Key            string `json:"key"`
	Success        bool   `json:"success"`
	Remaining      int64  `json:"remaining"`
	ResetInSeconds int64  `json:"reset_in_seconds"`
	Limit          int64  `json:"limit"`
}

// RateLimitHandler handles rate limit admin operations
type RateLimitHandler struct {
	svc    *service.RateLimitService
	logger *zap.Logger
}

// NewRateLimitHandler creates a new rate limit handler
func NewRateLimitHandler(svc *service.RateLimitService, logger *zap.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		svc:    svc,
		logger: logger,
	}
}

// Status handles GET /ratelimit/status/{key} - get status of a rate limit
func (h *RateLimitHandler) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]

		res, err := h.svc.Status(r.Context(), key)
		if err != nil {
			h.handleError(w, key, err)
			return
		}

		writeJSON(w, http.StatusOK, StatusResponse{
			Key:            key,
			Success:        res.Success,
			Remaining:      res.Remaining,
			ResetInSeconds: res.ResetInSeconds,
			Limit:          res.Limit,
		})
	}
}

// Reset handles DELETE /ratelimit/reset/{key} - reset a rate limit
func (h *RateLimitHandler) Reset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]

		if err := h.svc.Reset(r.Context(), key); err != nil {
			h.handleError(w, key, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message": "rate limit reset successfully",
			"key":     key,
		})
	}
}

func (h *RateLimitHandler) handleError(w http.ResponseWriter, key string, err error) {
	if errors.Is(err, service.ErrKeyRequired) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Error("rate limit admin operation failed", zap.String("key", key), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "failed to access rate limit state")
}
