package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akaash11/portfolio-api/internal/service"
	"go.uber.org/zap"
)

// maxContactBodyBytes caps the request body; the largest valid submission is
// well under this.
const maxContactBodyBytes = 64 << 10

// ContactResponse is the body of every contact endpoint reply.
type ContactResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ContactHandler handles contact form submissions
type ContactHandler struct {
	svc    *service.ContactService
	logger *zap.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(svc *service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		svc:    svc,
		logger: logger,
	}
}

// Submit handles POST /api/contact
func (h *ContactHandler) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.ContactRequest

		r.Body = http.MaxBytesReader(w, r.Body, maxContactBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ContactResponse{Error: "Invalid request body"})
			return
		}

		err := h.svc.Submit(r.Context(), req)

		var verr *service.ValidationError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, ContactResponse{OK: true})
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, ContactResponse{Error: verr.Message})
		case errors.Is(err, service.ErrValidation):
			writeJSON(w, http.StatusBadRequest, ContactResponse{Error: "Invalid request body"})
		case errors.Is(err, service.ErrMailerNotConfigured):
			writeJSON(w, http.StatusInternalServerError, ContactResponse{Error: "Server configuration error"})
		case errors.Is(err, service.ErrSendFailed):
			writeJSON(w, http.StatusInternalServerError, ContactResponse{Error: "Failed to send email"})
		default:
			h.logger.Error("contact submission failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ContactResponse{Error: "An unexpected error occurred"})
		}
	}
}
