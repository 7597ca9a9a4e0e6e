package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akaash11/portfolio-api/internal/limiter"
	"go.uber.org/zap"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// RateLimitMiddleware returns an HTTP middleware that applies rate limiting to requests.
// Every request consumes one action from the identifier returned by keyExtractor
// before the wrapped handler runs.
//
// Allowed and denied responses both carry the X-RateLimit-* headers. Denied
// requests get 429 with Retry-After and a JSON error body and never reach the
// wrapped handler.
//
// If the limiter fails (e.g. redis is unreachable) the request is let through.
//
// Example: 5 submissions per hour per client IP
//
//	mw := RateLimitMiddleware(fw, limiter.DefaultContactConfig, IPKeyExtractor, logger)
func RateLimitMiddleware(rl limiter.RateLimiter, cfg limiter.Config, keyExtractor func(*http.Request) string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract the identifier for this request
			key := keyExtractor(r)

			res, err := rl.Consume(r.Context(), key, cfg)
			if err != nil {
				logger.Error("rate limiter check failed", zap.String("key", key), zap.Error(err))
				// Fail open: allow the request if rate limiter fails
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, res)

			if !res.Success {
				logger.Info("request rate limited",
					zap.String("key", key),
					zap.String("path", r.URL.Path),
					zap.Int64("retry_after", res.ResetInSeconds),
				)
				w.Header().Set(HeaderRetryAfter, strconv.FormatInt(res.ResetInSeconds, 10))
				writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{
					OK:         false,
					Error:      "Too many requests. Please try again later.",
					RetryAfter: res.ResetInSeconds,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type rateLimitedResponse struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error"`
	RetryAfter int64  `json:"retry_after"`
}

func setRateLimitHeaders(w http.ResponseWriter, res limiter.Result) {
	h := w.Header()
	h.Set(HeaderLimit, strconv.FormatInt(res.Limit, 10))
	h.Set(HeaderRemaining, strconv.FormatInt(res.Remaining, 10))
	h.Set(HeaderReset, strconv.FormatInt(res.ResetInSeconds, 10))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
