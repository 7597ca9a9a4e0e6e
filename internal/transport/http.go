package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/akaash11/portfolio-api/internal/limiter"
	"github.com/akaash11/portfolio-api/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// HTTPOptions configures the routes served by HTTPServer.
type HTTPOptions struct {
	// Limiter guards the contact route with ContactLimit per client IP.
	Limiter      limiter.RateLimiter
	ContactLimit limiter.Config

	// TrustedProxies may set the client address via forwarding headers.
	// Nil keys every request by its RemoteAddr.
	TrustedProxies *middleware.TrustedProxies

	// AdminToken enables the /ratelimit admin routes when non-empty.
	AdminToken string

	// AllowedOrigins enables CORS for the listed origins. Empty means no
	// CORS headers are sent.
	AllowedOrigins []string
}

// HTTPServer implements the Server interface for HTTP transport
type HTTPServer struct {
	server   *http.Server
	router   *mux.Router
	address  string
	logger   *zap.Logger
	handlers *ServiceHandlers
	opts     HTTPOptions

	mu       sync.Mutex
	listener net.Listener
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(cfg ServerConfig, handlers *ServiceHandlers, opts HTTPOptions) *HTTPServer {
	router := mux.NewRouter()

	hs := &HTTPServer{
		address:  cfg.Address,
		logger:   cfg.Logger,
		handlers: handlers,
		router:   router,
		opts:     opts,
	}

	hs.registerRoutes()

	hs.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      hs.withCORS(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return hs
}

// registerRoutes registers all HTTP routes
func (hs *HTTPServer) registerRoutes() {
	hs.router.HandleFunc("/health", hs.handlers.HealthCheck.HealthCheck()).Methods(http.MethodGet)

	// Contact route, limited per client before any other work
	rateLimit := middleware.RateLimitMiddleware(hs.opts.Limiter, hs.opts.ContactLimit, middleware.NewIPKeyExtractor(hs.opts.TrustedProxies), hs.logger)
	hs.router.Handle("/api/contact", rateLimit(hs.handlers.Contact.Submit())).Methods(http.MethodPost)

	// Rate limit admin routes
	if hs.opts.AdminToken == "" || hs.handlers.RateLimit == nil {
		hs.logger.Info("admin routes disabled")
		return
	}

	admin := hs.router.PathPrefix("/ratelimit").Subrouter()
	admin.Use(middleware.AdminAuth(hs.opts.AdminToken, hs.logger))
	admin.HandleFunc("/status/{key}", hs.handlers.RateLimit.Status()).Methods(http.MethodGet)
	admin.HandleFunc("/reset/{key}", hs.handlers.RateLimit.Reset()).Methods(http.MethodDelete)
}

func (hs *HTTPServer) withCORS(h http.Handler) http.Handler {
	if len(hs.opts.AllowedOrigins) == 0 {
		return h
	}

	return cors.New(cors.Options{
		AllowedOrigins: hs.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.AdminTokenHeader},
		ExposedHeaders: []string{
			middleware.HeaderLimit,
			middleware.HeaderRemaining,
			middleware.HeaderReset,
			middleware.HeaderRetryAfter,
		},
	}).Handler(h)
}

// Handler returns the root handler including CORS.
func (hs *HTTPServer) Handler() http.Handler {
	return hs.server.Handler
}

// Start starts the HTTP server
func (hs *HTTPServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", hs.address)
	if err != nil {
		hs.logger.Error("Failed to listen on address", zap.String("address", hs.address), zap.Error(err))
		return err
	}

	hs.mu.Lock()
	hs.listener = listener
	hs.mu.Unlock()

	hs.logger.Info("Starting HTTP server", zap.String("address", listener.Addr().String()))

	go func() {
		if err := hs.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (hs *HTTPServer) Stop(ctx context.Context) error {
	hs.logger.Info("Stopping HTTP server")
	return hs.server.Shutdown(ctx)
}

// Addr returns the address the HTTP server is listening on
func (hs *HTTPServer) Addr() string {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.listener != nil {
		return hs.listener.Addr().String()
	}
	return hs.address
}
