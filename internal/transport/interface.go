package transport

import (
	"context"
	"time"

	"github.com/akaash11/portfolio-api/internal/handler"
	"go.uber.org/zap"
)

// Server defines the interface for different transport implementations (HTTP, gRPC, etc.)
type Server interface {
	// Start starts the transport server
	Start(ctx context.Context) error

	// Stop gracefully stops the transport server
	Stop(ctx context.Context) error

	// Addr returns the address the server is listening on
	Addr() string
}

// ServerConfig contains common configuration for all transport servers
type ServerConfig struct {
	Address      string      // Address to listen on (e.g., "localhost:8080" or ":50051")
	Logger       *zap.Logger // Shared logger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ServiceHandlers contains all service handlers. RateLimit may be nil when
// the admin routes are disabled.
type ServiceHandlers struct {
	HealthCheck *handler.HealthCheckHandler
	Contact     *handler.ContactHandler
	RateLimit   *handler.RateLimitHandler
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
