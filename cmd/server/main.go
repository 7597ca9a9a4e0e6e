package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akaash11/portfolio-api/internal/config"
	"github.com/akaash11/portfolio-api/internal/handler"
	"github.com/akaash11/portfolio-api/internal/limiter"
	"github.com/akaash11/portfolio-api/internal/mailer"
	"github.com/akaash11/portfolio-api/internal/middleware"
	"github.com/akaash11/portfolio-api/internal/service"
	"github.com/akaash11/portfolio-api/internal/storage"
	"github.com/akaash11/portfolio-api/internal/transport"
	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()

	cfg := config.Load()

	// Initialize logger
	logger, err := config.InitLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting portfolio API server",
		zap.String("version", "1.0.0"),
		zap.String("address", cfg.ServerAddr()),
		zap.String("rate_limit_backend", cfg.RateLimit.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize rate limit store", zap.Error(err))
	}
	defer store.Close()

	contactLimit := limiter.Config{
		MaxRequests:   cfg.RateLimit.MaxRequests,
		WindowSeconds: cfg.RateLimit.WindowSeconds,
	}
	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Proxy.TrustedProxies)
	if err != nil {
		logger.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	rl := limiter.NewFixedWindow(store, logger, limiter.WithKeyPrefix(cfg.RateLimit.KeyPrefix))

	healthService := service.NewHealthService(store, logger)
	contactService := service.NewContactService(newSender(cfg, logger), service.ContactConfig{
		From: cfg.Mail.FromEmail,
		To:   cfg.Mail.ToEmail,
	}, logger)

	handlers := &transport.ServiceHandlers{
		HealthCheck: handler.NewHealthCheckHandler(healthService, logger),
		Contact:     handler.NewContactHandler(contactService, logger),
		RateLimit:   handler.NewRateLimitHandler(service.NewRateLimitService(rl, contactLimit, logger), logger),
	}

	servers := []transport.Server{
		transport.NewHTTPServer(transport.ServerConfig{
			Address:      cfg.ServerAddr(),
			Logger:       logger,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}, handlers, transport.HTTPOptions{
			Limiter:        rl,
			ContactLimit:   contactLimit,
			TrustedProxies: trustedProxies,
			AdminToken:     cfg.Admin.Token,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}),
	}

	if cfg.GRPC.Enabled {
		servers = append(servers, transport.NewGRPCServer(transport.ServerConfig{
			Address: cfg.GRPCAddr(),
			Logger:  logger,
		}, handlers.HealthCheck, transport.DefaultHealthInterval))
	}

	for _, srv := range servers {
		if err := srv.Start(ctx); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.String("address", srv.Addr()), zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.RateLimit.Backend == config.BackendRedis {
		client, err := config.NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to Redis", zap.String("address", cfg.RedisAddr()))
		return storage.NewRedisStoreWithClient(client), nil
	}

	logger.Warn("Using in-memory rate limit store; counts are not shared between instances")
	return storage.NewMemoryStore(
		storage.WithContext(ctx),
		storage.WithSweepInterval(cfg.RateLimit.SweepInterval),
		storage.WithShardCount(cfg.RateLimit.Shards),
		storage.WithLogger(logger),
	), nil
}

// newSender returns nil when mail is not configured, which makes the contact
// endpoint answer with a configuration error.
func newSender(cfg config.Config, logger *zap.Logger) mailer.Sender {
	if !cfg.MailConfigured() {
		logger.Warn("Mail delivery is not configured", zap.String("provider", cfg.Mail.Provider))
		return nil
	}

	switch cfg.Mail.Provider {
	case config.MailProviderSMTP:
		return mailer.NewSMTPSender(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort, cfg.Mail.SMTPUsername, cfg.Mail.SMTPPassword, logger)
	default:
		return mailer.NewResendSender(cfg.Mail.ResendAPIKey, cfg.Mail.ResendBaseURL, nil, logger)
	}
}
