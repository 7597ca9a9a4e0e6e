package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ContactServiceName is the health service name reported alongside the
// overall ("") status.
const ContactServiceName = "portfolio.Contact"

// DefaultHealthInterval is how often the store is pinged to refresh the
// gRPC serving status.
const DefaultHealthInterval = 5 * time.Second

// GRPCServer implements the Server interface for gRPC transport. It serves
// the standard grpc.health.v1 service, with a serving status that follows the
// rate limit store, plus server reflection.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	address  string
	logger   *zap.Logger
	pinger   Pinger
	interval time.Duration

	mu       sync.Mutex
	listener net.Listener
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewGRPCServer creates a new gRPC server. A non-positive interval selects
// DefaultHealthInterval.
func NewGRPCServer(cfg ServerConfig, pinger Pinger, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}

	gs := &GRPCServer{
		server:   grpc.NewServer(),
		health:   health.NewServer(),
		address:  cfg.Address,
		logger:   cfg.Logger,
		pinger:   pinger,
		interval: interval,
		stop:     make(chan struct{}),
	}

	gs.registerServices()
	return gs
}

// registerServices registers all gRPC services
func (gs *GRPCServer) registerServices() {
	healthpb.RegisterHealthServer(gs.server, gs.health)
	reflection.Register(gs.server)
}

// Start starts the gRPC server
func (gs *GRPCServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", gs.address)
	if err != nil {
		gs.logger.Error("Failed to listen on address", zap.String("address", gs.address), zap.Error(err))
		return err
	}

	gs.Serve(ctx, listener)
	return nil
}

// Serve serves on listener in the background and starts tracking store
// health until ctx is done or Stop is called.
func (gs *GRPCServer) Serve(ctx context.Context, listener net.Listener) {
	gs.mu.Lock()
	gs.listener = listener
	gs.mu.Unlock()

	gs.logger.Info("Starting gRPC server", zap.String("address", listener.Addr().String()))

	gs.updateStatus(ctx)

	gs.wg.Add(1)
	go gs.watchHealth(ctx)

	go func() {
		if err := gs.server.Serve(listener); err != nil {
			gs.logger.Error("gRPC server error", zap.Error(err))
		}
	}()
}

func (gs *GRPCServer) watchHealth(ctx context.Context) {
	defer gs.wg.Done()

	ticker := time.NewTicker(gs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gs.stop:
			return
		case <-ticker.C:
			gs.updateStatus(ctx)
		}
	}
}

func (gs *GRPCServer) updateStatus(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	if gs.pinger == nil {
		status = healthpb.HealthCheckResponse_UNKNOWN
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, gs.interval)
		err := gs.pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			gs.logger.Warn("store ping failed, reporting NOT_SERVING", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	gs.health.SetServingStatus("", status)
	gs.health.SetServingStatus(ContactServiceName, status)
}

// Stop gracefully stops the gRPC server
func (gs *GRPCServer) Stop(ctx context.Context) error {
	gs.logger.Info("Stopping gRPC server")

	gs.stopOnce.Do(func() { close(gs.stop) })
	gs.wg.Wait()
	gs.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		gs.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		gs.server.Stop()
		return ctx.Err()
	}
}

// Addr returns the address the gRPC server is listening on
func (gs *GRPCServer) Addr() string {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.listener != nil {
		return gs.listener.Addr().String()
	}
	return gs.address
}
