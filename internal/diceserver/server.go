package diceserver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/roll/internal/config"
	"github.com/cory-johannsen/roll/internal/diceserver/dicev1"
)

// Server hosts DiceService and the standard health service.
type Server struct {
	cfg    config.GRPCConfig
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer builds a gRPC server with tracing, request-ID and logging
// interceptors and registers svc on it.
//
// Precondition: svc and logger must be non-nil.
// Postcondition: Health reports SERVING for "" and roll.v1.DiceService.
func NewServer(cfg config.GRPCConfig, svc dicev1.DiceServiceServer, logger *zap.Logger) *Server {
	gs := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			RequestIDInterceptor(),
			LoggingInterceptor(logger),
		),
	)
	hs := health.NewServer()
	dicev1.RegisterDiceServiceServer(gs, svc)
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(dicev1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{cfg: cfg, grpc: gs, health: hs, logger: logger}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	s.logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serving gRPC: %w", err)
	}
	return nil
}

// Start listens on the configured address and serves until Stop is called.
// It satisfies server.Service.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains in-flight calls.
//
// Postcondition: Serve has returned or will return promptly.
func (s *Server) Stop() {
	start := time.Now()
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Info("grpc server stopped", zap.Duration("elapsed", time.Since(start)))
}

// Addr returns the listening address, or "" before Serve.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
