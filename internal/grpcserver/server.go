// Package grpcserver поднимает служебный gRPC-сервер: health-check и reflection.
package grpcserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// ServiceName — имя сервиса в health-протоколе.
const ServiceName = "consulting.core"

const defaultCheckInterval = 10 * time.Second

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	db       *gorm.DB
	logger   *zap.Logger
	interval time.Duration
}

func New(db *gorm.DB, logger *zap.Logger) *Server {
	s := &Server{
		health:   health.NewServer(),
		db:       db,
		logger:   logger,
		interval: defaultCheckInterval,
	}
	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logUnary))
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	return s
}

// WithCheckInterval задаёт период проверки БД.
func (s *Server) WithCheckInterval(d time.Duration) *Server {
	if d > 0 {
		s.interval = d
	}
	return s
}

func (s *Server) logUnary(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug("grpc call",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, err
}

// Check пингует БД и выставляет статус сервиса.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.logger.Warn("health check: database unavailable", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	return st
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Serve слушает addr до отмены ctx.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.logger.Info("grpc server listening", zap.String("addr", addr))
	return s.ServeListener(ctx, lis)
}

// ServeListener обслуживает готовый listener; при отмене ctx — GracefulStop.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	s.Check(ctx)
	go s.watch(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("grpc serve: %w", err)
	}
}
