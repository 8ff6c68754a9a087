// Package health поднимает gRPC сервер со стандартным сервисом grpc.health.v1.Health.
//
// Статус обновляется по результатам проверки зависимостей: пока проверка
// проходит, сервис отвечает SERVING, иначе NOT_SERVING.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/mindup/internal/lib/sl"
)

// ServiceName имя сервиса, под которым публикуется статус API.
const ServiceName = "mindup.api"

// Probe проверяет зависимости сервиса.
type Probe func(ctx context.Context) error

// Server gRPC сервер проверки состояния.
type Server struct {
	grpcServer *grpc.Server
	health     *grpchealth.Server
	listener   net.Listener
	log        *slog.Logger
}

// New слушает address и регистрирует сервис Health.
func New(address string, log *slog.Logger) (*Server, error) {
	const op = "grpc.health.New"

	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewWithListener(lis, log), nil
}

// NewWithListener регистрирует сервис Health на готовом listener.
func NewWithListener(lis net.Listener, log *slog.Logger) *Server {
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		grpcServer: srv,
		health:     hs,
		listener:   lis,
		log:        log,
	}
}

// SetServing меняет статус сервиса и общий статус сервера.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Monitor вызывает probe каждые interval и обновляет статус до отмены ctx.
func (s *Server) Monitor(ctx context.Context, interval time.Duration, probe Probe) {
	check := func() {
		err := probe(ctx)
		if err != nil {
			s.log.Warn("health probe failed", sl.Err(err))
		}
		s.SetServing(err == nil)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Run обслуживает запросы до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("gRPC health service listening on", slog.String("address", s.listener.Addr().String()))
		errCh <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
