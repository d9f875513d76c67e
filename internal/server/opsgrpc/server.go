// Package opsgrpc runs the edge's operational gRPC endpoint. It exposes the
// standard grpc.health.v1 service so orchestrators can probe readiness.
package opsgrpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/abateiq-edge/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceEdge is the health service name that reflects whether the edge
// has anything to do besides serving static files.
const ServiceEdge = "edge"

type Server struct {
	address string
	health  *health.Server
	logger  logging.Logger
}

// New creates a server whose overall status is SERVING and whose "edge"
// status follows ready.
func New(address string, ready bool, l logging.Logger) *Server {
	s := &Server{
		address: address,
		health:  health.NewServer(),
		logger:  l.With("module", "ops_grpc"),
	}
	s.SetReady(ready)
	return s
}

// SetReady flips the "edge" service status.
func (s *Server) SetReady(ready bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceEdge, st)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping ops gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting ops gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
