// Package grpc serves the standard gRPC health-checking protocol for the
// message server. Orchestrators and load balancers probe it; the message
// protocol itself runs over plain TCP (see package tcp).
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the message relay.
const ServiceName = "gophmail.Relay"

// Probe reports whether the server's dependencies are usable.
type Probe func(ctx context.Context) error

type GRPCServer struct {
	address  string
	health   *health.Server
	probe    Probe
	interval time.Duration
	logger   logging.Logger
}

// NewGRPCServer builds a health server for address. probe is run every
// interval; a nil probe always reports serving.
func NewGRPCServer(a string, l logging.Logger, probe Probe, interval time.Duration) *GRPCServer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &GRPCServer{
		address:  a,
		health:   health.NewServer(),
		probe:    probe,
		interval: interval,
		logger:   l.With("module", "grpc_health"),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve runs the health service on lis until ctx is canceled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoveryInterceptor))

	// registers service
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
