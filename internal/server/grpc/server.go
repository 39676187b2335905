// Package grpcserver serves the standard gRPC health protocol and server
// reflection for cmdlog.
package grpcserver

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rzbill/cmdlog/internal/runtime"
	"github.com/rzbill/cmdlog/pkg/log"
)

// ServiceName is the health entry tracking the command log.
const ServiceName = "cmdlog.Log"

// Options configures the server.
type Options struct {
	Logger log.Logger
	// ProbeInterval is how often runtime health is re-checked. Default 1s.
	ProbeInterval time.Duration
}

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger log.Logger
	probe  time.Duration
}

// New constructs a gRPC server and registers services.
func New(rt *runtime.Runtime, opts Options, sopts ...grpc.ServerOption) *Server {
	s := &Server{
		rt:     rt,
		grpc:   grpc.NewServer(sopts...),
		health: health.NewServer(),
		logger: opts.Logger,
		probe:  opts.ProbeInterval,
	}
	if s.logger == nil {
		s.logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	if s.probe <= 0 {
		s.probe = time.Second
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.refresh(context.Background())
	return s
}

// refresh mirrors runtime health onto both the overall and the named service.
func (s *Server) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.rt.CheckHealth(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) watch(ctx context.Context) {
	t := time.NewTicker(s.probe)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.refresh(ctx)
		}
	}
}

// Serve serves on an existing listener until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.lis = l
	wctx, stop := context.WithCancel(ctx)
	defer stop()
	go s.watch(wctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("grpc listening", log.Str("addr", l.Addr().String()))
	return s.Serve(ctx, l)
}

// Close marks every service NOT_SERVING and stops the server.
func (s *Server) Close() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
