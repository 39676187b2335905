package serverrun

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cfgpkg "github.com/rzbill/cmdlog/internal/config"
	"github.com/rzbill/cmdlog/internal/metrics"
	"github.com/rzbill/cmdlog/internal/runtime"
	grpcserver "github.com/rzbill/cmdlog/internal/server/grpc"
	httpserver "github.com/rzbill/cmdlog/internal/server/http"
	"github.com/rzbill/cmdlog/internal/server/tcp"
	"github.com/rzbill/cmdlog/internal/stamper"
	"github.com/rzbill/cmdlog/pkg/id"
	logpkg "github.com/rzbill/cmdlog/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	// Logger overrides the process logger built from Config.LogLevel/LogFormat.
	Logger logpkg.Logger
	// Registry receives the cmdlog collectors; a fresh one with Go and
	// process collectors is used when nil.
	Registry *prometheus.Registry
	// OnReady is called with the bound TCP address once the listener is up.
	OnReady func(addr net.Addr)
}

// Run starts the TCP server, the stamper and the optional HTTP and gRPC
// surfaces, and blocks until ctx is cancelled, SIGINT/SIGTERM arrives or the
// listener fails. Shutdown drains connection workers first, then stops the
// stamper, then the auxiliary servers, and finally tears the store down.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	procLogger := opts.Logger
	if procLogger == nil {
		l, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if err != nil {
			return err
		}
		procLogger = l
	}
	// Pebble and grpc log through the stdlib logger
	logpkg.RedirectStdLog(procLogger)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m, err := metrics.NewPrometheus(reg)
	if err != nil {
		return err
	}

	rt, err := runtime.Open(runtime.Options{
		Config:       cfg,
		Logger:       procLogger,
		StoreMetrics: m,
		DBMetrics:    m,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			procLogger.Error("runtime close failed", logpkg.Err(err))
		}
	}()

	srv := tcp.New(rt.Store(), tcp.Options{
		Addr:           cfg.ListenAddr,
		MaxRecordBytes: cfg.MaxRecordBytes,
		DrainTimeout:   cfg.DrainTimeout.Std(),
		Logger:         procLogger.WithComponent("tcp"),
		Metrics:        m,
		IDs:            id.NewGenerator(),
	})
	if err := srv.Listen(sctx); err != nil {
		return err
	}

	procLogger.Info("Starting cmdlog server",
		logpkg.Str("listen", srv.Addr().String()),
		logpkg.Int("capacity", cfg.Capacity),
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("grpc", cfg.GRPCAddr),
		logpkg.Bool("archive", cfg.ArchiveEnabled),
		logpkg.Bool("timestamps", cfg.TimestampEnabled),
	)

	var stamp *stamper.Task
	if cfg.TimestampEnabled {
		stamp = stamper.New(rt.Store(), stamper.Options{
			Interval: cfg.TimestampInterval.Std(),
			Logger:   procLogger.WithComponent("stamper"),
			Metrics:  m,
		})
		stamp.Start(sctx)
	}

	auxCtx, auxCancel := context.WithCancel(sctx)
	defer auxCancel()
	var wg sync.WaitGroup
	if cfg.HTTPAddr != "" {
		hsrv := httpserver.New(rt, httpserver.Options{
			Logger:  procLogger.WithComponent("http"),
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(auxCtx, cfg.HTTPAddr); err != nil && auxCtx.Err() == nil {
				procLogger.Error("http server failed", logpkg.Err(err))
			}
		}()
	}
	if cfg.GRPCAddr != "" {
		gsrv := grpcserver.New(rt, grpcserver.Options{Logger: procLogger.WithComponent("grpc")})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(auxCtx, cfg.GRPCAddr); err != nil && auxCtx.Err() == nil {
				procLogger.Error("grpc server failed", logpkg.Err(err))
			}
		}()
	}

	if opts.OnReady != nil {
		opts.OnReady(srv.Addr())
	}

	serveErr := srv.Serve(sctx)
	if stamp != nil {
		stamp.Stop()
	}
	auxCancel()
	wg.Wait()
	if serveErr != nil {
		return fmt.Errorf("tcp server: %w", serveErr)
	}
	procLogger.Info("cmdlog server stopped")
	return nil
}
