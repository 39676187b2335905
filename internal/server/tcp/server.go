package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rzbill/cmdlog/pkg/log"
)

// State is the lifecycle phase of a Server.
type State int32

const (
	StateStarting State = iota
	StateListening
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Server accepts connections and spawns one worker goroutine per connection.
type Server struct {
	store Store
	opts  Options

	state atomic.Int32

	mu  sync.Mutex
	lis net.Listener
}

// New returns a Server in StateStarting.
func New(store Store, opts Options) *Server {
	opts.withDefaults()
	return &Server{store: store, opts: opts}
}

// State returns the current lifecycle phase.
func (s *Server) State() State { return State(s.state.Load()) }

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// Listen binds the listening socket with SO_REUSEADDR set.
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	lc := net.ListenConfig{Control: reuseAddr}
	lis, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.lis = lis
	s.state.Store(int32(StateListening))
	s.opts.Logger.Info("listening", log.Str("addr", lis.Addr().String()))
	return nil
}

// Serve runs the accept loop until ctx is done or Accept fails, then closes
// the listener and joins every worker. It returns nil after a requested
// shutdown and the Accept error otherwise.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		s.state.Store(int32(StateStopped))
		return err
	}
	s.mu.Lock()
	lis := s.lis
	s.mu.Unlock()

	var stopping atomic.Bool
	stopWatch := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case <-ctx.Done():
			stopping.Store(true)
			_ = lis.Close()
		case <-stopWatch:
		}
	}()

	// workers keep appending under a shutdown signal; only the drain timeout
	// cuts them off
	workCtx := context.WithoutCancel(ctx)

	var (
		workers  []*worker
		serveErr error
	)
	for {
		conn, err := lis.Accept()
		if err != nil {
			if stopping.Load() {
				break
			}
			s.opts.Logger.Error("accept failed", log.Err(err))
			serveErr = fmt.Errorf("accept: %w", err)
			break
		}
		w := newWorker(s.opts.IDs.Next(), conn)
		logger := s.opts.Logger.With(log.Str("worker", w.id.Short()))
		logger.Info("accepted connection", log.Str("peer", conn.RemoteAddr().String()))
		go w.run(workCtx, s.store, s.opts.MaxRecordBytes, logger, s.opts.Metrics)
		workers = reap(append(workers, w))
		s.opts.Metrics.ObserveInflight(len(workers))
	}

	s.state.Store(int32(StateShuttingDown))
	close(stopWatch)
	<-watchDone
	_ = lis.Close()

	s.opts.Logger.Info("shutting down", log.Int("inflight", len(workers)))
	s.drain(workers)
	s.opts.Metrics.ObserveInflight(0)
	s.state.Store(int32(StateStopped))
	s.opts.Logger.Info("stopped")
	return serveErr
}

// reap joins and drops completed workers, keeping order.
func reap(workers []*worker) []*worker {
	kept := workers[:0]
	for _, w := range workers {
		if w.complete.Load() {
			<-w.done
			continue
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(workers); i++ {
		workers[i] = nil
	}
	return kept
}

// drain joins every worker. Once DrainTimeout elapses the remaining
// connections are closed so blocked reads return; those workers are still
// joined.
func (s *Server) drain(workers []*worker) {
	var timeout <-chan time.Time
	if s.opts.DrainTimeout > 0 {
		t := time.NewTimer(s.opts.DrainTimeout)
		defer t.Stop()
		timeout = t.C
	}
	for i, w := range workers {
		select {
		case <-w.done:
		case <-timeout:
			s.opts.Logger.Warn("drain timeout; closing worker connections", log.Int("remaining", len(workers)-i))
			for _, rest := range workers[i:] {
				_ = rest.conn.Close()
			}
			timeout = nil
			<-w.done
		}
	}
}

// Close closes the listener. Serve treats it as an Accept failure unless its
// context is already done.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	err := s.lis.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
