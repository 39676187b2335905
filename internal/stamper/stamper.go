// Package stamper appends a wall-clock record to the log at a fixed interval.
package stamper

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/cmdlog/internal/logstore"
	"github.com/rzbill/cmdlog/pkg/log"
)

// DefaultInterval is used when Options.Interval is zero.
const DefaultInterval = 10 * time.Second

// Prefix starts every timestamp record.
const Prefix = "timestamp:"

// Writer is the part of logstore.Store the task needs.
type Writer interface {
	Write(ctx context.Context, p []byte) (logstore.WriteResult, error)
}

// MetricsHook receives the result of every tick ("ok" or "error").
type MetricsHook interface {
	ObserveTimestamp(result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTimestamp(string) {}

// Options configures a Task.
type Options struct {
	Interval time.Duration
	Logger   log.Logger
	Metrics  MetricsHook
	// Now overrides the clock; tests pin it.
	Now func() time.Time
}

// Task writes "timestamp:<RFC 1123Z time>\n" every Interval.
type Task struct {
	w        Writer
	interval time.Duration
	logger   log.Logger
	metrics  MetricsHook
	now      func() time.Time

	once   sync.Once
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Task that has not been started.
func New(w Writer, opts Options) *Task {
	t := &Task{
		w:        w,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if t.logger == nil {
		t.logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	if t.metrics == nil {
		t.metrics = noopMetrics{}
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Format renders the record written for instant ts.
func Format(ts time.Time) []byte {
	return []byte(Prefix + ts.Format(time.RFC1123Z) + "\n")
}

// Start launches the loop once; later calls are no-ops. The loop exits when
// ctx is done or Stop is called.
func (t *Task) Start(ctx context.Context) {
	t.once.Do(func() {
		ctx, t.cancel = context.WithCancel(ctx)
		t.wg.Add(1)
		go t.run(ctx)
	})
}

// Stop ends the loop and waits for it to exit.
func (t *Task) Stop() {
	t.once.Do(func() {})
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

// Wait blocks until the loop has exited.
func (t *Task) Wait() { t.wg.Wait() }

func (t *Task) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("stamper started", log.Duration("interval", t.interval))
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("stamper stopped")
			return
		case <-ticker.C:
			t.stamp(ctx)
		}
	}
}

func (t *Task) stamp(ctx context.Context) {
	if _, err := t.w.Write(ctx, Format(t.now())); err != nil {
		t.metrics.ObserveTimestamp("error")
		if ctx.Err() != nil {
			return
		}
		t.logger.Error("timestamp write failed", log.Err(err))
		return
	}
	t.metrics.ObserveTimestamp("ok")
}
