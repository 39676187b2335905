package tcp

import (
	"time"

	"github.com/rzbill/cmdlog/pkg/id"
	"github.com/rzbill/cmdlog/pkg/log"
)

const (
	// DefaultAddr is the listen address used when Options.Addr is empty.
	DefaultAddr = ":9000"
	// DefaultMaxRecordBytes bounds a single submitted record.
	DefaultMaxRecordBytes = 1 << 20

	readChunk = 4096
)

// MetricsHook observes connection outcomes and the in-flight worker count.
type MetricsHook interface {
	ObserveConnection(result string)
	ObserveInflight(n int)
}

// NoopMetrics is used when no hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveConnection(string) {}
func (NoopMetrics) ObserveInflight(int)      {}

// Options configures a Server.
type Options struct {
	Addr           string
	MaxRecordBytes int
	// DrainTimeout bounds how long shutdown waits before force-closing worker
	// connections. Zero waits for every worker to finish on its own.
	DrainTimeout time.Duration
	Logger       log.Logger
	Metrics      MetricsHook
	IDs          *id.Generator
}

func (o *Options) withDefaults() {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.MaxRecordBytes <= 0 {
		o.MaxRecordBytes = DefaultMaxRecordBytes
	}
	if o.Logger == nil {
		o.Logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.IDs == nil {
		o.IDs = id.NewGenerator()
	}
}
