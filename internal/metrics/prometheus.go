package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cmdlog"

// Prometheus holds every cmdlog collector.
type Prometheus struct {
	commitsTotal        prometheus.Counter
	committedBytesTotal prometheus.Counter
	evictionsTotal      prometheus.Counter
	evictedBytesTotal   prometheus.Counter
	liveEntries         prometheus.Gauge
	liveBytes           prometheus.Gauge
	connectionsTotal    *prometheus.CounterVec
	workersInflight     prometheus.Gauge
	timestampsTotal     *prometheus.CounterVec
	archiveReadSeconds  prometheus.Histogram
	archiveCommitSecs   prometheus.Histogram
	archiveCommitBytes  prometheus.Counter
}

// NewPrometheus builds the collectors and registers them with reg
// (prometheus.DefaultRegisterer when nil). Collectors already registered by a
// previous instance are reused.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Prometheus{
		commitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "commits_total",
			Help:      "Records committed to the circular log.",
		}),
		committedBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "committed_bytes_total",
			Help:      "Bytes committed to the circular log.",
		}),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "evictions_total",
			Help:      "Entries displaced from a full log.",
		}),
		evictedBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "evicted_bytes_total",
			Help:      "Bytes displaced from a full log.",
		}),
		liveEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "entries",
			Help:      "Entries currently held by the log.",
		}),
		liveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "log",
			Name:      "bytes",
			Help:      "Total length of the log content.",
		}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "connections_total",
			Help:      "Handled client connections by result.",
		}, []string{"result"}),
		workersInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tcp",
			Name:      "workers_inflight",
			Help:      "Connection workers not yet reaped.",
		}),
		timestampsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stamper",
			Name:      "writes_total",
			Help:      "Timestamp records written by result.",
		}, []string{"result"}),
		archiveReadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "read_duration_seconds",
			Help:      "Duration of point reads against the archive store.",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),
		archiveCommitSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "batch_commit_duration_seconds",
			Help:      "Duration of archive batch commits.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.05, 0.1, 0.5},
		}),
		archiveCommitBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "committed_bytes_total",
			Help:      "Bytes written to the archive store.",
		}),
	}
	if err := m.register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Prometheus) register(reg prometheus.Registerer) error {
	for _, c := range []*prometheus.Counter{
		&m.commitsTotal, &m.committedBytesTotal, &m.evictionsTotal, &m.evictedBytesTotal, &m.archiveCommitBytes,
	} {
		if err := registerOrReuse(reg, c); err != nil {
			return fmt.Errorf("register counter: %w", err)
		}
	}
	for _, g := range []*prometheus.Gauge{&m.liveEntries, &m.liveBytes, &m.workersInflight} {
		if err := registerOrReuse(reg, g); err != nil {
			return fmt.Errorf("register gauge: %w", err)
		}
	}
	for _, h := range []*prometheus.Histogram{&m.archiveReadSeconds, &m.archiveCommitSecs} {
		if err := registerOrReuse(reg, h); err != nil {
			return fmt.Errorf("register histogram: %w", err)
		}
	}
	for _, v := range []**prometheus.CounterVec{&m.connectionsTotal, &m.timestampsTotal} {
		if err := registerOrReuse(reg, v); err != nil {
			return fmt.Errorf("register counter vec: %w", err)
		}
	}
	return nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return err
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return fmt.Errorf("collector type mismatch for %T", *c)
		}
		*c = existing
	}
	return nil
}

// log store

func (m *Prometheus) ObserveCommit(bytes int) {
	m.commitsTotal.Inc()
	m.committedBytesTotal.Add(float64(bytes))
}

func (m *Prometheus) ObserveEviction(bytes int) {
	m.evictionsTotal.Inc()
	m.evictedBytesTotal.Add(float64(bytes))
}

func (m *Prometheus) ObserveSize(entries int, bytes int64) {
	m.liveEntries.Set(float64(entries))
	m.liveBytes.Set(float64(bytes))
}

// tcp server

func (m *Prometheus) ObserveConnection(result string) {
	m.connectionsTotal.WithLabelValues(result).Inc()
}

func (m *Prometheus) ObserveInflight(n int) {
	m.workersInflight.Set(float64(n))
}

// stamper

func (m *Prometheus) ObserveTimestamp(result string) {
	m.timestampsTotal.WithLabelValues(result).Inc()
}

// archive store

func (m *Prometheus) ObserveRead(d time.Duration, _ int) {
	m.archiveReadSeconds.Observe(d.Seconds())
}

func (m *Prometheus) ObserveBatchCommit(d time.Duration, bytes int) {
	m.archiveCommitSecs.Observe(d.Seconds())
	m.archiveCommitBytes.Add(float64(bytes))
}
