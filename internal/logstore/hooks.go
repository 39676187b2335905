package logstore

//go:generate mockgen -source=hooks.go -destination=mocks/hooks.go -package=mocks

import "github.com/rzbill/cmdlog/internal/ringbuf"

// EvictReason says why an entry left the ring.
type EvictReason uint8

const (
	// EvictOverflow: a commit into a full ring overwrote the oldest entry.
	EvictOverflow EvictReason = iota + 1
	// EvictTeardown: the store was closed with the entry still live.
	EvictTeardown
)

func (r EvictReason) String() string {
	switch r {
	case EvictOverflow:
		return "overflow"
	case EvictTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// EvictionHook receives entries released by the store. It runs with the store
// lock held, so calls arrive in eviction order and must not call back into the
// store.
type EvictionHook interface {
	Evicted(e ringbuf.Entry, reason EvictReason)
}

// EvictionFunc adapts a function to EvictionHook.
type EvictionFunc func(e ringbuf.Entry, reason EvictReason)

func (f EvictionFunc) Evicted(e ringbuf.Entry, reason EvictReason) { f(e, reason) }

type noopEviction struct{}

func (noopEviction) Evicted(ringbuf.Entry, EvictReason) {}

// MetricsHook is a minimal hook surface for store observations. Like
// EvictionHook it runs under the store lock.
type MetricsHook interface {
	ObserveCommit(bytes int)
	ObserveEviction(bytes int)
	ObserveSize(entries int, bytes int64)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveCommit(int)      {}
func (NoopMetrics) ObserveEviction(int)    {}
func (NoopMetrics) ObserveSize(int, int64) {}
