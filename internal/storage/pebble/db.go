package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
)

// ErrClosed is returned by operations on a closed DB.
var ErrClosed = errors.New("pebble: db closed")

const defaultSyncInterval = 5 * time.Millisecond

// FsyncMode selects when committed batches reach stable storage.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	FsyncModeAlways
	FsyncModeInterval
	FsyncModeNever
)

var fsyncNames = map[FsyncMode]string{
	FsyncModeAlways:   "always",
	FsyncModeInterval: "interval",
	FsyncModeNever:    "never",
}

func (m FsyncMode) String() string {
	if name, ok := fsyncNames[m]; ok {
		return name
	}
	return "unspecified"
}

// ParseFsyncMode accepts always, interval or never. Empty means always.
func ParseFsyncMode(s string) (FsyncMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FsyncModeAlways, nil
	}
	for mode, name := range fsyncNames {
		if name == s {
			return mode, nil
		}
	}
	return FsyncModeUnspecified, fmt.Errorf("pebble: invalid fsync mode %q; use always|interval|never", s)
}

// Options configures Open.
type Options struct {
	// DataDir is created when missing.
	DataDir string
	Fsync   FsyncMode
	// FsyncInterval bounds WAL sync coalescing in FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions overrides the engine defaults.
	PebbleOptions *pebble.Options
	Metrics       MetricsHook
}

// MetricsHook observes read and batch commit latencies.
type MetricsHook interface {
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, bytes int)
}

// NoopMetrics discards observations.
type NoopMetrics struct{}

func (NoopMetrics) ObserveRead(time.Duration, int)        {}
func (NoopMetrics) ObserveBatchCommit(time.Duration, int) {}

// DB is a Pebble handle with a fixed commit durability.
type DB struct {
	inner   *pebble.DB
	dir     string
	mode    FsyncMode
	commit  *pebble.WriteOptions
	metrics MetricsHook
	closed  atomic.Bool
}

// Open creates or opens the database under opts.DataDir.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}
	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("pebble: create %s: %w", opts.DataDir, err)
	}
	mode := opts.Fsync
	if mode == FsyncModeUnspecified {
		mode = FsyncModeAlways
	}
	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}
	if mode == FsyncModeInterval {
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = defaultSyncInterval
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", opts.DataDir, err)
	}
	db := &DB{inner: inner, dir: opts.DataDir, mode: mode, commit: pebble.NoSync, metrics: opts.Metrics}
	if mode != FsyncModeNever {
		db.commit = pebble.Sync
	}
	if db.metrics == nil {
		db.metrics = NoopMetrics{}
	}
	return db, nil
}

// Dir returns the database directory.
func (db *DB) Dir() string { return db.dir }

// Mode returns the effective fsync mode.
func (db *DB) Mode() FsyncMode { return db.mode }

// Close is idempotent.
func (db *DB) Close() error {
	if db == nil || !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	return db.inner.Close()
}

// Check opens an iterator and positions it on the first key.
func (db *DB) Check() error {
	if db == nil || db.closed.Load() {
		return ErrClosed
	}
	it, err := db.inner.NewIter(nil)
	if err != nil {
		return err
	}
	it.First()
	if err := it.Error(); err != nil {
		_ = it.Close()
		return err
	}
	return it.Close()
}

// NewBatch returns an empty write batch.
func (db *DB) NewBatch() *pebble.Batch { return db.inner.NewBatch() }

// CommitBatch applies b atomically. In interval mode Pebble groups the
// WAL syncs of concurrent commits.
func (db *DB) CommitBatch(ctx context.Context, b *pebble.Batch) error {
	if b == nil {
		return errors.New("pebble: nil batch")
	}
	if db.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := b.Commit(db.commit)
	db.metrics.ObserveBatchCommit(time.Since(start), b.Len())
	return err
}

// Set writes one key durably under the configured mode.
func (db *DB) Set(key, value []byte) error {
	b := db.inner.NewBatch()
	defer b.Close()
	if err := b.Set(key, value, nil); err != nil {
		return err
	}
	return db.CommitBatch(context.Background(), b)
}

// Get returns a copy of the value for key, or pebble.ErrNotFound.
func (db *DB) Get(key []byte) ([]byte, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	val, closer, err := db.inner.Get(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(val))
	copy(out, val)
	_ = closer.Close()
	db.metrics.ObserveRead(time.Since(start), len(out))
	return out, nil
}

// NewIter returns a raw iterator; callers close it.
func (db *DB) NewIter(opts *pebble.IterOptions) (*pebble.Iterator, error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	return db.inner.NewIter(opts)
}
