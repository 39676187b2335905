package logstore

import (
	"context"
	"errors"

	"github.com/rzbill/cmdlog/internal/ringbuf"
	logpkg "github.com/rzbill/cmdlog/pkg/log"
)

// Terminator ends a record.
const Terminator = '\n'

var (
	// ErrInterrupted is returned when the context is done before the lock is acquired.
	ErrInterrupted = errors.New("logstore: interrupted waiting for lock")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("logstore: closed")
	// ErrInvalidSeek is returned by SeekTo for a position that names no live entry.
	ErrInvalidSeek = errors.New("logstore: seek target out of range")
	// ErrRecordTooLarge is returned when a write would grow the pending record past MaxPendingBytes.
	ErrRecordTooLarge = errors.New("logstore: pending record too large")
)

// Options configures a Store.
type Options struct {
	// Capacity is the number of entries kept; below one means ringbuf.DefaultCapacity.
	Capacity int
	// MaxPendingBytes bounds the uncommitted record. Zero means unbounded.
	MaxPendingBytes int
	Metrics         MetricsHook
	OnEvict         EvictionHook
	Logger          logpkg.Logger
}

// WriteResult reports the outcome of a Write.
type WriteResult struct {
	Accepted  int
	Committed bool
	// Evicted is the entry displaced by this commit, if any. It has already
	// been passed to the eviction hook.
	Evicted *ringbuf.Entry
}

// Store is a ring of committed entries plus the pending record, guarded by one lock.
type Store struct {
	sem chan struct{}

	buf        *ringbuf.Buffer
	pending    []byte
	maxPending int
	closed     bool

	metrics MetricsHook
	onEvict EvictionHook
	logger  logpkg.Logger
}

// New returns an empty Store.
func New(opts Options) *Store {
	s := &Store{
		sem:        make(chan struct{}, 1),
		buf:        ringbuf.New(opts.Capacity),
		maxPending: opts.MaxPendingBytes,
		metrics:    opts.Metrics,
		onEvict:    opts.OnEvict,
		logger:     opts.Logger,
	}
	if s.metrics == nil {
		s.metrics = NoopMetrics{}
	}
	if s.onEvict == nil {
		s.onEvict = noopEviction{}
	}
	if s.logger == nil {
		s.logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	return s
}

// Capacity returns the number of entry slots.
func (s *Store) Capacity() int { return s.buf.Cap() }

func (s *Store) lock(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrInterrupted
	}
}

func (s *Store) unlock() { <-s.sem }

// acquire takes the lock and fails with ErrClosed on a torn-down store.
func (s *Store) acquire(ctx context.Context) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	if s.closed {
		s.unlock()
		return ErrClosed
	}
	return nil
}

// Write appends p to the pending record. If p ends with Terminator, the
// pending record (including the terminator) is committed as a new entry.
func (s *Store) Write(ctx context.Context, p []byte) (WriteResult, error) {
	if err := s.acquire(ctx); err != nil {
		return WriteResult{}, err
	}
	if s.maxPending > 0 && len(s.pending)+len(p) > s.maxPending {
		s.unlock()
		return WriteResult{}, ErrRecordTooLarge
	}
	s.pending = append(s.pending, p...)
	res := WriteResult{Accepted: len(p)}
	if len(p) == 0 || p[len(p)-1] != Terminator {
		s.unlock()
		return res, nil
	}

	committed := ringbuf.Entry{Data: s.pending}
	s.pending = nil
	evicted, ok := s.buf.AddEntry(committed)
	res.Committed = true
	if ok {
		res.Evicted = &evicted
	}
	defer s.unlock()

	s.metrics.ObserveCommit(len(committed.Data))
	s.metrics.ObserveSize(s.buf.Len(), s.buf.TotalLength())
	if ok {
		s.metrics.ObserveEviction(len(evicted.Data))
		s.logger.Debug("entry evicted", logpkg.Int("size", len(evicted.Data)))
		s.onEvict.Evicted(evicted, EvictOverflow)
	}
	return res, nil
}

// Read returns bytes starting at fpos from the single entry containing it, at
// most limit bytes (limit <= 0 reads to the end of that entry). A position at or
// past the end yields an empty result and no error.
func (s *Store) Read(ctx context.Context, fpos int64, limit int) ([]byte, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()
	e, local, ok := s.buf.FindEntryForOffset(fpos)
	if !ok {
		return []byte{}, nil
	}
	n := e.Size() - local
	if limit > 0 && int64(limit) < n {
		n = int64(limit)
	}
	return append([]byte(nil), e.Data[local:local+n]...), nil
}

// ReadAll returns the whole logical content in one lock acquisition.
func (s *Store) ReadAll(ctx context.Context) ([]byte, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := make([]byte, 0, s.buf.TotalLength())
	for _, e := range s.buf.Entries() {
		out = append(out, e.Data...)
	}
	return out, nil
}

// Entries returns copies of the live entries, oldest first.
func (s *Store) Entries(ctx context.Context) ([]ringbuf.Entry, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()
	live := s.buf.Entries()
	out := make([]ringbuf.Entry, len(live))
	for i, e := range live {
		out[i] = ringbuf.Entry{Data: append([]byte(nil), e.Data...)}
	}
	return out, nil
}

// SeekTo converts (entry index, offset within entry) into an absolute
// position. Offsets past the entry end are clamped to it. A negative argument
// or an index past the last live entry yields ErrInvalidSeek alongside the
// total length.
func (s *Store) SeekTo(ctx context.Context, index, offset int64) (int64, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.unlock()
	if index < 0 || offset < 0 {
		return s.buf.TotalLength(), ErrInvalidSeek
	}
	pos, ok := s.buf.FindFposForEntryOffset(index, offset)
	if !ok {
		return pos, ErrInvalidSeek
	}
	return pos, nil
}

// TotalLength returns the length of the logical content.
func (s *Store) TotalLength(ctx context.Context) (int64, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.unlock()
	return s.buf.TotalLength(), nil
}

// PendingLen returns the size of the uncommitted record.
func (s *Store) PendingLen(ctx context.Context) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.unlock()
	return len(s.pending), nil
}

// Close releases every live entry through the eviction hook and drops the
// pending record. Later calls on the store return ErrClosed.
func (s *Store) Close() error {
	_ = s.lock(context.Background())
	if s.closed {
		s.unlock()
		return nil
	}
	defer s.unlock()
	s.closed = true
	live := s.buf.Reset()
	s.pending = nil

	s.metrics.ObserveSize(0, 0)
	for _, e := range live {
		s.onEvict.Evicted(e, EvictTeardown)
	}
	s.logger.Debug("store closed", logpkg.Int("released", len(live)))
	return nil
}
