package archive

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/cmdlog/internal/logstore"
	"github.com/rzbill/cmdlog/internal/ringbuf"
	pebblestore "github.com/rzbill/cmdlog/internal/storage/pebble"
	logpkg "github.com/rzbill/cmdlog/pkg/log"
)

// Record is a single archived entry.
type Record struct {
	EvictedAtMs int64
	Reason      logstore.EvictReason
	Data        []byte
}

// Options configures an Archive.
type Options struct {
	// MaxEntries bounds retained records; the oldest are dropped after each
	// append once exceeded. Zero keeps everything.
	MaxEntries uint64
	Logger     logpkg.Logger
}

// Archive appends evicted entries to Pebble.
type Archive struct {
	db     *pebblestore.DB
	max    uint64
	logger logpkg.Logger

	mu       sync.Mutex
	firstSeq uint64
	lastSeq  uint64
}

// NowMs is the clock stamped on records; tests replace it.
var NowMs = defaultNowMs

func defaultNowMs() int64 { return time.Now().UnixMilli() }

// Open loads lastSeq from metadata and the first retained seq from the keyspace.
func Open(db *pebblestore.DB, opts Options) (*Archive, error) {
	a := &Archive{db: db, max: opts.MaxEntries, logger: opts.Logger}
	if a.logger == nil {
		a.logger = logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	}
	meta, err := db.Get(metaKey)
	switch {
	case err == nil && len(meta) >= 8:
		a.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebble.ErrNotFound):
		return nil, err
	}

	lower, upper := entryBounds()
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	if iter.First() {
		a.firstSeq = seqFromKey(iter.Key())
	} else {
		a.firstSeq = a.lastSeq + 1
	}
	return a, nil
}

// Append writes recs as one atomic batch and returns their sequence numbers.
func (a *Archive) Append(ctx context.Context, recs []Record) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.db.NewBatch()
	defer b.Close()

	seqs := make([]uint64, len(recs))
	next := a.lastSeq
	for i, r := range recs {
		next++
		val := EncodeRecord(encodeHeader(r.EvictedAtMs, uint8(r.Reason)), r.Data)
		if err := b.Set(KeyEntry(next), val, nil); err != nil {
			return nil, err
		}
		seqs[i] = next
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], next)
	if err := b.Set(metaKey, meta[:], nil); err != nil {
		return nil, err
	}

	// retention rides in the same batch so a crash never leaves the bound exceeded
	first := a.firstSeq
	if a.max > 0 && next-first+1 > a.max {
		first = next - a.max + 1
		if err := b.DeleteRange(KeyEntry(a.firstSeq), KeyEntry(first), nil); err != nil {
			return nil, err
		}
	}

	if err := a.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	a.lastSeq = next
	a.firstSeq = first
	return seqs, nil
}

// Evicted implements logstore.EvictionHook. Failures are logged; the store
// has already let go of the entry.
func (a *Archive) Evicted(e ringbuf.Entry, reason logstore.EvictReason) {
	rec := Record{EvictedAtMs: NowMs(), Reason: reason, Data: e.Data}
	if _, err := a.Append(context.Background(), []Record{rec}); err != nil {
		a.logger.Error("archive append failed", logpkg.Err(err), logpkg.Str("reason", reason.String()))
	}
}

// Len returns the number of retained records.
func (a *Archive) Len() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastSeq < a.firstSeq {
		return 0
	}
	return a.lastSeq - a.firstSeq + 1
}

var _ logstore.EvictionHook = (*Archive)(nil)
