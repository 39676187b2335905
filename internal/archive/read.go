package archive

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/cmdlog/internal/logstore"
)

// ReadOptions selects a window of records.
type ReadOptions struct {
	// StartSeq is inclusive; zero starts at the oldest (or newest when Reverse).
	StartSeq uint64
	Limit    int
	Reverse  bool
}

// Item is a decoded archive record.
type Item struct {
	Seq uint64
	Record
}

// Read returns up to Limit items from StartSeq, plus the seq to resume from
// (zero when the scan reached the end).
func (a *Archive) Read(opts ReadOptions) ([]Item, uint64, error) {
	lower, upper := entryBounds()
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, 0, fmt.Errorf("archive: read: %w", err)
	}
	defer iter.Close()
	items := make([]Item, 0, max(1, opts.Limit))

	var ok bool
	switch {
	case opts.Reverse && opts.StartSeq == 0:
		ok = iter.Last()
	case opts.Reverse:
		ok = iter.SeekLT(KeyEntry(opts.StartSeq + 1))
	case opts.StartSeq == 0:
		ok = iter.First()
	default:
		ok = iter.SeekGE(KeyEntry(opts.StartSeq))
	}
	for ; ok && (opts.Limit <= 0 || len(items) < opts.Limit); ok = step(iter, opts.Reverse) {
		dec, valid := DecodeRecord(iter.Value())
		if !valid {
			continue
		}
		ms, reason, valid := decodeHeader(dec.Header)
		if !valid {
			continue
		}
		items = append(items, Item{
			Seq:    seqFromKey(iter.Key()),
			Record: Record{EvictedAtMs: ms, Reason: logstore.EvictReason(reason), Data: dec.Payload},
		})
	}
	if err := iter.Error(); err != nil {
		return nil, 0, fmt.Errorf("archive: read: %w", err)
	}
	if ok {
		return items, seqFromKey(iter.Key()), nil
	}
	return items, 0, nil
}

func step(iter *pebble.Iterator, reverse bool) bool {
	if reverse {
		return iter.Prev()
	}
	return iter.Next()
}
