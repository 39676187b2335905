package id

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"
)

// ID is a 128-bit identifier ordered by creation time.
type ID [16]byte

// Millis returns the millisecond timestamp component.
func (i ID) Millis() int64 { return int64(binary.BigEndian.Uint64(i[0:8])) }

// Seq returns the per-millisecond sequence component.
func (i ID) Seq() uint64 { return binary.BigEndian.Uint64(i[8:16]) }

// String returns the full hex form.
func (i ID) String() string { return hex.EncodeToString(i[:]) }

// Short returns the low three bytes of each half in hex, enough to tell workers
// apart in logs of a single process.
func (i ID) Short() string { return hex.EncodeToString(i[5:8]) + hex.EncodeToString(i[13:16]) }

// Compare returns -1, 0, 1 based on byte-wise comparison.
func (i ID) Compare(other ID) int {
	for idx := range i {
		switch {
		case i[idx] < other[idx]:
			return -1
		case i[idx] > other[idx]:
			return 1
		}
	}
	return 0
}

// NowMs is the clock used by Generator; tests replace it.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Generator hands out strictly increasing IDs.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// Next returns a new ID. A clock that goes backwards is pinned to the last
// seen millisecond; an exhausted sequence waits for the next millisecond.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	switch {
	case ms != g.lastMs:
		g.seq = 0
	case g.seq < math.MaxUint64:
		g.seq++
	default:
		for ms <= g.lastMs {
			time.Sleep(time.Millisecond / 8)
			ms = NowMs()
		}
		g.seq = 0
	}
	g.lastMs = ms

	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:16], g.seq)
	return out
}
