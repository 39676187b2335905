package ringbuf

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func entry(s string) Entry { return Entry{Data: []byte(s)} }

func contents(b *Buffer) string {
	var out bytes.Buffer
	for _, e := range b.Entries() {
		out.Write(e.Data)
	}
	return out.String()
}

func TestEmptyBuffer(t *testing.T) {
	b := New(0)
	require.Equal(t, DefaultCapacity, b.Cap())
	require.True(t, b.Empty())
	require.Zero(t, b.Len())
	require.Zero(t, b.TotalLength())
	_, _, ok := b.FindEntryForOffset(0)
	require.False(t, ok)
	pos, ok := b.FindFposForEntryOffset(0, 0)
	require.False(t, ok)
	require.Zero(t, pos)
}

func TestAddEntryEvictsOldestAfterCapacity(t *testing.T) {
	const n = 10
	b := New(n)
	var evicted []string
	for i := 0; i < n+5; i++ {
		old, ok := b.AddEntry(entry(fmt.Sprintf("w%d\n", i)))
		if i < n {
			require.False(t, ok, "no eviction expected at commit %d", i)
			continue
		}
		require.True(t, ok, "eviction expected at commit %d", i)
		evicted = append(evicted, string(old.Data))
	}
	require.Equal(t, []string{"w0\n", "w1\n", "w2\n", "w3\n", "w4\n"}, evicted)
	require.True(t, b.Full())
	require.Equal(t, n, b.Len())

	live := b.Entries()
	for i, e := range live {
		require.Equal(t, fmt.Sprintf("w%d\n", i+5), string(e.Data))
	}
}

func TestFullExactlyAtCapacity(t *testing.T) {
	b := New(3)
	b.AddEntry(entry("a\n"))
	b.AddEntry(entry("b\n"))
	require.False(t, b.Full())
	_, ok := b.AddEntry(entry("c\n"))
	require.False(t, ok)
	require.True(t, b.Full())
	require.Equal(t, "a\nb\nc\n", contents(b))
}

func TestSingleSlotReportsEviction(t *testing.T) {
	b := New(1)
	_, ok := b.AddEntry(entry("x\n"))
	require.False(t, ok)
	old, ok := b.AddEntry(entry("y\n"))
	require.True(t, ok)
	require.Equal(t, "x\n", string(old.Data))
	require.Equal(t, "y\n", contents(b))
}

func TestCapacityTwoKeepsLastTwo(t *testing.T) {
	b := New(2)
	for _, s := range []string{"1\n", "2\n", "3\n"} {
		b.AddEntry(entry(s))
	}
	require.Equal(t, "2\n3\n", contents(b))
}

// Every valid fpos must map back to the same byte of the logical content,
// including after the live span has wrapped around the slot array.
func TestFindEntryForOffsetRoundTrip(t *testing.T) {
	b := New(4)
	for i, s := range []string{"alpha\n", "b\n", "gamma ray\n", "d\n", "epsilon\n", "zz\n"} {
		b.AddEntry(entry(s))
		logical := contents(b)
		require.Equal(t, int64(len(logical)), b.TotalLength(), "after commit %d", i)
		for o := 0; o < len(logical); o++ {
			e, local, ok := b.FindEntryForOffset(int64(o))
			require.True(t, ok, "offset %d", o)
			require.Equal(t, logical[o], e.Data[local], "offset %d", o)
		}
		_, _, ok := b.FindEntryForOffset(int64(len(logical)))
		require.False(t, ok)
	}
	_, _, ok := b.FindEntryForOffset(-1)
	require.False(t, ok)
}

func TestFindEntryForOffsetLocal(t *testing.T) {
	b := New(10)
	b.AddEntry(entry("ab\n"))
	b.AddEntry(entry("cde\n"))
	e, local, ok := b.FindEntryForOffset(4)
	require.True(t, ok)
	require.Equal(t, "cde\n", string(e.Data))
	require.EqualValues(t, 1, local)
}

func TestFindFposForEntryOffset(t *testing.T) {
	b := New(10)
	b.AddEntry(entry("ab\n"))
	b.AddEntry(entry("cde\n"))

	tests := []struct {
		name   string
		index  int64
		offset int64
		want   int64
		ok     bool
	}{
		{"start of first", 0, 0, 0, true},
		{"inside second", 1, 1, 4, true},
		{"end of first clamps", 0, 3, 3, true},
		{"beyond first clamps", 0, 99, 3, true},
		{"beyond second clamps", 1, 50, 7, true},
		{"index past end falls back to total", 2, 0, 7, false},
		{"negative index", -1, 0, 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := b.FindFposForEntryOffset(tt.index, tt.offset)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFindFposAcrossWrap(t *testing.T) {
	b := New(3)
	for _, s := range []string{"zero\n", "one\n", "two\n", "three\n", "four\n"} {
		b.AddEntry(entry(s))
	}
	// live: two, three, four
	pos, ok := b.FindFposForEntryOffset(0, 0)
	require.True(t, ok)
	require.Zero(t, pos)
	pos, ok = b.FindFposForEntryOffset(2, 2)
	require.True(t, ok)
	require.EqualValues(t, len("two\nthree\n")+2, pos)
	e, local, ok := b.FindEntryForOffset(pos)
	require.True(t, ok)
	require.Equal(t, "four\n", string(e.Data))
	require.EqualValues(t, 2, local)
}

func TestResetReturnsLiveEntries(t *testing.T) {
	b := New(2)
	b.AddEntry(entry("1\n"))
	b.AddEntry(entry("2\n"))
	b.AddEntry(entry("3\n"))
	live := b.Reset()
	require.Len(t, live, 2)
	require.Equal(t, "2\n", string(live[0].Data))
	require.True(t, b.Empty())
	require.Zero(t, b.TotalLength())
}
