package logstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rzbill/cmdlog/internal/ringbuf"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s := New(opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustWrite(t *testing.T, s *Store, p string) WriteResult {
	t.Helper()
	res, err := s.Write(context.Background(), []byte(p))
	if err != nil {
		t.Fatalf("write %q: %v", p, err)
	}
	return res
}

func readAll(t *testing.T, s *Store) string {
	t.Helper()
	b, err := s.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	return string(b)
}

func TestWriteCommitsOnTrailingTerminator(t *testing.T) {
	s := newTestStore(t, Options{})
	res := mustWrite(t, s, "hel")
	if res.Committed || res.Accepted != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := readAll(t, s); got != "" {
		t.Fatalf("pending data visible: %q", got)
	}
	if n, _ := s.PendingLen(context.Background()); n != 3 {
		t.Fatalf("pending len %d", n)
	}
	res = mustWrite(t, s, "lo\n")
	if !res.Committed {
		t.Fatalf("expected commit")
	}
	if got := readAll(t, s); got != "hello\n" {
		t.Fatalf("got %q", got)
	}
	if n, _ := s.PendingLen(context.Background()); n != 0 {
		t.Fatalf("pending not reset: %d", n)
	}
}

func TestEmbeddedTerminatorDoesNotSplit(t *testing.T) {
	s := newTestStore(t, Options{})
	mustWrite(t, s, "a\nb")
	mustWrite(t, s, "c\n")
	entries, err := s.Entries(context.Background())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || string(entries[0].Data) != "a\nbc\n" {
		t.Fatalf("unexpected entries: %q", entries)
	}
}

func TestEmptyWriteNeverCommits(t *testing.T) {
	s := newTestStore(t, Options{})
	res := mustWrite(t, s, "")
	if res.Committed {
		t.Fatalf("empty write must not commit")
	}
	if n, _ := s.TotalLength(context.Background()); n != 0 {
		t.Fatalf("total %d", n)
	}
}

func TestCapacityTwoKeepsNewest(t *testing.T) {
	var evicted []string
	s := newTestStore(t, Options{Capacity: 2, OnEvict: EvictionFunc(func(e ringbuf.Entry, r EvictReason) {
		if r == EvictOverflow {
			evicted = append(evicted, string(e.Data))
		}
	})})
	mustWrite(t, s, "1\n")
	mustWrite(t, s, "2\n")
	res := mustWrite(t, s, "3\n")
	if res.Evicted == nil || string(res.Evicted.Data) != "1\n" {
		t.Fatalf("expected eviction of first record, got %+v", res.Evicted)
	}
	if got := readAll(t, s); got != "2\n3\n" {
		t.Fatalf("got %q", got)
	}
	if len(evicted) != 1 || evicted[0] != "1\n" {
		t.Fatalf("hook saw %q", evicted)
	}
}

func TestReadReturnsSingleEntryRemainder(t *testing.T) {
	s := newTestStore(t, Options{})
	mustWrite(t, s, "ab\n")
	mustWrite(t, s, "cde\n")
	ctx := context.Background()

	tests := []struct {
		fpos  int64
		limit int
		want  string
	}{
		{0, 0, "ab\n"},
		{1, 0, "b\n"},
		{3, 0, "cde\n"},
		{4, 2, "de"},
		{6, 100, "\n"},
		{7, 0, ""},
		{100, 10, ""},
	}
	for _, tt := range tests {
		got, err := s.Read(ctx, tt.fpos, tt.limit)
		if err != nil {
			t.Fatalf("read(%d,%d): %v", tt.fpos, tt.limit, err)
		}
		if string(got) != tt.want {
			t.Fatalf("read(%d,%d) = %q want %q", tt.fpos, tt.limit, got, tt.want)
		}
	}
}

func TestSeekTo(t *testing.T) {
	s := newTestStore(t, Options{})
	mustWrite(t, s, "ab\n")
	mustWrite(t, s, "cde\n")
	ctx := context.Background()

	if pos, err := s.SeekTo(ctx, 0, 0); err != nil || pos != 0 {
		t.Fatalf("seek(0,0) = %d, %v", pos, err)
	}
	if pos, err := s.SeekTo(ctx, 1, 1); err != nil || pos != 4 {
		t.Fatalf("seek(1,1) = %d, %v", pos, err)
	}
	if pos, err := s.SeekTo(ctx, 0, 10); err != nil || pos != 3 {
		t.Fatalf("seek(0,10) should clamp to 3, got %d, %v", pos, err)
	}
	pos, err := s.SeekTo(ctx, 2, 0)
	if !errors.Is(err, ErrInvalidSeek) {
		t.Fatalf("expected ErrInvalidSeek, got %v", err)
	}
	if pos != 7 {
		t.Fatalf("fallback position %d", pos)
	}
	if _, err := s.SeekTo(ctx, -1, 0); !errors.Is(err, ErrInvalidSeek) {
		t.Fatalf("negative index: %v", err)
	}
}

func TestCancelledContextIsInterrupted(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Write(ctx, []byte("x\n")); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if _, err := s.ReadAll(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
}

func TestInterruptedWaitLeavesPendingUntouched(t *testing.T) {
	s := newTestStore(t, Options{})
	mustWrite(t, s, "part")

	// hold the lock so the next writer has to wait
	if err := s.lock(context.Background()); err != nil {
		t.Fatalf("lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Write(ctx, []byte("ial\n"))
	s.unlock()
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if n, _ := s.PendingLen(context.Background()); n != 4 {
		t.Fatalf("pending mutated: %d", n)
	}
	if got := readAll(t, s); got != "" {
		t.Fatalf("unexpected commit %q", got)
	}
}

func TestConcurrentCommitsNeverInterleave(t *testing.T) {
	const writers = 8
	s := newTestStore(t, Options{Capacity: writers})
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Write(context.Background(), []byte(fmt.Sprintf("rec-%d\n", i))); err != nil {
				t.Errorf("write: %v", err)
			}
		}(i)
	}
	wg.Wait()

	entries, err := s.Entries(context.Background())
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, string(e.Data))
	}
	sort.Strings(got)
	for i := 0; i < writers; i++ {
		if got[i] != fmt.Sprintf("rec-%d\n", i) {
			t.Fatalf("corrupted entries: %q", got)
		}
	}
}

func TestRecordTooLarge(t *testing.T) {
	s := newTestStore(t, Options{MaxPendingBytes: 4})
	mustWrite(t, s, "abc")
	if _, err := s.Write(context.Background(), []byte("de\n")); !errors.Is(err, ErrRecordTooLarge) {
		t.Fatalf("expected ErrRecordTooLarge, got %v", err)
	}
	if n, _ := s.PendingLen(context.Background()); n != 3 {
		t.Fatalf("pending changed on failure: %d", n)
	}
}

type countingMetrics struct {
	commits, evictions int
	entries            int
	bytes              int64
}

func (m *countingMetrics) ObserveCommit(int)   { m.commits++ }
func (m *countingMetrics) ObserveEviction(int) { m.evictions++ }
func (m *countingMetrics) ObserveSize(entries int, bytes int64) {
	m.entries, m.bytes = entries, bytes
}

func TestMetricsHook(t *testing.T) {
	m := &countingMetrics{}
	s := newTestStore(t, Options{Capacity: 2, Metrics: m})
	mustWrite(t, s, "aa\n")
	mustWrite(t, s, "bb\n")
	mustWrite(t, s, "cc\n")
	if m.commits != 3 || m.evictions != 1 {
		t.Fatalf("commits=%d evictions=%d", m.commits, m.evictions)
	}
	if m.entries != 2 || m.bytes != 6 {
		t.Fatalf("size entries=%d bytes=%d", m.entries, m.bytes)
	}
}

func TestCloseReleasesLiveEntries(t *testing.T) {
	var released []string
	s := New(Options{OnEvict: EvictionFunc(func(e ringbuf.Entry, r EvictReason) {
		if r == EvictTeardown {
			released = append(released, string(e.Data))
		}
	})})
	mustWrite(t, s, "x\n")
	mustWrite(t, s, "y\n")
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(released) != 2 || released[0] != "x\n" || released[1] != "y\n" {
		t.Fatalf("released %q", released)
	}
	if _, err := s.Write(context.Background(), []byte("z\n")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
