package id

import (
	"testing"
	"time"
)

func withClock(t *testing.T, fn func() int64) {
	t.Helper()
	NowMs = fn
	t.Cleanup(func() { NowMs = func() int64 { return time.Now().UnixMilli() } })
}

func TestNextIsMonotonic(t *testing.T) {
	withClock(t, func() int64 { return 1000 })
	g := NewGenerator()
	a, b := g.Next(), g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected a<b: %s %s", a, b)
	}
	if b.Seq() != a.Seq()+1 || a.Millis() != 1000 {
		t.Fatalf("unexpected components: %d/%d", b.Millis(), b.Seq())
	}
}

func TestClockRegressionPinsToLast(t *testing.T) {
	now := int64(1000)
	withClock(t, func() int64 { return now })
	g := NewGenerator()
	a := g.Next()
	now = 900
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected b>a despite clock regression")
	}
	if b.Millis() != 1000 {
		t.Fatalf("expected pinned ms, got %d", b.Millis())
	}
}

func TestShortIsStableAndDistinct(t *testing.T) {
	withClock(t, func() int64 { return 5000 })
	g := NewGenerator()
	a, b := g.Next(), g.Next()
	if a.Short() == b.Short() {
		t.Fatalf("short forms collide: %s", a.Short())
	}
	if len(a.Short()) != 12 || len(a.String()) != 32 {
		t.Fatalf("unexpected lengths: %q %q", a.Short(), a.String())
	}
}
