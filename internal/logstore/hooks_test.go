package logstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rzbill/cmdlog/internal/logstore"
	"github.com/rzbill/cmdlog/internal/logstore/mocks"
	"github.com/rzbill/cmdlog/internal/ringbuf"
)

func TestHooksSeeEvictionsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	evict := mocks.NewMockEvictionHook(ctrl)
	metrics := mocks.NewMockMetricsHook(ctrl)

	st := logstore.New(logstore.Options{Capacity: 2, OnEvict: evict, Metrics: metrics})
	ctx := context.Background()

	metrics.EXPECT().ObserveCommit(gomock.Any()).Times(3)
	metrics.EXPECT().ObserveSize(gomock.Any(), gomock.Any()).Times(4)
	metrics.EXPECT().ObserveEviction(2)
	gomock.InOrder(
		evict.EXPECT().Evicted(ringbuf.Entry{Data: []byte("1\n")}, logstore.EvictOverflow),
		evict.EXPECT().Evicted(ringbuf.Entry{Data: []byte("2\n")}, logstore.EvictTeardown),
		evict.EXPECT().Evicted(ringbuf.Entry{Data: []byte("3\n")}, logstore.EvictTeardown),
	)

	for _, r := range []string{"1\n", "2\n", "3\n"} {
		_, err := st.Write(ctx, []byte(r))
		require.NoError(t, err)
	}
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
}

func TestPendingWritesSkipHooks(t *testing.T) {
	ctrl := gomock.NewController(t)
	evict := mocks.NewMockEvictionHook(ctrl)
	metrics := mocks.NewMockMetricsHook(ctrl)

	st := logstore.New(logstore.Options{OnEvict: evict, Metrics: metrics})
	res, err := st.Write(context.Background(), []byte("no terminator"))
	require.NoError(t, err)
	require.False(t, res.Committed)

	// teardown of an empty ring reports only the size reset
	metrics.EXPECT().ObserveSize(0, int64(0))
	require.NoError(t, st.Close())
}

func TestEvictionHookHoldsCommitOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	entered := make(chan struct{})
	release := make(chan struct{})
	hook := logstore.EvictionFunc(func(e ringbuf.Entry, _ logstore.EvictReason) {
		mu.Lock()
		order = append(order, string(e.Data))
		first := len(order) == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
	})
	st := logstore.New(logstore.Options{Capacity: 1, OnEvict: hook})
	ctx := context.Background()

	_, err := st.Write(ctx, []byte("a\n"))
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() {
		_, err := st.Write(ctx, []byte("b\n"))
		errs <- err
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := st.Write(ctx, []byte("c\n"))
		errs <- err
	}()
	require.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "commit finished while an eviction hook was running")

	close(release)
	<-done
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a\n", "b\n"}, order)
}

func TestTeardownFollowsOverflow(t *testing.T) {
	var reasons []logstore.EvictReason
	st := logstore.New(logstore.Options{Capacity: 1, OnEvict: logstore.EvictionFunc(func(_ ringbuf.Entry, r logstore.EvictReason) {
		reasons = append(reasons, r)
	})})
	ctx := context.Background()
	for _, r := range []string{"x\n", "y\n"} {
		_, err := st.Write(ctx, []byte(r))
		require.NoError(t, err)
	}
	require.NoError(t, st.Close())
	require.Equal(t, []logstore.EvictReason{logstore.EvictOverflow, logstore.EvictTeardown}, reasons)
}
