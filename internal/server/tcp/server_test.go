package tcp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rzbill/cmdlog/internal/logstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type running struct {
	srv    *Server
	addr   string
	cancel context.CancelFunc
	errCh  chan error
}

func startServer(t *testing.T, store Store, opts Options) *running {
	t.Helper()
	opts.Addr = "127.0.0.1:0"
	srv := New(store, opts)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Listen(ctx))
	require.Equal(t, StateListening, srv.State())

	r := &running{srv: srv, addr: srv.Addr().String(), cancel: cancel, errCh: make(chan error, 1)}
	go func() { r.errCh <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-r.errCh:
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return r
}

func (r *running) stop(t *testing.T) error {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.errCh:
		r.errCh <- err
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
		return nil
	}
}

func send(t *testing.T, addr, msg string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(msg))
	require.NoError(t, err)
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(reply)
}

func TestSingleRecordEchoesLog(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{})

	require.Equal(t, "hello\n", send(t, r.addr, "hello\n"))
}

func TestSecondClientSeesFirstRecord(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{})

	require.Equal(t, "foo\n", send(t, r.addr, "foo\n"))
	require.Equal(t, "foo\nbar\n", send(t, r.addr, "bar\n"))
}

func TestOldestRecordEvicted(t *testing.T) {
	st := logstore.New(logstore.Options{Capacity: 2})
	defer st.Close()
	r := startServer(t, st, Options{})

	send(t, r.addr, "1\n")
	send(t, r.addr, "2\n")
	require.Equal(t, "2\n3\n", send(t, r.addr, "3\n"))
}

func TestBytesAfterNewlineDropped(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{})

	require.Equal(t, "a\n", send(t, r.addr, "a\nextra"))
}

func TestRecordSpanningChunks(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{})

	big := make([]byte, 3*readChunk)
	for i := range big {
		big[i] = 'x'
	}
	msg := string(big) + "\n"
	require.Equal(t, msg, send(t, r.addr, msg))
}

func TestEOFWithoutTerminatorStaysPending(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{})

	send(t, r.addr, "first\n")

	conn, err := net.Dial("tcp", r.addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.Equal(t, "first\n", string(reply))

	require.Equal(t, "first\npartialnext\n", send(t, r.addr, "next\n"))
}

func TestRecordTooLargeDropsConnection(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{MaxRecordBytes: 8})

	conn, err := net.Dial("tcp", r.addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	reply, _ := io.ReadAll(conn)
	require.Empty(t, reply)

	n, err := st.TotalLength(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

// gatedStore holds ReadAll until release is closed.
type gatedStore struct {
	*logstore.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ReadAll(ctx context.Context) ([]byte, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.Store.ReadAll(ctx)
}

func TestShutdownJoinsInflightWorkers(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	g := &gatedStore{Store: st, entered: make(chan struct{}, 1), release: make(chan struct{})}
	r := startServer(t, g, Options{})

	// slow client: connected, record incomplete
	slow, err := net.Dial("tcp", r.addr)
	require.NoError(t, err)
	defer slow.Close()
	_, err = slow.Write([]byte("slow"))
	require.NoError(t, err)

	// committed client: blocked between commit and reply
	fast, err := net.Dial("tcp", r.addr)
	require.NoError(t, err)
	defer fast.Close()
	_, err = fast.Write([]byte("fast\n"))
	require.NoError(t, err)
	<-g.entered

	r.cancel()
	require.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", r.addr, 50*time.Millisecond)
		if err != nil {
			return true
		}
		c.Close()
		return false
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, StateShuttingDown, r.srv.State())

	select {
	case <-r.errCh:
		t.Fatalf("Serve returned with workers in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	fastReply, err := io.ReadAll(fast)
	require.NoError(t, err)
	require.Equal(t, "fast\n", string(fastReply))

	_, err = slow.Write([]byte("\n"))
	require.NoError(t, err)
	<-g.entered
	slowReply, err := io.ReadAll(slow)
	require.NoError(t, err)
	require.Equal(t, "fast\nslow\n", string(slowReply))

	require.NoError(t, r.stop(t))
	require.Equal(t, StateStopped, r.srv.State())
}

func TestDrainTimeoutClosesStuckWorkers(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{DrainTimeout: 50 * time.Millisecond})

	stuck, err := net.Dial("tcp", r.addr)
	require.NoError(t, err)
	defer stuck.Close()
	_, err = stuck.Write([]byte("never finished"))
	require.NoError(t, err)
	// let the accept loop pick it up
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, r.stop(t))
	reply, _ := io.ReadAll(stuck)
	require.Empty(t, reply)
}

func TestCloseStopsServeWithError(t *testing.T) {
	st := logstore.New(logstore.Options{})
	defer st.Close()
	r := startServer(t, st, Options{})

	require.NoError(t, r.srv.Close())
	select {
	case err := <-r.errCh:
		require.Error(t, err)
		r.errCh <- err
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return")
	}
	require.Equal(t, StateStopped, r.srv.State())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "listening", StateListening.String())
	require.Equal(t, "State(9)", State(9).String())
}
