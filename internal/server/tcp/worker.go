package tcp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/rzbill/cmdlog/internal/logstore"
	"github.com/rzbill/cmdlog/pkg/id"
	"github.com/rzbill/cmdlog/pkg/log"
)

// ErrRecordTooLarge aborts a connection whose record exceeds MaxRecordBytes
// before a terminator arrives.
var ErrRecordTooLarge = errors.New("tcp: record exceeds max record bytes")

// Store is the part of logstore.Store a worker uses.
type Store interface {
	Write(ctx context.Context, p []byte) (logstore.WriteResult, error)
	ReadAll(ctx context.Context) ([]byte, error)
}

type worker struct {
	id       id.ID
	conn     net.Conn
	done     chan struct{}
	complete atomic.Bool
}

func newWorker(wid id.ID, conn net.Conn) *worker {
	return &worker{id: wid, conn: conn, done: make(chan struct{})}
}

// run handles one connection. complete is set after the connection is closed
// and done is closed right after, so a reaper that sees complete never blocks.
func (w *worker) run(ctx context.Context, store Store, maxRecord int, logger log.Logger, metrics MetricsHook) {
	defer func() {
		w.complete.Store(true)
		close(w.done)
	}()
	defer w.conn.Close()

	result := w.serve(ctx, store, maxRecord, logger)
	metrics.ObserveConnection(result)
}

func (w *worker) serve(ctx context.Context, store Store, maxRecord int, logger log.Logger) string {
	record, err := readRecord(w.conn, maxRecord)
	if err != nil {
		if errors.Is(err, ErrRecordTooLarge) {
			logger.Warn("record too large; dropping connection", log.Int("max_bytes", maxRecord))
			return "too_large"
		}
		logger.Warn("read failed", log.Err(err))
		return "read_error"
	}

	if _, err := store.Write(ctx, record); err != nil {
		logger.Error("append failed", log.Err(err))
		return "store_error"
	}
	content, err := store.ReadAll(ctx)
	if err != nil {
		logger.Error("read back failed", log.Err(err))
		return "store_error"
	}
	if _, err := w.conn.Write(content); err != nil {
		logger.Warn("reply failed", log.Err(err))
		return "write_error"
	}
	logger.Debug("record handled", log.Int("record_bytes", len(record)), log.Int("reply_bytes", len(content)))
	return "ok"
}

// readRecord reads until the first newline (kept, anything after it in the
// same chunk discarded) or EOF (everything read so far, possibly nothing).
func readRecord(r io.Reader, maxRecord int) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, readChunk)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if i := bytes.IndexByte(chunk[:n], logstore.Terminator); i >= 0 {
				if len(buf)+i+1 > maxRecord {
					return nil, ErrRecordTooLarge
				}
				return append(buf, chunk[:i+1]...), nil
			}
			if len(buf)+n > maxRecord {
				return nil, ErrRecordTooLarge
			}
			buf = append(buf, chunk[:n]...)
		}
		if errors.Is(err, io.EOF) {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
