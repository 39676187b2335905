// Package chardev exposes a logstore.Store through a file-like handle with a
// private cursor, mirroring the semantics of a character device node:
// a read returns at most the rest of one entry, writes append to the pending
// record, seeks are bounded by the current logical length, and an ioctl-style
// SEEK_TO positions the cursor by (entry, offset).
package chardev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rzbill/cmdlog/internal/logstore"
)

var (
	// ErrInvalidArgument: a seek target outside the content or an invalid SEEK_TO.
	ErrInvalidArgument = errors.New("chardev: invalid argument")
	// ErrNotSupported: unknown ioctl command.
	ErrNotSupported = errors.New("chardev: command not supported")
	// ErrClosed: operation on a closed handle.
	ErrClosed = errors.New("chardev: file closed")
)

// IoctlCmd identifies a positioning command.
type IoctlCmd uint32

// IocSeekTo repositions the cursor with a SeekTo argument.
const IocSeekTo IoctlCmd = 1

// SeekTo is the argument of IocSeekTo.
type SeekTo struct {
	WriteCmd       uint32
	WriteCmdOffset uint32
}

// File is an open handle. A File is safe for concurrent use, but concurrent
// readers share one cursor.
type File struct {
	store *logstore.Store
	ctx   context.Context

	mu     sync.Mutex
	pos    int64
	closed bool
}

// Open returns a handle positioned at the start of the log. Blocking lock
// waits are interrupted when ctx is done.
func Open(ctx context.Context, store *logstore.Store) *File {
	return &File{store: store, ctx: ctx}
}

// Read copies bytes from the entry containing the cursor, never crossing into
// the next entry, and advances the cursor. It returns io.EOF at the end of the
// content.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	chunk, err := f.store.Read(f.ctx, f.pos, len(p))
	if err != nil {
		return 0, err
	}
	if len(chunk) == 0 {
		return 0, io.EOF
	}
	n := copy(p, chunk)
	f.pos += int64(n)
	return n, nil
}

// Write appends p to the store's pending record and reports all of it accepted.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	res, err := f.store.Write(f.ctx, p)
	if err != nil {
		return 0, err
	}
	return res.Accepted, nil
}

// Seek implements io.Seeker with the logical length as the file size.
// Targets outside [0, size] are rejected without moving the cursor.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	size, err := f.store.TotalLength(f.ctx)
	if err != nil {
		return 0, err
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.pos + offset
	case io.SeekEnd:
		target = size + offset
	default:
		return 0, fmt.Errorf("whence %d: %w", whence, ErrInvalidArgument)
	}
	if target < 0 || target > size {
		return 0, fmt.Errorf("seek to %d of %d: %w", target, size, ErrInvalidArgument)
	}
	f.pos = target
	return target, nil
}

// Ioctl runs a positioning command. Only IocSeekTo is supported; on any
// failure the cursor is left where it was.
func (f *File) Ioctl(cmd IoctlCmd, arg SeekTo) error {
	if cmd != IocSeekTo {
		return fmt.Errorf("ioctl %d: %w", cmd, ErrNotSupported)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	pos, err := f.store.SeekTo(f.ctx, int64(arg.WriteCmd), int64(arg.WriteCmdOffset))
	if errors.Is(err, logstore.ErrInvalidSeek) {
		return fmt.Errorf("seekto %d,%d: %w", arg.WriteCmd, arg.WriteCmdOffset, ErrInvalidArgument)
	}
	if err != nil {
		return err
	}
	f.pos = pos
	return nil
}

// Pos returns the cursor.
func (f *File) Pos() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

// Close releases the handle. The store stays open.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)
