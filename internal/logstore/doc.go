// Package logstore wraps a ringbuf.Buffer with a pending-write accumulator
// and a single coarse lock.
//
// Bytes written to a Store accumulate as a pending record until a write call
// ends with the terminator byte; that call commits everything pending as one
// entry. Only the final byte of each call is inspected, so a terminator in the
// middle of a call does not split the record.
//
//	st := logstore.New(logstore.Options{Capacity: 10})
//	defer st.Close()
//	_, _ = st.Write(ctx, []byte("hello\n"))
//	all, _ := st.ReadAll(ctx)
//
// Every exported operation holds the lock for its whole duration and never
// across calls. Lock acquisition observes the caller's context: a context that
// is done before the lock is obtained yields ErrInterrupted and no mutation.
package logstore
