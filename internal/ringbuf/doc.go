// Package ringbuf implements the fixed-capacity ring of command entries that
// backs a cmdlog store.
//
// # Layout
//
// A Buffer holds N slots plus two indices: in (next slot to write) and out
// (oldest live slot), and a full flag to tell "empty" (in == out, !full) from
// "full" (in == out, full). Live entries are the circular span [out, in), or
// all N slots starting at out when full. The logical content of the buffer is
// the concatenation of the live entries' bytes, oldest first; byte offsets
// into it are called fpos.
//
// Adding to a full buffer overwrites the oldest entry and hands it back to the
// caller as evicted.
//
// The package does no locking. Callers serialize access.
package ringbuf
