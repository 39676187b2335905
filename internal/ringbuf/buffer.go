package ringbuf

// DefaultCapacity is the number of slots used when New is given a capacity below one.
const DefaultCapacity = 10

// Entry is one committed record.
type Entry struct {
	Data []byte
}

// Size returns the entry length in bytes.
func (e Entry) Size() int64 { return int64(len(e.Data)) }

// Buffer is a fixed-capacity FIFO ring of entries.
type Buffer struct {
	slots []Entry
	in    int
	out   int
	full  bool
}

// New returns an empty buffer with the given number of slots.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{slots: make([]Entry, capacity)}
}

// Cap returns the slot count.
func (b *Buffer) Cap() int { return len(b.slots) }

// Len returns the number of live entries.
func (b *Buffer) Len() int {
	switch {
	case b.full:
		return len(b.slots)
	case b.in >= b.out:
		return b.in - b.out
	default:
		return len(b.slots) - b.out + b.in
	}
}

// Empty reports whether the buffer holds no live entries.
func (b *Buffer) Empty() bool { return b.in == b.out && !b.full }

// Full reports whether every slot holds a live entry.
func (b *Buffer) Full() bool { return b.full }

// AddEntry stores e at the write index. When the buffer was already full, the
// oldest entry is overwritten and returned with ok set.
func (b *Buffer) AddEntry(e Entry) (evicted Entry, ok bool) {
	n := len(b.slots)
	old := b.slots[b.in]
	b.slots[b.in] = e
	b.in = (b.in + 1) % n
	if b.in == b.out {
		wasFull := b.full
		b.full = true
		if wasFull {
			// single slot: the write index wrapped onto the entry just replaced
			return old, true
		}
		return Entry{}, false
	}
	if b.full {
		b.out = (b.out + 1) % n
		return old, true
	}
	return Entry{}, false
}

// walk calls fn for every live entry oldest first, passing its position in
// the live sequence. It stops when fn returns false. Live slots form the
// array ranges [out, end) and, when the span wraps, [0, in).
func (b *Buffer) walk(fn func(pos int, e Entry) bool) {
	wraps := b.in < b.out || (b.in == b.out && b.full)
	end := b.in
	if wraps {
		end = len(b.slots)
	}
	pos := 0
	for i := b.out; i < end; i++ {
		if !fn(pos, b.slots[i]) {
			return
		}
		pos++
	}
	if !wraps {
		return
	}
	for i := 0; i < b.in; i++ {
		if !fn(pos, b.slots[i]) {
			return
		}
		pos++
	}
}

// FindEntryForOffset locates the entry containing byte fpos of the logical
// content and the offset of that byte within the entry. ok is false when
// fpos is negative or not below TotalLength.
func (b *Buffer) FindEntryForOffset(fpos int64) (e Entry, local int64, ok bool) {
	if fpos < 0 {
		return Entry{}, 0, false
	}
	var seen int64
	b.walk(func(_ int, cur Entry) bool {
		if seen+cur.Size() > fpos {
			e, local, ok = cur, fpos-seen, true
			return false
		}
		seen += cur.Size()
		return true
	})
	return e, local, ok
}

// FindFposForEntryOffset converts (index into the live sequence, offset within
// that entry) into an absolute fpos. The offset is clamped to the entry size
// so the result never lands inside the next entry. When index is past the
// last live entry the total length is returned with ok false.
func (b *Buffer) FindFposForEntryOffset(index, offset int64) (fpos int64, ok bool) {
	if offset < 0 {
		offset = 0
	}
	b.walk(func(pos int, cur Entry) bool {
		if int64(pos) == index {
			fpos += min(offset, cur.Size())
			ok = true
			return false
		}
		fpos += cur.Size()
		return true
	})
	return fpos, ok
}

// TotalLength returns the sum of live entry sizes.
func (b *Buffer) TotalLength() int64 {
	var total int64
	b.walk(func(_ int, e Entry) bool {
		total += e.Size()
		return true
	})
	return total
}

// Entries returns the live entries oldest first. The entries share backing
// arrays with the buffer and must not be modified.
func (b *Buffer) Entries() []Entry {
	out := make([]Entry, 0, b.Len())
	b.walk(func(_ int, e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Reset tears the buffer down to empty and returns the entries that were live.
func (b *Buffer) Reset() []Entry {
	live := b.Entries()
	for i := range b.slots {
		b.slots[i] = Entry{}
	}
	b.in, b.out, b.full = 0, 0, false
	return live
}
