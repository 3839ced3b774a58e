// Package buffer implements SmallBuffer, an owned byte container tuned
// for the short value payloads that dominate steady-state federate
// traffic. Payloads at or below inlineCapacity never touch the heap;
// larger payloads fall back to a heap-backed slice, and external memory
// can be wrapped without taking ownership.
package buffer

import "bytes"

// inlineCapacity is the size of the inline array a SmallBuffer can hold
// without allocating. Chosen to cover the common case of short
// published values (booleans, small structs, short strings) seen in
// federate publications.
const inlineCapacity = 64

// SmallBuffer is an owned, resizable byte container with small-buffer
// optimization. The zero value is an empty, owning-inline buffer ready
// to use.
type SmallBuffer struct {
	inline  [inlineCapacity]byte
	heap    []byte
	length  int
	span    bool // true: non-owning view over external memory
	locked  bool // true: reallocation falls back to copy or fails
}

// ErrLocked is returned when an operation on a locked buffer would
// require a reallocation the lock forbids.
var ErrLocked = bufferError("buffer is locked: refusing to reallocate")

type bufferError string

func (e bufferError) Error() string { return string(e) }

// usingHeap reports whether the buffer's live bytes are presently
// materialized in heap (or external span) storage rather than inline.
func (b *SmallBuffer) usingHeap() bool {
	return b.heap != nil
}

// bytesRef returns a slice over the buffer's current content without
// copying.
func (b *SmallBuffer) bytesRef() []byte {
	if b.usingHeap() {
		return b.heap[:b.length]
	}
	return b.inline[:b.length]
}

// Len returns the number of live bytes.
func (b *SmallBuffer) Len() int { return b.length }

// IsSpan reports whether the buffer is a non-owning view over external
// memory.
func (b *SmallBuffer) IsSpan() bool { return b.span }

// IsLocked reports whether the buffer is locked against reallocation.
func (b *SmallBuffer) IsLocked() bool { return b.locked }

// Lock prevents future reallocation; subsequent growth beyond current
// capacity copies into a fresh allocation only if unlocked again, and
// moveAssign/resize calls that would otherwise reallocate instead fail
// with ErrLocked.
func (b *SmallBuffer) Lock() { b.locked = true }

// Unlock clears the lock set by Lock.
func (b *SmallBuffer) Unlock() { b.locked = false }

// capacity returns the number of bytes the current storage can hold
// without reallocating.
func (b *SmallBuffer) capacity() int {
	if b.usingHeap() {
		return cap(b.heap)
	}
	return inlineCapacity
}

// Reserve ensures the buffer can hold at least n bytes without a
// further reallocation, preserving existing content. Returns ErrLocked
// if growth is required on a locked buffer.
func (b *SmallBuffer) Reserve(n int) error {
	if n <= b.capacity() {
		return nil
	}
	if b.locked {
		return ErrLocked
	}
	grown := make([]byte, b.length, n)
	copy(grown, b.bytesRef())
	b.heap = grown
	b.span = false
	return nil
}

// Resize sets the buffer's logical length to n, growing storage if
// necessary and zero-filling any newly exposed bytes. Shrinking never
// reallocates.
func (b *SmallBuffer) Resize(n int) error {
	if n < 0 {
		n = 0
	}
	if n > b.capacity() {
		if err := b.Reserve(n); err != nil {
			return err
		}
	}
	if n > b.length {
		tail := b.bytesRef()[:n]
		for i := b.length; i < n; i++ {
			tail[i] = 0
		}
	}
	b.length = n
	return nil
}

// Assign copies len(data) bytes from data into the buffer, reallocating
// if the content doesn't fit in current storage.
func (b *SmallBuffer) Assign(data []byte) error {
	if err := b.Reserve(len(data)); err != nil {
		return err
	}
	dst := b.storageSlice()
	copy(dst, data)
	b.length = len(data)
	b.span = false
	return nil
}

// storageSlice returns the full backing slice (inline array or heap)
// regardless of current length, for writing.
func (b *SmallBuffer) storageSlice() []byte {
	if b.usingHeap() {
		return b.heap[:cap(b.heap)]
	}
	return b.inline[:]
}

// Append appends data to the buffer's current content, reallocating if
// necessary.
func (b *SmallBuffer) Append(data []byte) error {
	needed := b.length + len(data)
	if err := b.Reserve(needed); err != nil {
		return err
	}
	if b.usingHeap() && cap(b.heap) < needed {
		grown := make([]byte, needed)
		copy(grown, b.bytesRef())
		b.heap = grown
	}
	dst := b.storageSlice()
	copy(dst[b.length:needed], data)
	b.length = needed
	return nil
}

// PushBack appends a single byte.
func (b *SmallBuffer) PushBack(c byte) error {
	return b.Append([]byte{c})
}

// ToStringView returns the buffer's content as a string. The bytes are
// copied, so later changes to the buffer do not affect the result.
func (b *SmallBuffer) ToStringView() string {
	return string(b.bytesRef())
}

// NullTerminate ensures the buffer's content is NUL-terminated without
// increasing the reported Len() when capacity already allows it:
// writes a terminator just past the current length if capacity
// permits, otherwise appends the terminator and then "pops" it back
// out of the logical length.
func (b *SmallBuffer) NullTerminate() error {
	if b.length < b.capacity() {
		b.storageSlice()[b.length] = 0
		return nil
	}
	if err := b.Append([]byte{0}); err != nil {
		return err
	}
	b.length--
	return nil
}

// MoveAssign takes ownership of the caller's slice data, freeing any
// prior heap storage.
// Fails with ErrLocked if the buffer is locked, since taking ownership
// of new storage is a reallocation in spirit.
func (b *SmallBuffer) MoveAssign(data []byte) error {
	if b.locked {
		return ErrLocked
	}
	b.heap = data
	b.length = len(data)
	b.span = false
	return nil
}

// SpanAssign wraps external memory without taking ownership. The
// buffer will never free data; callers must keep it alive for as long
// as the SmallBuffer is used in span mode.
func (b *SmallBuffer) SpanAssign(data []byte) error {
	if b.locked {
		return ErrLocked
	}
	b.heap = data
	b.length = len(data)
	b.span = true
	return nil
}

// Release yields the buffer's heap storage to the caller and reverts
// the buffer to an empty, owning-inline state. Returns nil if the
// buffer is presently using inline storage or is a non-owning span
// (nothing to release).
func (b *SmallBuffer) Release() []byte {
	if !b.usingHeap() || b.span {
		return nil
	}
	out := b.heap[:b.length]
	b.heap = nil
	b.length = 0
	b.span = false
	return out
}

// Clone returns a deep, owning copy of the buffer's content, ignoring
// the source's lock and span state.
func (b *SmallBuffer) Clone() *SmallBuffer {
	out := &SmallBuffer{}
	_ = out.Assign(b.bytesRef())
	return out
}

// CopyFrom replaces the buffer's content with a copy of src's content.
// If the destination is locked and the new content doesn't fit
// existing storage, returns ErrLocked and leaves the buffer unchanged.
func (b *SmallBuffer) CopyFrom(src *SmallBuffer) error {
	data := src.bytesRef()
	if len(data) > b.capacity() && b.locked {
		return ErrLocked
	}
	return b.Assign(data)
}

// Equal reports byte-wise equality between two buffers, ignoring
// storage mode (inline vs heap vs span) and lock state.
func (b *SmallBuffer) Equal(other *SmallBuffer) bool {
	if other == nil {
		return b.length == 0
	}
	return bytes.Equal(b.bytesRef(), other.bytesRef())
}
