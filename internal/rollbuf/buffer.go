// Package rollbuf provides Buffer, a fixed-size sequence that keeps only the
// most recently added elements. Once Size elements are stored each Add
// overwrites the oldest one in O(1) without shifting the rest.
//
// A Buffer is not safe for concurrent use. Callers sharing one between
// goroutines must guard mutations (Add, AddRange, Set, Resize, Clear) with an
// exclusive lock; read-only calls may share a read lock.
package rollbuf

import (
	"iter"
	"slices"
)

// NotFound is returned by IndexOf and IndexFunc when no element matches.
const NotFound = -1

// Buffer is a rolling window over the last Size elements added to it.
//
// The backing slice grows on demand up to size. Once it is full, head marks
// the slot that holds the oldest element and wraps as new elements arrive.
type Buffer[T any] struct {
	items []T
	size  int
	head  int
}

// New returns an empty buffer retaining at most size elements.
func New[T any](size int) (*Buffer[T], error) {
	return NewWithCapacity[T](size, 0)
}

// NewWithCapacity is like New but reserves capacity slots up front.
// The capacity is clamped to [0, size].
func NewWithCapacity[T any](size, capacity int) (*Buffer[T], error) {
	if size < 0 {
		return nil, newArgumentError("size", size, ErrBelowRange)
	}
	capacity = min(max(capacity, 0), size)
	return &Buffer[T]{
		items: make([]T, 0, capacity),
		size:  size,
	}, nil
}

// NewFrom returns a buffer of the given size seeded with the elements of seq,
// added in order. Only the last size elements of seq survive.
func NewFrom[T any](size int, seq iter.Seq[T]) (*Buffer[T], error) {
	b, err := New[T](size)
	if err != nil {
		return nil, err
	}
	b.AddSeq(seq)
	return b, nil
}

// Count returns the number of elements currently stored.
func (b *Buffer[T]) Count() int {
	return len(b.items)
}

// Size returns the maximum number of elements the buffer retains.
func (b *Buffer[T]) Size() int {
	return b.size
}

// Capacity returns the number of reserved slots in the backing slice.
func (b *Buffer[T]) Capacity() int {
	return cap(b.items)
}

// Full reports whether the next Add will overwrite the oldest element.
func (b *Buffer[T]) Full() bool {
	return b.size > 0 && len(b.items) == b.size
}

// Get returns the element at logical index, where 0 is the oldest.
func (b *Buffer[T]) Get(index int) (T, error) {
	if err := checkIndex(index, len(b.items)); err != nil {
		var zero T
		return zero, err
	}
	return b.items[toPhysical(index, b.head, b.size)], nil
}

// Set replaces the element at logical index.
func (b *Buffer[T]) Set(index int, v T) error {
	if err := checkIndex(index, len(b.items)); err != nil {
		return err
	}
	b.items[toPhysical(index, b.head, b.size)] = v
	return nil
}

// Last returns the most recently added element.
func (b *Buffer[T]) Last() (T, bool) {
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}
	return b.items[toPhysical(len(b.items)-1, b.head, b.size)], true
}

// Add appends v, overwriting the oldest element when the buffer is full.
// Adding to a buffer of size 0 does nothing.
func (b *Buffer[T]) Add(v T) {
	if b.size == 0 {
		return
	}
	if len(b.items) < b.size {
		if len(b.items) == cap(b.items) {
			b.grow()
		}
		b.items = append(b.items, v)
		return
	}
	b.items[b.head] = v
	b.head = (b.head + 1) % b.size
}

// AddRange adds items in order as if by repeated calls to Add.
func (b *Buffer[T]) AddRange(items ...T) {
	if b.size == 0 {
		return
	}
	if len(items) < b.size {
		for _, v := range items {
			b.Add(v)
		}
		return
	}
	// Everything currently stored would be overwritten anyway.
	b.Clear()
	if cap(b.items) < b.size {
		b.items = make([]T, 0, b.size)
	}
	b.items = append(b.items, items[len(items)-b.size:]...)
}

// AddSeq adds every element of seq in order.
func (b *Buffer[T]) AddSeq(seq iter.Seq[T]) {
	if seq == nil {
		return
	}
	for v := range seq {
		b.Add(v)
	}
}

// Resize changes the number of retained elements. Growing keeps every
// element. Shrinking below Count keeps only the newest size elements.
func (b *Buffer[T]) Resize(size int) error {
	if size < 0 {
		return newArgumentError("size", size, ErrBelowRange)
	}

	switch {
	case size == b.size:
		return nil

	case size > b.size:
		// The wrap position is relative to the old size.
		if b.head != 0 {
			b.items = b.Items()
			b.head = 0
		}

	case len(b.items) > size:
		b.items = b.newest(size)
		b.head = 0

	case cap(b.items) > size:
		// Not full, so head is 0. Drop the spare capacity past size.
		items := make([]T, len(b.items), size)
		copy(items, b.items)
		b.items = items
	}

	b.size = size
	return nil
}

// Clear removes all elements. The size is unchanged.
func (b *Buffer[T]) Clear() {
	clear(b.items)
	b.items = b.items[:0]
	b.head = 0
}

// IndexFunc returns the logical index of the first element, in insertion
// order, satisfying fn, or NotFound.
func (b *Buffer[T]) IndexFunc(fn func(T) bool) int {
	older, newer := b.segments()
	if p := slices.IndexFunc(older, fn); p >= 0 {
		return toLogical(b.head+p, b.head, b.size)
	}
	if p := slices.IndexFunc(newer, fn); p >= 0 {
		return toLogical(p, b.head, b.size)
	}
	return NotFound
}

// ContainsFunc reports whether any element satisfies fn.
func (b *Buffer[T]) ContainsFunc(fn func(T) bool) bool {
	return b.IndexFunc(fn) != NotFound
}

// CopyTo copies the elements oldest first into dst starting at offset.
func (b *Buffer[T]) CopyTo(dst []T, offset int) error {
	if offset < 0 {
		return newArgumentError("offset", offset, ErrBelowRange)
	}
	if len(dst)-offset < len(b.items) {
		return newArgumentError("dst", len(dst), ErrInvalidArgument)
	}
	older, newer := b.segments()
	n := copy(dst[offset:], older)
	copy(dst[offset+n:], newer)
	return nil
}

// Items returns a copy of the elements, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	_ = b.CopyTo(out, 0)
	return out
}

// All returns an iterator over index and element pairs, oldest first.
func (b *Buffer[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := range len(b.items) {
			if !yield(i, b.items[toPhysical(i, b.head, b.size)]) {
				return
			}
		}
	}
}

// Values returns an iterator over the elements, oldest first.
func (b *Buffer[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range b.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// ForEach calls fn with a pointer to each element, oldest first.
// Return false from fn to stop early.
func (b *Buffer[T]) ForEach(fn func(*T) bool) {
	older, newer := b.segments()
	for _, seg := range [][]T{older, newer} {
		for i := range seg {
			if !fn(&seg[i]) {
				return
			}
		}
	}
}

// InsertAt always fails. Elements can only be added at the tail.
func (b *Buffer[T]) InsertAt(int, T) error {
	return &UnsupportedError{Op: "insert"}
}

// RemoveAt always fails. Elements leave the buffer only by being overwritten,
// by Resize or by Clear.
func (b *Buffer[T]) RemoveAt(int) error {
	return &UnsupportedError{Op: "remove at"}
}

// Remove always fails, see RemoveAt.
func (b *Buffer[T]) Remove(T) error {
	return &UnsupportedError{Op: "remove"}
}

// segments splits the backing slice into the older and newer runs.
// older followed by newer is the logical order.
func (b *Buffer[T]) segments() (older, newer []T) {
	return b.items[b.head:], b.items[:b.head]
}

// newest returns a fresh slice holding the last n elements in logical order.
func (b *Buffer[T]) newest(n int) []T {
	out := make([]T, n)
	skip := len(b.items) - n
	for i := range out {
		out[i] = b.items[toPhysical(skip+i, b.head, b.size)]
	}
	return out
}

func (b *Buffer[T]) grow() {
	items := make([]T, len(b.items), growCapacity(cap(b.items), b.size))
	copy(items, b.items)
	b.items = items
}
