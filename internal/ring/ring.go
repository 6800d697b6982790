// Package ring provides a fixed-capacity FIFO buffer.
//
// A Buffer is allocated once with its capacity and never grows. Pushing into a
// full buffer overwrites the oldest element. The same type backs the audio
// level timeline (read oldest-first) and the clipboard history (read
// newest-first).
package ring

// Buffer is a fixed-capacity ring. The zero value has capacity zero and drops
// every push; use New.
type Buffer[T any] struct {
	items []T
	head  int // index of the oldest element
	size  int
}

// New returns an empty buffer holding at most capacity elements.
// A non-positive capacity yields a buffer that discards everything.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Push appends v as the newest element, evicting the oldest when full.
// It reports whether an element was evicted.
func (b *Buffer[T]) Push(v T) (evicted bool) {
	capacity := len(b.items)
	if capacity == 0 {
		return false
	}
	if b.size < capacity {
		b.items[(b.head+b.size)%capacity] = v
		b.size++
		return false
	}
	b.items[b.head] = v
	b.head = (b.head + 1) % capacity
	return true
}

// At returns the i-th element counting from the oldest.
func (b *Buffer[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= b.size {
		return zero, false
	}
	return b.items[(b.head+i)%len(b.items)], true
}

// Newest returns the most recently pushed element.
func (b *Buffer[T]) Newest() (T, bool) {
	return b.At(b.size - 1)
}

// Remove deletes the i-th element counting from the oldest, preserving the
// order of the rest.
func (b *Buffer[T]) Remove(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	ordered := b.Oldest()
	ordered = append(ordered[:i], ordered[i+1:]...)
	b.Reset()
	for _, v := range ordered {
		b.Push(v)
	}
	return true
}

// Oldest returns a copy of the contents ordered oldest to newest.
func (b *Buffer[T]) Oldest() []T {
	out := make([]T, b.size)
	for i := range out {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// NewestFirst returns a copy of the contents ordered newest to oldest.
func (b *Buffer[T]) NewestFirst() []T {
	out := make([]T, b.size)
	for i := range out {
		out[i] = b.items[(b.head+b.size-1-i)%len(b.items)]
	}
	return out
}

// Fill replaces the contents with capacity copies of v.
func (b *Buffer[T]) Fill(v T) {
	for i := range b.items {
		b.items[i] = v
	}
	b.head = 0
	b.size = len(b.items)
}

// Reset empties the buffer without releasing its storage.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head = 0
	b.size = 0
}
