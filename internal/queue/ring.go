// Package queue provides a fixed-capacity FIFO used to hold outgoing worker
// requests when the request channel is momentarily full.
package queue

// Ring is a circular FIFO of T with a capacity fixed at construction.
// It never grows and never allocates after NewRing, so it is safe on the
// real-time path. It is not safe for concurrent use; the stream owns it.
type Ring[T any] struct {
	data     []T
	size     int
	readPos  int
	writePos int
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

// Push appends v. It returns false, leaving the ring unchanged, when full.
func (r *Ring[T]) Push(v T) bool {
	if r.size == len(r.data) {
		return false
	}
	r.data[r.writePos] = v
	r.writePos = (r.writePos + 1) % len(r.data)
	r.size++
	return true
}

// Peek returns the oldest item without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.data[r.readPos], true
}

// Pop removes and returns the oldest item.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	v := r.data[r.readPos]
	r.data[r.readPos] = zero // drop the reference
	r.readPos = (r.readPos + 1) % len(r.data)
	r.size--
	return v, true
}

// Len returns the number of queued items.
func (r *Ring[T]) Len() int {
	return r.size
}

// Clear drops every queued item.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.size = 0
	r.readPos = 0
	r.writePos = 0
}
