// Package queue provides a fixed-capacity FIFO ring buffer.
package queue

import (
	"sync"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
)

// Bounded is a FIFO queue with a fixed capacity.
// Pushing onto a full queue overwrites the oldest element.
//
// Thread-safety: Bounded is safe for concurrent use.
type Bounded[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // index of the oldest element
	count int
}

// NewBounded creates a queue holding at most capacity elements.
// Returns a ValidationError if capacity is less than one.
func NewBounded[T any](capacity int) (*Bounded[T], error) {
	if capacity < 1 {
		return nil, domain.NewValidationError("capacity", capacity, "must be at least 1")
	}
	return &Bounded[T]{buf: make([]T, capacity)}, nil
}

// Push appends item at the tail. On a full queue the oldest element is dropped.
// Reports whether an element was overwritten.
func (q *Bounded[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	tail := (q.head + q.count) % len(q.buf)
	q.buf[tail] = item

	if q.count == len(q.buf) {
		q.head = (q.head + 1) % len(q.buf)
		return true
	}
	q.count++
	return false
}

// Pop removes and returns the oldest element.
// Returns domain.ErrQueueEmpty if there is nothing to pop.
func (q *Bounded[T]) Pop() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.count == 0 {
		return zero, domain.ErrQueueEmpty
	}

	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return item, nil
}

// Peek returns the oldest element without removing it.
func (q *Bounded[T]) Peek() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, domain.ErrQueueEmpty
	}
	return q.buf[q.head], nil
}

// At returns the element at logical position i, where 0 is the oldest.
// Returns domain.ErrInvalidIndex when i is outside [0, Len()).
func (q *Bounded[T]) At(i int) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i < 0 || i >= q.count {
		var zero T
		return zero, domain.ErrInvalidIndex
	}
	return q.buf[(q.head+i)%len(q.buf)], nil
}

// RemoveAt deletes the element at logical position i, keeping the order of the rest.
func (q *Bounded[T]) RemoveAt(i int) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if i < 0 || i >= q.count {
		return zero, domain.ErrInvalidIndex
	}

	n := len(q.buf)
	item := q.buf[(q.head+i)%n]
	for j := i; j < q.count-1; j++ {
		q.buf[(q.head+j)%n] = q.buf[(q.head+j+1)%n]
	}
	q.buf[(q.head+q.count-1)%n] = zero
	q.count--
	return item, nil
}

// Slice returns the queued elements from oldest to newest.
func (q *Bounded[T]) Slice() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, q.count)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}

// Clear removes every element.
func (q *Bounded[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.buf)
	q.head = 0
	q.count = 0
}

// Len returns the number of queued elements.
func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity returns the maximum number of elements.
func (q *Bounded[T]) Capacity() int {
	return len(q.buf)
}

// IsEmpty reports whether the queue holds no elements.
func (q *Bounded[T]) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether the next Push will overwrite the oldest element.
func (q *Bounded[T]) IsFull() bool {
	return q.Len() == len(q.buf)
}
