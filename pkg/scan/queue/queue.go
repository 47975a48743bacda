package queue

import "sync"

// Queue is a mutex guarded FIFO that keeps a lifetime counter of every
// push. The counter is never decremented by pops; only Reset clears it.
// Pushes can arrive from transport callbacks while a drain loop is
// consuming, so every operation takes the lock.
type Queue[T any] struct {
	mu          sync.Mutex
	items       []T
	totalPushed int64
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	q.totalPushed++
}

// Pop removes and returns the oldest item. The second return value is
// false when the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TotalPushed returns how many items were ever pushed, regardless of the
// current length.
func (q *Queue[T]) TotalPushed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalPushed
}

func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Reset clears the queue and zeroes the lifetime counter.
func (q *Queue[T]) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.totalPushed = 0
}
