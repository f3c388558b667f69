package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MemoryQueue is a bounded in-memory queue with context-aware operations,
// used for local development and tests.
type MemoryQueue struct {
	ch      chan Payload
	closeMu sync.Mutex
	closed  bool
}

// NewMemoryQueue constructs a new queue with the provided capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		ch: make(chan Payload, capacity),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends.
// Holding closeMu for the push means Close waits for in-flight enqueues
// instead of racing them onto a closed channel.
func (q *MemoryQueue) Enqueue(ctx context.Context, payload Payload) error {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return errors.New("queue closed")
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- payload:
		return nil
	}
}

// Dequeue pops the next job, respecting context cancellation.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Payload, error) {
	select {
	case <-ctx.Done():
		return Payload{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case payload, ok := <-q.ch:
		if !ok {
			return Payload{}, errors.New("queue closed")
		}
		return payload, nil
	}
}

// Len reports the number of queued payloads.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown.
func (q *MemoryQueue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
