// Package queue carries generation job ids from the API to the runner.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once a queue stops accepting or yielding work.
var ErrClosed = errors.New("queue closed")

// Queue is a FIFO of job ids.
type Queue interface {
	// Push blocks while the queue is full.
	Push(ctx context.Context, jobID string) error
	// Pop blocks until an id is available, ctx ends or the queue closes.
	Pop(ctx context.Context) (string, error)
	Close() error
}

// MemoryQueue is a bounded in-process queue. After Close, buffered ids are
// still handed out before Pop reports ErrClosed.
type MemoryQueue struct {
	mu     sync.RWMutex
	ch     chan string
	done   chan struct{}
	once   sync.Once
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan string, capacity), done: make(chan struct{})}
}

func (q *MemoryQueue) Push(ctx context.Context, jobID string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- jobID:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (string, error) {
	select {
	case id, ok := <-q.ch:
		if !ok {
			return "", ErrClosed
		}
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len reports the number of buffered ids.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() {
		close(q.done)
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
	return nil
}
