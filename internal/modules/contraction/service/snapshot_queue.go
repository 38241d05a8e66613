package service

import (
	"sync"

	"storkwatch/internal/modules/contraction/domain"
)

// snapshotQueue is an unbounded FIFO of remote snapshots. Store callbacks enqueue
// from any goroutine; the owning goroutine drains. The signal channel has a buffer
// of one so repeated enqueues coalesce into a single wake-up.
type snapshotQueue struct {
	mu     sync.Mutex
	items  [][]domain.StoredEvent
	closed bool
	signal chan struct{}
}

func newSnapshotQueue() *snapshotQueue {
	return &snapshotQueue{signal: make(chan struct{}, 1)}
}

// Enqueue returns false once the queue is closed.
func (q *snapshotQueue) Enqueue(snapshot []domain.StoredEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	copied := make([]domain.StoredEvent, len(snapshot))
	copy(copied, snapshot)
	q.items = append(q.items, copied)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

func (q *snapshotQueue) TryDequeue() ([]domain.StoredEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return item, true
}

func (q *snapshotQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *snapshotQueue) Signal() <-chan struct{} {
	return q.signal
}

func (q *snapshotQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}
