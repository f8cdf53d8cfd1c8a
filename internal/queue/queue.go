// Package queue provides the priority dispatch queue feeding the worker
// pool.
package queue

import (
	"sync"

	"autoops/engine/pkg/types"
)

// PriorityQueue orders pending task ids by priority tier, then strict
// FIFO within a tier. Lower tiers are only served once every higher tier
// is empty; under sustained critical load this starves lower tiers by
// design, there is no aging.
type PriorityQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tiers  [types.PriorityTiers][]string
	closed bool
}

// New creates an empty priority queue.
func New() *PriorityQueue {
	q := &PriorityQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a task id under its priority tier.
func (q *PriorityQueue) Enqueue(taskID string, priority types.TaskPriority) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	rank := priority.Rank()
	q.tiers[rank] = append(q.tiers[rank], taskID)
	q.cond.Signal()
}

// Dequeue blocks until an item is available or the queue is closed.
// The second return value is false once the queue is closed; remaining
// items are abandoned so shutdown is prompt.
func (q *PriorityQueue) Dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return "", false
		}
		for rank := 0; rank < types.PriorityTiers; rank++ {
			if len(q.tiers[rank]) > 0 {
				id := q.tiers[rank][0]
				q.tiers[rank] = q.tiers[rank][1:]
				return id, true
			}
		}
		q.cond.Wait()
	}
}

// Remove drops a still-queued task id, returning whether it was found.
// Removing an id that already left the queue is a no-op: races with
// Dequeue are expected and resolved by whoever got there first.
func (q *PriorityQueue) Remove(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for rank := range q.tiers {
		for i, id := range q.tiers[rank] {
			if id == taskID {
				q.tiers[rank] = append(q.tiers[rank][:i], q.tiers[rank][i+1:]...)
				return true
			}
		}
	}
	return false
}

// Len returns the number of queued task ids across all tiers.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for rank := range q.tiers {
		n += len(q.tiers[rank])
	}
	return n
}

// Close wakes all blocked Dequeue callers. Items still queued are
// abandoned, never dequeued; subsequent enqueues are dropped.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
