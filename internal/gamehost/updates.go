package gamehost

import "sync"

// updateQueue collects player-count changes between state report ticks. The
// host drains it once per tick and forwards every queued value in order, so
// the master sees each transition rather than only the latest count.
type updateQueue struct {
	mu     sync.Mutex
	counts []int
}

func newUpdateQueue() *updateQueue {
	return &updateQueue{}
}

func (q *updateQueue) Push(count int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counts = append(q.counts, count)
}

// Drain returns the queued counts in arrival order and empties the queue.
func (q *updateQueue) Drain() []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.counts
	q.counts = nil
	return out
}

func (q *updateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.counts)
}
