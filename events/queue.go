// Package events carries classified records from the capture side to the
// consumer side.
package events

import (
	"sync"

	"github.com/navahdam/pktwatch/classify"
)

// Queue is the ordered, lossless hand-off between the capture goroutine and
// the dispatcher. Push never blocks and never drops; Drain removes and
// returns everything queued in push order and never blocks. Concurrent
// pushes are safe; the design assumes a single draining consumer.
type Queue struct {
	mu      sync.Mutex
	pending []classify.Record
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(rec classify.Record) {
	q.mu.Lock()
	q.pending = append(q.pending, rec)
	q.mu.Unlock()
}

// Drain swaps out the pending slice, so the caller owns the returned records
// and the producer keeps appending to a fresh backing array.
func (q *Queue) Drain() []classify.Record {
	q.mu.Lock()
	out := q.pending
	q.pending = nil
	q.mu.Unlock()
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
