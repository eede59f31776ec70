// Package services holds the session logic: the pending queue, play history,
// station collection and the playback controller. Everything here runs on
// the dispatch loop; no method is safe to call from other goroutines.
package services

import (
	"github.com/ewilliams-labs/tuner/internal/core/domain"
)

// Queue is the FIFO buffer of pending playlist items. Fetches replace its
// contents wholesale; playback order is exactly delivery order.
type Queue struct {
	items []domain.QueueItem
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Replace discards all pending items and enqueues the new batch in order.
func (q *Queue) Replace(items []domain.QueueItem) {
	q.items = q.items[:0]
	q.items = append(q.items, items...)
}

// Dequeue removes and returns the oldest item.
func (q *Queue) Dequeue() (domain.QueueItem, error) {
	if len(q.items) == 0 {
		return domain.QueueItem{}, domain.ErrQueueEmpty
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, nil
}

// Clear drops all pending items.
func (q *Queue) Clear() {
	q.items = q.items[:0]
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	return len(q.items)
}
