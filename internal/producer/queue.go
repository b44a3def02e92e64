// Package producer holds the runtime shared by long-lived chat producers:
// an unbounded output queue, the lifecycle state machine and the poll loop
// with its error escalation policy.
package producer

import (
	"sync"

	"github.com/blockedby/hopii/internal/models"
)

// Queue is an unbounded FIFO of chat messages.
// It is written by exactly one producer goroutine and drained by one reader.
type Queue struct {
	mu    sync.Mutex
	items []models.ChatMessage
}

// Push appends messages in order.
func (q *Queue) Push(msgs ...models.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, msgs...)
	q.mu.Unlock()
}

// Drain removes and returns everything currently queued without waiting.
func (q *Queue) Drain() []models.ChatMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
