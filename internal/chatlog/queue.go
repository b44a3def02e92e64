// Package chatlog records every processed chat message with the bot's
// decision and writes them to the database in batches.
package chatlog

import (
	"sync"

	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/telemetry"
)

// Queue is an unbounded record queue shared by the bot and the writer.
type Queue struct {
	mu      sync.Mutex
	records []models.ChatLogRecord
}

// Push appends a record.
func (q *Queue) Push(r models.ChatLogRecord) {
	q.mu.Lock()
	q.records = append(q.records, r)
	n := len(q.records)
	q.mu.Unlock()
	telemetry.ChatLogQueueDepth.Set(float64(n))
}

// requeue puts records back at the front after a failed write.
func (q *Queue) requeue(rs []models.ChatLogRecord) {
	if len(rs) == 0 {
		return
	}
	q.mu.Lock()
	q.records = append(append(make([]models.ChatLogRecord, 0, len(rs)+len(q.records)), rs...), q.records...)
	n := len(q.records)
	q.mu.Unlock()
	telemetry.ChatLogQueueDepth.Set(float64(n))
}

// Drain removes and returns all queued records.
func (q *Queue) Drain() []models.ChatLogRecord {
	q.mu.Lock()
	out := q.records
	q.records = nil
	q.mu.Unlock()
	telemetry.ChatLogQueueDepth.Set(0)
	return out
}

// Len returns the number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}
