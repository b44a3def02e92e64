// Package merger combines the output of several chat producers into one
// deduplicated batch stream.
//
// Batches keep each producer's order but interleave producers in drain
// order; callers that need global ordering sort with SortByTimestamp.
package merger

import (
	"sort"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/telemetry"
)

// DefaultCapacity is the number of recent fingerprints remembered.
const DefaultCapacity = 50

// Producer is a source of chat messages that can be drained without waiting.
type Producer interface {
	Source() models.Source
	Drain() []models.ChatMessage
}

// Merger deduplicates messages from its producers.
// UniqueMessages and ClearSeen are called from the orchestrator only.
type Merger struct {
	producers []Producer
	seen      *Ring
	log       *logger.Logger
}

// New creates a merger over producers, drained in the given order.
func New(capacity int, log *logger.Logger, producers ...Producer) *Merger {
	return &Merger{
		producers: producers,
		seen:      NewRing(capacity),
		log:       log.Component("merger"),
	}
}

// Add registers another producer.
func (m *Merger) Add(p Producer) {
	m.producers = append(m.producers, p)
}

// UniqueMessages drains every producer and returns the messages whose
// fingerprint is not among the recently seen ones, tagged with their source.
func (m *Merger) UniqueMessages() []models.ChatMessage {
	var batch []models.ChatMessage
	for _, p := range m.producers {
		src := p.Source()
		for _, msg := range p.Drain() {
			fp := FingerprintOf(msg.Author, msg.Text)
			if !m.seen.Add(fp) {
				m.log.Debug().
					Str("source", string(src)).
					Str("author", msg.Author).
					Str("message", msg.Text).
					Msg("duplicate message dropped")
				telemetry.Duplicate(string(src))
				continue
			}
			batch = append(batch, msg.WithSource(src))
		}
	}
	return batch
}

// ClearSeen forgets every remembered fingerprint.
func (m *Merger) ClearSeen() {
	m.seen.Clear()
	m.log.Debug().Msg("seen fingerprints cleared")
}

// Seen returns the number of remembered fingerprints.
func (m *Merger) Seen() int { return m.seen.Len() }

// SortByTimestamp orders a batch by timestamp, keeping the relative order of
// equal timestamps.
func SortByTimestamp(batch []models.ChatMessage) {
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})
}
