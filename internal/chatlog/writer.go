package chatlog

import (
	"context"
	"time"

	"github.com/blockedby/hopii/internal/logger"
)

// DefaultWriteFrequency is the delay between batch writes.
const DefaultWriteFrequency = 30 * time.Second

// Writer periodically moves queued records to the store.
type Writer struct {
	queue *Queue
	store Store
	every time.Duration
	log   *logger.Logger
}

// NewWriter creates a writer flushing queue into store every interval.
func NewWriter(queue *Queue, store Store, every time.Duration, log *logger.Logger) *Writer {
	if every <= 0 {
		every = DefaultWriteFrequency
	}
	return &Writer{queue: queue, store: store, every: every, log: log.Component("chatlog")}
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()

	w.log.Info().Dur("every", w.every).Msg("chat log writer started")
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.Flush(flushCtx); err != nil {
				w.log.Error().Err(err).Int("pending", w.queue.Len()).Msg("final chat log flush failed")
			}
			cancel()
			w.log.Info().Msg("chat log writer stopped")
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.log.Warn().Err(err).Msg("chat log flush failed, will retry")
			}
		}
	}
}

// Flush writes everything queued. Records are put back when the write fails.
func (w *Writer) Flush(ctx context.Context) error {
	batch := w.queue.Drain()
	if len(batch) == 0 {
		return nil
	}
	if err := w.store.SaveBatch(ctx, batch); err != nil {
		w.queue.requeue(batch)
		return err
	}
	w.log.Debug().Int("records", len(batch)).Msg("chat log written")
	return nil
}
