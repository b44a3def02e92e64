package handlers

import (
	"context"
	"io"

	"github.com/blockedby/hopii/internal/models"
)

// ChatLogReader reads persisted chat decisions.
type ChatLogReader interface {
	Recent(ctx context.Context, limit int) ([]models.ChatLogRecord, error)
	Count(ctx context.Context, relevantOnly bool) (int64, error)
}

// StatusProvider reports the live pipeline state.
type StatusProvider interface {
	Status() models.PipelineStatus
}

// Renderer renders a named page.
type Renderer interface {
	Render(w io.Writer, name string, data interface{}) error
}
