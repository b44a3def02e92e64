package handlers

import (
	"net/http"
	"slices"

	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/web"
)

// OverlayHandler renders the stream overlay page.
type OverlayHandler struct {
	templates Renderer
	repo      ChatLogReader
	botName   string
	limit     int
}

// NewOverlayHandler creates a new overlay handler. limit caps both the
// initial backlog and the number of messages kept on screen.
func NewOverlayHandler(templates Renderer, repo ChatLogReader, botName string, limit int) *OverlayHandler {
	if limit <= 0 {
		limit = 20
	}
	return &OverlayHandler{templates: templates, repo: repo, botName: botName, limit: limit}
}

// Overlay renders the latest decisions oldest first. Without a chat log
// the page starts empty and fills from the websocket feed.
func (h *OverlayHandler) Overlay(w http.ResponseWriter, r *http.Request) {
	var records []models.ChatLogRecord
	if h.repo != nil {
		var err error
		records, err = h.repo.Recent(r.Context(), h.limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		slices.Reverse(records)
	}

	data := web.OverlayData{
		Title:   h.botName + " chat",
		BotName: h.botName,
		Limit:   h.limit,
		Records: records,
	}
	if err := h.templates.Render(w, "overlay", data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}
