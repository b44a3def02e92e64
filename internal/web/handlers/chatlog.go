package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ChatLogHandler serves the persisted chat log.
type ChatLogHandler struct {
	repo ChatLogReader
	log  *logger.Logger
}

// NewChatLogHandler creates a new ChatLogHandler.
func NewChatLogHandler(repo ChatLogReader, log *logger.Logger) *ChatLogHandler {
	return &ChatLogHandler{repo: repo, log: log.Component("chatlog_api")}
}

// List returns the most recent records, newest first.
// GET /api/v1/chatlog?limit=50&relevant=true
func (h *ChatLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
		return
	}
	relevantOnly := r.URL.Query().Get("relevant") == "true"

	records, err := h.repo.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read chat log")
		http.Error(w, `{"error":"failed to fetch chat log"}`, http.StatusInternalServerError)
		return
	}

	if relevantOnly {
		filtered := records[:0]
		for _, rec := range records {
			if rec.Relevant {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if records == nil {
		records = []models.ChatLogRecord{}
	}

	resp := struct {
		Records []models.ChatLogRecord `json:"records"`
		Total   int                    `json:"total"`
		Limit   int                    `json:"limit"`
	}{
		Records: records,
		Total:   len(records),
		Limit:   limit,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		_ = err // Client disconnected
	}
}

// Stats returns total and relevant message counts.
// GET /api/v1/chatlog/stats
func (h *ChatLogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, err := h.repo.Count(r.Context(), false)
	if err != nil {
		http.Error(w, `{"error":"failed to count chat log"}`, http.StatusInternalServerError)
		return
	}
	relevant, err := h.repo.Count(r.Context(), true)
	if err != nil {
		http.Error(w, `{"error":"failed to count chat log"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{
		"total":    total,
		"relevant": relevant,
	})
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return min(n, maxLimit), nil
}
