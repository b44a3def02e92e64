package models

import (
	"time"

	"github.com/google/uuid"
)

// DecisionEvent is published for every message the bot processed.
type DecisionEvent struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source,omitempty"`
	Relevant  bool      `json:"relevant"`
	Rule      string    `json:"rule"`
	Reason    string    `json:"reason,omitempty"`
	Sentiment float64   `json:"sentiment"`
	Response  string    `json:"response,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDecisionEvent builds an event from a chat log record.
func NewDecisionEvent(r ChatLogRecord, reason string, sentiment float64) DecisionEvent {
	return DecisionEvent{
		ID:        r.ID,
		Author:    r.Author,
		Message:   r.Message,
		Timestamp: r.Timestamp,
		Source:    r.Source,
		Relevant:  r.Relevant,
		Rule:      r.Rule,
		Reason:    reason,
		Sentiment: sentiment,
		Response:  r.Response,
		CreatedAt: r.CreatedAt,
	}
}

// ProducerEvent reports a producer lifecycle change.
type ProducerEvent struct {
	Source Source    `json:"source"`
	State  string    `json:"state"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// ProducerStatus is a producer snapshot for the status endpoint.
type ProducerStatus struct {
	Source Source `json:"source"`
	State  string `json:"state"`
	Alive  bool   `json:"alive"`
	Error  string `json:"error,omitempty"`
}

// PipelineStatus is the bot snapshot served over http.
type PipelineStatus struct {
	StartedAt   time.Time        `json:"started_at"`
	Live        bool             `json:"live"`
	Producers   []ProducerStatus `json:"producers"`
	SeenCount   int              `json:"seen_fingerprints"`
	HistoryLen  int              `json:"history_len"`
	ContextLen  int              `json:"context_len"`
	Processed   int64            `json:"processed"`
	Relevant    int64            `json:"relevant"`
	Replies     int64            `json:"replies"`
	LastMessage *time.Time       `json:"last_message,omitempty"`
}
