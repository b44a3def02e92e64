package web

import (
	"encoding/json"

	"github.com/blockedby/hopii/internal/models"
)

// WebSocket event types
const (
	EventDecision = "chat.decision"
	EventProducer = "producer.state"
)

// WSEvent represents a structured WebSocket message
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DecisionEvent wraps a chat decision for websocket clients.
func DecisionEvent(evt models.DecisionEvent) []byte {
	return encode(EventDecision, evt)
}

// ProducerEvent wraps a producer change for websocket clients.
func ProducerEvent(evt models.ProducerEvent) []byte {
	return encode(EventProducer, evt)
}

func encode(typ string, payload any) []byte {
	b, _ := json.Marshal(WSEvent{Type: typ, Payload: payload})
	return b
}
