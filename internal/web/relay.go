package web

import (
	"context"
	"encoding/json"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	natsclient "github.com/blockedby/hopii/internal/nats"
)

// Subscriber is the part of the nats client the relay needs.
type Subscriber interface {
	Consume(ctx context.Context, durable, subject string, handler func([]byte) error) (func(), error)
}

// Relay forwards pipeline events from NATS to the websocket hub.
type Relay struct {
	sub Subscriber
	hub *Hub
	log *logger.Logger
}

// NewRelay creates a relay.
func NewRelay(sub Subscriber, hub *Hub, log *logger.Logger) *Relay {
	return &Relay{sub: sub, hub: hub, log: log.Component("ws_relay")}
}

// Start subscribes to decision and producer subjects. The returned function
// stops both consumers.
func (r *Relay) Start(ctx context.Context) (func(), error) {
	stopDecisions, err := r.sub.Consume(ctx, "hopii-overlay-decisions", natsclient.SubjectDecisions, r.HandleDecision)
	if err != nil {
		return nil, err
	}
	stopProducers, err := r.sub.Consume(ctx, "hopii-overlay-producers", natsclient.SubjectProducers, r.HandleProducer)
	if err != nil {
		stopDecisions()
		return nil, err
	}
	r.log.Info().Msg("relaying nats events to websocket clients")
	return func() {
		stopDecisions()
		stopProducers()
	}, nil
}

// HandleDecision decodes a decision and broadcasts it.
func (r *Relay) HandleDecision(data []byte) error {
	var evt models.DecisionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		// redelivery will not fix bad json
		r.log.Warn().Err(err).Msg("dropping malformed decision event")
		return nil
	}
	r.hub.Broadcast(DecisionEvent(evt))
	return nil
}

// HandleProducer decodes a producer change and broadcasts it.
func (r *Relay) HandleProducer(data []byte) error {
	var evt models.ProducerEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		r.log.Warn().Err(err).Msg("dropping malformed producer event")
		return nil
	}
	if !evt.Source.Valid() {
		r.log.Warn().Str("source", string(evt.Source)).Msg("dropping producer event with unknown source")
		return nil
	}
	r.hub.Broadcast(ProducerEvent(evt))
	return nil
}
