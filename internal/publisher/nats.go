// Package publisher emits chat pipeline events to NATS.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blockedby/hopii/internal/models"
	natsclient "github.com/blockedby/hopii/internal/nats"
)

// NATSClient is the publishing half of the nats client.
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes decisions and producer changes.
type NATSPublisher struct {
	js NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(js NATSClient) *NATSPublisher {
	return &NATSPublisher{js: js}
}

// PublishDecision publishes the verdict for one chat message.
func (p *NATSPublisher) PublishDecision(ctx context.Context, event models.DecisionEvent) error {
	return p.publish(natsclient.SubjectDecisions, event)
}

// PublishProducer publishes a producer lifecycle change.
func (p *NATSPublisher) PublishProducer(ctx context.Context, event models.ProducerEvent) error {
	return p.publish(natsclient.SubjectProducers, event)
}

func (p *NATSPublisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.js.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}
