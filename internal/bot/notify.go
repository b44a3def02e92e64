package bot

import (
	"context"

	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/web"
)

// Notifier receives pipeline events. publisher.NATSPublisher satisfies it.
type Notifier interface {
	PublishDecision(ctx context.Context, evt models.DecisionEvent) error
	PublishProducer(ctx context.Context, evt models.ProducerEvent) error
}

// Broadcaster pushes raw frames to websocket clients.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// HubNotifier sends events straight to the websocket hub. It is used when
// no NATS server is configured.
type HubNotifier struct {
	hub Broadcaster
}

// NewHubNotifier creates a notifier for hub.
func NewHubNotifier(hub Broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// PublishDecision broadcasts a decision.
func (n *HubNotifier) PublishDecision(_ context.Context, evt models.DecisionEvent) error {
	n.hub.Broadcast(web.DecisionEvent(evt))
	return nil
}

// PublishProducer broadcasts a producer change.
func (n *HubNotifier) PublishProducer(_ context.Context, evt models.ProducerEvent) error {
	n.hub.Broadcast(web.ProducerEvent(evt))
	return nil
}

type nopNotifier struct{}

func (nopNotifier) PublishDecision(context.Context, models.DecisionEvent) error { return nil }
func (nopNotifier) PublishProducer(context.Context, models.ProducerEvent) error { return nil }
