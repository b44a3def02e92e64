package web

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
)

type fakeSubscriber struct {
	subjects []string
	handlers map[string]func([]byte) error
	stopped  int
	failOn   string
}

func (f *fakeSubscriber) Consume(ctx context.Context, durable, subject string, handler func([]byte) error) (func(), error) {
	if subject == f.failOn {
		return nil, errors.New("stream not found")
	}
	if f.handlers == nil {
		f.handlers = make(map[string]func([]byte) error)
	}
	f.subjects = append(f.subjects, subject)
	f.handlers[subject] = handler
	return func() { f.stopped++ }, nil
}

func TestRelay_ForwardsDecisions(t *testing.T) {
	hub := NewHub()
	sub := &fakeSubscriber{}
	relay := NewRelay(sub, hub, logger.Nop())

	stop, err := relay.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"chat.decisions", "chat.producers"}, sub.subjects)

	data, _ := json.Marshal(models.DecisionEvent{Author: "Bob", Message: "hi", Timestamp: time.Now()})
	require.NoError(t, sub.handlers["chat.decisions"](data))

	select {
	case msg := <-hub.broadcast:
		var evt WSEvent
		require.NoError(t, json.Unmarshal(msg, &evt))
		assert.Equal(t, EventDecision, evt.Type)
	default:
		t.Fatal("nothing broadcast")
	}

	// malformed payloads are acked and dropped
	assert.NoError(t, sub.handlers["chat.decisions"]([]byte("{")))
	assert.Len(t, hub.broadcast, 0)

	stop()
	assert.Equal(t, 2, sub.stopped)
}

func TestRelay_ProducerEvents(t *testing.T) {
	hub := NewHub()
	sub := &fakeSubscriber{}
	relay := NewRelay(sub, hub, logger.Nop())
	_, err := relay.Start(context.Background())
	require.NoError(t, err)

	data, _ := json.Marshal(models.ProducerEvent{Source: models.SourceScraper, State: "STOPPED"})
	require.NoError(t, sub.handlers["chat.producers"](data))
	assert.Len(t, hub.broadcast, 1)

	data, _ = json.Marshal(models.ProducerEvent{Source: "pigeon", State: "STOPPED"})
	require.NoError(t, sub.handlers["chat.producers"](data))
	assert.Len(t, hub.broadcast, 1)
}

func TestRelay_StartFailureStopsFirstConsumer(t *testing.T) {
	sub := &fakeSubscriber{failOn: "chat.producers"}
	relay := NewRelay(sub, NewHub(), logger.Nop())

	_, err := relay.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, sub.stopped)
}
