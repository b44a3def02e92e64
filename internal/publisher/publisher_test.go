package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/hopii/internal/models"
)

// MockNATSClient mocks the nats client operations we need
type MockNATSClient struct {
	PublishedSubject string
	PublishedData    []byte
	PublishError     error
}

func (m *MockNATSClient) Publish(subject string, data []byte) error {
	m.PublishedSubject = subject
	m.PublishedData = data
	return m.PublishError
}

func TestNATSPublisher_PublishDecision(t *testing.T) {
	mock := &MockNATSClient{}
	pub := &NATSPublisher{
		js: mock,
	}

	event := models.DecisionEvent{
		ID:        uuid.New(),
		Author:    "Bob",
		Message:   "what is starship?",
		Timestamp: time.Now(),
		Source:    models.SourceAPI,
		Relevant:  true,
		Rule:      "question_or_subject",
	}

	err := pub.PublishDecision(context.Background(), event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.PublishedSubject != "chat.decisions" {
		t.Errorf("subject = %s, want chat.decisions", mock.PublishedSubject)
	}

	var got models.DecisionEvent
	if err := json.Unmarshal(mock.PublishedData, &got); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if got.Author != "Bob" || !got.Relevant || got.Source != models.SourceAPI {
		t.Errorf("payload = %+v", got)
	}
}

func TestNATSPublisher_PublishProducer(t *testing.T) {
	mock := &MockNATSClient{}
	pub := &NATSPublisher{js: mock}

	err := pub.PublishProducer(context.Background(), models.ProducerEvent{
		Source: models.SourceScraper,
		State:  "STOPPED",
		Error:  "browser gone",
		At:     time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.PublishedSubject != "chat.producers" {
		t.Errorf("subject = %s, want chat.producers", mock.PublishedSubject)
	}
}

func TestNATSPublisher_PublishError(t *testing.T) {
	mock := &MockNATSClient{PublishError: errors.New("no responders")}
	pub := &NATSPublisher{js: mock}

	err := pub.PublishDecision(context.Background(), models.DecisionEvent{ID: uuid.New()})
	if err == nil {
		t.Fatal("expected error")
	}
}
