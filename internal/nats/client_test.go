package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/hopii/internal/logger"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{URL: "nats://localhost:4222"}.withDefaults()

	assert.Equal(t, "hopii", cfg.Name)
	assert.Equal(t, StreamChat, cfg.Stream)
	assert.Equal(t, []string{SubjectsAll}, cfg.Subjects)
	assert.Equal(t, 24*time.Hour, cfg.MaxAge)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.PublishTimeout)
}

func TestConfig_KeepsOverrides(t *testing.T) {
	cfg := Config{
		Stream:   "OVERLAY",
		Subjects: []string{"overlay.>"},
		MaxAge:   time.Hour,
	}.withDefaults()

	sc := cfg.streamConfig()
	assert.Equal(t, "OVERLAY", sc.Name)
	assert.Equal(t, []string{"overlay.>"}, sc.Subjects)
	assert.Equal(t, time.Hour, sc.MaxAge)
	assert.Equal(t, jetstream.LimitsPolicy, sc.Retention)
	assert.Equal(t, jetstream.DiscardOld, sc.Discard)
}

func TestDecisionSubjectsFallInStream(t *testing.T) {
	// the default stream filter must cover every subject the bot publishes
	assert.Equal(t, "chat.>", SubjectsAll)
	assert.Regexp(t, `^chat\.`, SubjectDecisions)
	assert.Regexp(t, `^chat\.`, SubjectProducers)
}

func TestConnect_EmptyURL(t *testing.T) {
	c, err := Connect(context.Background(), Config{}, logger.Nop())
	require.Error(t, err)
	assert.Nil(t, c)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Connect(ctx, Config{URL: "nats://127.0.0.1:1", ConnectTimeout: 200 * time.Millisecond}, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to nats")
	assert.Nil(t, c)
}
