package console

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/producer"
)

func TestConsole_Parse(t *testing.T) {
	c := New(strings.NewReader(""), "", logger.Nop())

	msg, ok := c.parse("Alice: what is starship?")
	require.True(t, ok)
	assert.Equal(t, "Alice", msg.Author)
	assert.Equal(t, "what is starship?", msg.Text)
	assert.Equal(t, models.SourceManual, msg.Source)

	msg, ok = c.parse("hello there")
	require.True(t, ok)
	assert.Equal(t, DefaultAuthor, msg.Author)

	// colon inside a sentence is not an author prefix
	msg, ok = c.parse("launch at T minus 10: go")
	require.True(t, ok)
	assert.Equal(t, DefaultAuthor, msg.Author)
	assert.Equal(t, "launch at T minus 10: go", msg.Text)

	_, ok = c.parse("   ")
	assert.False(t, ok)
	_, ok = c.parse("Alice:   ")
	assert.False(t, ok)
}

func TestConsole_ProducesLines(t *testing.T) {
	c := New(strings.NewReader("Alice: hi\nhow big is raptor?\n\n"), "Bob", logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Go(ctx))

	var got []models.ChatMessage
	require.Eventually(t, func() bool {
		got = append(got, c.Drain()...)
		return len(got) == 2
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, "Alice", got[0].Author)
	assert.Equal(t, "Bob", got[1].Author)
	assert.Equal(t, producer.StateRunning, c.State())

	c.Stop()
	<-c.Done()
	assert.NoError(t, c.Err())
	assert.Equal(t, producer.StateStopped, c.State())
}
