package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSource(t *testing.T) {
	src, err := ParseSource("api")
	require.NoError(t, err)
	assert.Equal(t, SourceAPI, src)

	_, err = ParseSource("irc")
	assert.Error(t, err)
}

func TestChatMessage_WithSourceDoesNotMutate(t *testing.T) {
	orig := ChatMessage{Author: "Alice", Text: "hi"}
	tagged := orig.WithSource(SourceScraper)

	assert.Equal(t, SourceScraper, tagged.Source)
	assert.Empty(t, orig.Source)
}

func TestChatMessage_JSONBoundarySchema(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC)
	msg := ChatMessage{Author: "Bob", Text: "what is starship?", Timestamp: ts, Source: SourceAPI}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Bob", raw["author"])
	assert.Equal(t, "what is starship?", raw["message"])
	assert.Equal(t, "2024-03-01T10:05:00Z", raw["timestamp"])
	assert.Equal(t, "api", raw["source"])
	assert.NotContains(t, raw, "platform_id")
}

func TestNewChatLogRecord(t *testing.T) {
	msg := ChatMessage{Author: "Bob", Text: "hello", Source: SourceManual}
	rec := NewChatLogRecord(msg, "hey Bob", true, "question")

	assert.NotEqual(t, "", rec.ID.String())
	assert.Equal(t, "Bob", rec.Author)
	assert.Equal(t, "hey Bob", rec.Response)
	assert.True(t, rec.Relevant)
	assert.Equal(t, SourceManual, rec.Source)
	assert.Equal(t, "chat_log", rec.TableName())
}
