package responder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/hopii/internal/logger"
)

// MockGenerator is a mock implementation of Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Respond(ctx context.Context, author, message string, history []Turn) (string, error) {
	args := m.Called(ctx, author, message, history)
	return args.String(0), args.Error(1)
}

func TestFormatResponse(t *testing.T) {
	short := "Starship is the biggest rocket ever flown."
	assert.Equal(t, short, FormatResponse(short))

	long := strings.Repeat("rocket ", 40) // 280 runes
	got := FormatResponse(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	body := strings.TrimSuffix(got, "...")
	assert.LessOrEqual(t, len([]rune(body)), MaxResponseRunes)
	assert.False(t, strings.HasSuffix(body, " "))
	for _, w := range strings.Fields(body) {
		assert.Equal(t, "rocket", w, "words must not be cut")
	}

	// no space to cut at
	assert.Equal(t, strings.Repeat("x", MaxResponseRunes)+"...", FormatResponse(strings.Repeat("x", 300)))

	// runes, not bytes
	multi := strings.Repeat("é", MaxResponseRunes)
	assert.Equal(t, multi, FormatResponse(multi))
}

func TestFilter(t *testing.T) {
	f := NewFilter(FilterConfig{
		Enabled:         true,
		WordAllowlist:   []string{"damn"},
		AuthorAllowlist: []string{"Streamer"},
	})

	assert.True(t, f.Triggered("Alice", "this is SHIT!"))
	assert.False(t, f.Triggered("Alice", "what a launch"))
	assert.False(t, f.Triggered("Alice", "damn that was fast"))
	assert.False(t, f.Triggered("Streamer", "holy shit"))
	// common words that contain a listed one do not count
	assert.False(t, f.Triggered("Alice", "scrapped the mission"))
	// leetspeak is folded before matching
	assert.True(t, f.Triggered("Alice", "sh1t happens"))

	custom := NewFilter(FilterConfig{Enabled: true, Words: []string{"Scrub"}})
	assert.True(t, custom.Triggered("Alice", "what a scrub"))
	assert.False(t, custom.Triggered("Alice", "this is shit"))

	off := NewFilter(FilterConfig{Enabled: false})
	assert.False(t, off.Triggered("Alice", "shit"))
}

func TestContext_Bounded(t *testing.T) {
	c := NewContext(3)
	for _, s := range []string{"a", "b", "c", "d"} {
		c.Add(RoleUser, s)
	}
	turns := c.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "b", turns[0].Content)
	assert.Equal(t, "d", turns[2].Content)

	// copies are detached
	turns[0].Content = "changed"
	assert.Equal(t, "b", c.Turns()[0].Content)
}

func TestService_Reply(t *testing.T) {
	gen := new(MockGenerator)
	svc := NewService(gen, NewFilter(FilterConfig{Enabled: true}), NewContext(10), logger.Nop())

	svc.Observe("Alice", "hi all")
	gen.On("Respond", mock.Anything, "Bob", "what is starship?", []Turn{{Role: RoleUser, Content: "Alice: hi all"}}).
		Return("  A very big rocket.  ", nil)

	reply, err := svc.Reply(context.Background(), "Bob", "what is starship?")
	require.NoError(t, err)
	assert.Equal(t, "A very big rocket.", reply.Text)
	assert.False(t, reply.Filtered)

	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "Alice: hi all"},
		{Role: RoleUser, Content: "Bob: what is starship?"},
		{Role: RoleAssistant, Content: "A very big rocket."},
	}, svc.Context().Turns())
	gen.AssertExpectations(t)
}

func TestService_ReplyFiltered(t *testing.T) {
	gen := new(MockGenerator)
	svc := NewService(gen, NewFilter(FilterConfig{Enabled: true}), nil, logger.Nop())

	reply, err := svc.Reply(context.Background(), "Troll", "shit rocket")
	require.NoError(t, err)
	assert.True(t, reply.Filtered)
	assert.Equal(t, ModsReply, reply.Text)
	gen.AssertNotCalled(t, "Respond", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ReplyError(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Respond", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("boom"))
	svc := NewService(gen, nil, nil, logger.Nop())

	_, err := svc.Reply(context.Background(), "Bob", "why is the sky blue?")
	require.Error(t, err)
	assert.Equal(t, []Turn{{Role: RoleUser, Content: "Bob: why is the sky blue?"}}, svc.Context().Turns())
}

func TestOpenAIGenerator_Respond(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: RoleAssistant, Content: " Hello Bob! "},
			}},
		})
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(Config{
		BaseURL:      srv.URL + "/v1",
		Model:        "gpt-4",
		APIKey:       "test-key",
		MaxTokens:    100,
		Temperature:  0.9,
		TopP:         0.9,
		Timeout:      5 * time.Second,
		PromptPrefix: "You are Hopii.",
	})

	out, err := gen.Respond(context.Background(), "Bob", "hi", []Turn{{Role: RoleUser, Content: "Alice: yo"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob!", out)

	assert.Equal(t, "gpt-4", req.Model)
	assert.Equal(t, 100, req.MaxTokens)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "You are Hopii.", req.Messages[0].Content)
	assert.Equal(t, "Alice: yo", req.Messages[1].Content)
	assert.Equal(t, "Bob: hi", req.Messages[2].Content)
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(Config{BaseURL: srv.URL + "/v1", Model: "gpt-4"})
	_, err := gen.Respond(context.Background(), "Bob", "hi", nil)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
