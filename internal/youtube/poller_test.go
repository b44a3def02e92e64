package youtube

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/producer"
)

// fakeAPI serves pages keyed by page token.
type fakeAPI struct {
	mu       sync.Mutex
	chatID   string
	chatErr  error
	pages    map[string]*Page
	listErr  error
	failOnce map[string]error
	tokens   []string
	sent     []string
	chatHits int
}

func (f *fakeAPI) LiveChatID(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatHits++
	return f.chatID, f.chatErr
}

func (f *fakeAPI) ListMessages(ctx context.Context, chatID string, maxResults int64, pageToken string) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, pageToken)
	if f.listErr != nil {
		return nil, f.listErr
	}
	if err, ok := f.failOnce[pageToken]; ok {
		delete(f.failOnce, pageToken)
		return nil, err
	}
	page, ok := f.pages[pageToken]
	if !ok {
		return &Page{NextPageToken: pageToken}, nil
	}
	return page, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, chatID+":"+text)
	return nil
}

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func item(id, author, text string, sec int) Item {
	return Item{ID: id, Author: author, Text: text, PublishedAt: base.Add(time.Duration(sec) * time.Second)}
}

func newTestPoller(api ChatAPI, cfg PollerConfig) *Poller {
	if cfg.BotName == "" {
		cfg.BotName = "Hopii"
	}
	return NewPoller(api, cfg, NewRateLimiter(1000, 1), logger.Nop())
}

func texts(msgs []models.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestPoller_NotLive(t *testing.T) {
	p := newTestPoller(&fakeAPI{}, PollerConfig{})

	err := p.Poll(context.Background())
	assert.ErrorIs(t, err, ErrNotLive)
	assert.Empty(t, p.Drain())
}

func TestPoller_PaginatesUntilShortPage(t *testing.T) {
	api := &fakeAPI{
		chatID: "chat-1",
		pages: map[string]*Page{
			"":   {Items: []Item{item("m1", "Alice", "one", 1), item("m2", "Bob", "two", 2)}, NextPageToken: "t1", PollingInterval: 2 * time.Second},
			"t1": {Items: []Item{item("m3", "Carl", "three", 3)}, NextPageToken: "t2", PollingInterval: 3 * time.Second},
		},
	}
	p := newTestPoller(api, PollerConfig{MaxResults: 2})

	require.NoError(t, p.Poll(context.Background()))

	msgs := p.Drain()
	assert.Equal(t, []string{"one", "two", "three"}, texts(msgs))
	for _, m := range msgs {
		assert.Equal(t, models.SourceAPI, m.Source)
		assert.NotEmpty(t, m.PlatformID)
	}
	assert.Equal(t, []string{"", "t1"}, api.tokens)

	cur := p.Cursor()
	assert.Equal(t, "chat-1", cur.LiveChatID)
	assert.Equal(t, "t2", cur.NextPageToken)
	assert.Equal(t, 8*time.Second, cur.PollInterval)
	assert.Equal(t, 8*time.Second, p.Interval())
}

func TestPoller_FailedPageKeepsEarlierPages(t *testing.T) {
	api := &fakeAPI{
		chatID: "chat-1",
		pages: map[string]*Page{
			"":   {Items: []Item{item("a", "Alice", "page one", 1), item("b", "Bob", "page one too", 2)}, NextPageToken: "p2"},
			"p2": {Items: []Item{item("c", "Carl", "page two", 3)}, NextPageToken: "p3"},
		},
		failOnce: map[string]error{"p2": errors.New("backend error")},
	}
	p := newTestPoller(api, PollerConfig{MaxResults: 2})

	require.Error(t, p.Poll(context.Background()))
	assert.Empty(t, p.Cursor().NextPageToken)
	assert.Empty(t, p.Drain())

	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, []string{"page one", "page one too", "page two"}, texts(p.Drain()))
	assert.Equal(t, "p3", p.Cursor().NextPageToken)
}

func TestPoller_SkipsSeenAndBotMessages(t *testing.T) {
	api := &fakeAPI{
		chatID: "chat-1",
		pages: map[string]*Page{
			"":   {Items: []Item{item("m1", "Alice", "hello", 1)}, NextPageToken: "t1"},
			"t1": {Items: []Item{item("m1", "Alice", "hello", 1), item("m2", "Hopii", "I am the bot", 2), item("m3", "Bob", "new one", 3)}, NextPageToken: "t2"},
		},
	}
	p := newTestPoller(api, PollerConfig{})

	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, []string{"hello"}, texts(p.Drain()))

	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, []string{"new one"}, texts(p.Drain()))

	// the chat id is resolved once
	assert.Equal(t, 1, api.chatHits)
}

func TestPoller_DefaultIntervalWhenServerOmitsIt(t *testing.T) {
	api := &fakeAPI{chatID: "chat-1", pages: map[string]*Page{"": {NextPageToken: "t1"}}}
	p := newTestPoller(api, PollerConfig{})

	assert.Equal(t, 15*time.Second, p.Interval())
	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, 15*time.Second, p.Interval())
}

func TestPoller_RestartResetsCursorButKeepsSeen(t *testing.T) {
	api := &fakeAPI{
		chatID: "chat-1",
		pages: map[string]*Page{
			"": {Items: []Item{item("m1", "Alice", "hello", 1)}, NextPageToken: "t1"},
		},
	}
	p := newTestPoller(api, PollerConfig{})

	require.NoError(t, p.Poll(context.Background()))
	assert.Len(t, p.Drain(), 1)

	require.NoError(t, p.Restart(context.Background()))
	assert.Equal(t, Cursor{}, p.Cursor())

	// the first page is fetched again but nothing is re-emitted
	require.NoError(t, p.Poll(context.Background()))
	assert.Empty(t, p.Drain())
	assert.Equal(t, 2, api.chatHits)
}

func TestPoller_QuotaErrorSetsBackoff(t *testing.T) {
	api := &fakeAPI{chatID: "chat-1", listErr: &googleapi.Error{Code: 403, Message: "quotaExceeded"}}
	p := newTestPoller(api, PollerConfig{})

	err := p.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, p.limiter.backoffUntil.After(time.Now()))
}

func TestPoller_Send(t *testing.T) {
	api := &fakeAPI{chatID: "chat-9"}
	p := newTestPoller(api, PollerConfig{})

	require.NoError(t, p.Send(context.Background(), "hi there"))
	assert.Equal(t, []string{"chat-9:hi there"}, api.sent)
}

func TestPoller_RunStopsAfterRestart(t *testing.T) {
	api := &fakeAPI{chatErr: errors.New("backend error")}
	p := newTestPoller(api, PollerConfig{
		MaxErrors:       2,
		DefaultInterval: time.Millisecond,
		Buffer:          time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, producer.ErrProducerDead)
	assert.Equal(t, producer.StateStopped, p.State())
	// two errors, restart, two more errors
	assert.Equal(t, 4, api.chatHits)
}

func TestPoller_RunStopsCleanlyOnCancel(t *testing.T) {
	api := &fakeAPI{chatID: "chat-1", pages: map[string]*Page{}}
	p := newTestPoller(api, PollerConfig{
		MaxErrors:       2,
		DefaultInterval: time.Millisecond,
		Buffer:          time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, producer.StateStopped, p.State())
	assert.Nil(t, p.Err())
}
