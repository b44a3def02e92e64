package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatPageHTML = `<html><body>
<div onclick="document.getElementById('menu').style.display='block'">Top chat</div>
<div id="menu" style="display:none"><div><div>All messages are visible</div></div></div>
<div id="item-scroller">
  <yt-live-chat-text-message-renderer id="m1">
    <span id="timestamp">10:05 AM</span><span id="author-name">Alice</span><span id="message">hi</span>
  </yt-live-chat-text-message-renderer>
  <yt-live-chat-text-message-renderer id="m2">
    <span id="timestamp">10:06 AM</span><span id="author-name">Bob</span>
  </yt-live-chat-text-message-renderer>
</div>
</body></html>`

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("chrome not installed")
}

func TestChromeBrowser_SessionSurvivesOpen(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(chatPageHTML))
	}))
	defer srv.Close()

	b := NewChromeBrowser(true)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, b.Open(ctx, srv.URL))
	require.NoError(t, b.ClickWhenReady(ctx, TopChatXPath, 5*time.Second))
	require.NoError(t, b.WaitPresent(ctx, ChatItemSelector, 5*time.Second))

	items, err := b.ChatItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, Item{ID: "m1", Author: "Alice", Timestamp: "10:05 AM", Text: "hi"}, items[0])
	assert.True(t, items[1].Incomplete)

	require.NoError(t, b.ScrollToBottom(ctx))
	require.NoError(t, b.Close())

	_, err = b.ChatItems(ctx)
	assert.ErrorIs(t, err, ErrBrowserGone)
}
