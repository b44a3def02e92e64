package scraper

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Selector contract of the YouTube popout chat page.
const (
	ChatItemSelector    = "yt-live-chat-text-message-renderer"
	AuthorSelector      = "#author-name"
	TimestampSelector   = "#timestamp"
	MessageSelector     = "#message"
	ScrollerSelector    = "#item-scroller"
	TopChatXPath        = "//div[text()='Top chat']"
	AllMessagesXPath    = "//div[contains(text(),'All messages are visible')]/../.."
	chatURLFormat       = "https://www.youtube.com/live_chat?is_popout=1&v=%s"
	defaultSetupTimeout = 10 * time.Second
)

// errors
var (
	ErrSetupTimeout = errors.New("chat setup control did not appear in time")
	ErrNoChatItems  = errors.New("no chat items rendered")
	ErrBrowserGone  = errors.New("browser session closed")
)

// Item is one rendered chat element as read from the DOM.
type Item struct {
	ID         string `json:"id"`
	Author     string `json:"author"`
	Timestamp  string `json:"timestamp"`
	Text       string `json:"text"`
	Incomplete bool   `json:"incomplete"`
}

// Browser is the browser automation the scraper drives.
// A Browser is owned by one scraper and is not shared.
type Browser interface {
	Open(ctx context.Context, url string) error
	// ClickWhenReady waits for the element at xpath to be visible and clicks
	// it, failing with ErrSetupTimeout after timeout.
	ClickWhenReady(ctx context.Context, xpath string, timeout time.Duration) error
	// WaitPresent waits until an element matching css exists.
	WaitPresent(ctx context.Context, css string, timeout time.Duration) error
	// ChatItems returns rendered chat items in DOM order, oldest first.
	ChatItems(ctx context.Context) ([]Item, error)
	// Humanize performs random scroll and mouse movement.
	Humanize(ctx context.Context, rng *rand.Rand) error
	ScrollToBottom(ctx context.Context) error
	Close() error
}

// BrowserFactory creates a fresh browser session.
type BrowserFactory func() Browser
