// Package youtube reads and writes livestream chat through the YouTube Data API.
// OAuth tokens are persisted to a JSON file so they can be refreshed and reused
// between runs.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ErrNoToken is returned when no stored token exists yet.
var ErrNoToken = errors.New("no youtube token stored, run with -auth first")

// Page is one page of live chat messages.
type Page struct {
	Items           []Item
	NextPageToken   string
	PollingInterval time.Duration
}

// Item is a single chat message as returned by the API.
type Item struct {
	ID          string
	Author      string
	Text        string
	PublishedAt time.Time
}

// ChatAPI is the subset of the live chat API the bot needs.
type ChatAPI interface {
	// LiveChatID returns the chat of the active broadcast, empty when not live.
	LiveChatID(ctx context.Context) (string, error)
	ListMessages(ctx context.Context, chatID string, maxResults int64, pageToken string) (*Page, error)
	SendMessage(ctx context.Context, chatID, text string) error
}

// Auth wraps the OAuth2 client config and the token file.
type Auth struct {
	oauth     *oauth2.Config
	tokenFile string
}

// NewAuth reads the client secret JSON downloaded from the Google console.
func NewAuth(secretFile, tokenFile string) (*Auth, error) {
	data, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, yt.YoutubeForceSslScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	return &Auth{oauth: cfg, tokenFile: tokenFile}, nil
}

// AuthCodeURL returns the consent page URL.
func (a *Auth) AuthCodeURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (a *Auth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if err := saveToken(a.tokenFile, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Service builds an API service from the stored token. Refreshed tokens are
// written back to the token file.
func (a *Auth) Service(ctx context.Context) (*yt.Service, error) {
	tok, err := loadToken(a.tokenFile)
	if err != nil {
		return nil, err
	}
	ts := &fileTokenSource{
		base: a.oauth.TokenSource(ctx, tok),
		path: a.tokenFile,
		last: tok.AccessToken,
	}
	return yt.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(tok, ts)))
}

type fileTokenSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (f *fileTokenSource) Token() (*oauth2.Token, error) {
	tok, err := f.base.Token()
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok.AccessToken != f.last {
		f.last = tok.AccessToken
		_ = saveToken(f.path, tok)
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// Client implements ChatAPI on top of the YouTube Data API.
type Client struct {
	svc *yt.Service
}

// NewClient wraps an authorized service.
func NewClient(svc *yt.Service) *Client {
	return &Client{svc: svc}
}

// activeBroadcast returns the first active broadcast of the channel, nil when
// nothing is live.
func (c *Client) activeBroadcast(ctx context.Context) (*yt.LiveBroadcast, error) {
	resp, err := c.svc.LiveBroadcasts.
		List([]string{"id", "snippet", "status"}).
		BroadcastStatus("active").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list broadcasts: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	b := resp.Items[0]
	if b.Status == nil || b.Status.LifeCycleStatus != "live" {
		return nil, nil
	}
	return b, nil
}

// LiveChatID implements ChatAPI.
func (c *Client) LiveChatID(ctx context.Context) (string, error) {
	b, err := c.activeBroadcast(ctx)
	if err != nil || b == nil || b.Snippet == nil {
		return "", err
	}
	return b.Snippet.LiveChatId, nil
}

// LiveVideoID returns the video id of the active broadcast, empty when not live.
func (c *Client) LiveVideoID(ctx context.Context) (string, error) {
	b, err := c.activeBroadcast(ctx)
	if err != nil || b == nil {
		return "", err
	}
	return b.Id, nil
}

// ListMessages implements ChatAPI.
func (c *Client) ListMessages(ctx context.Context, chatID string, maxResults int64, pageToken string) (*Page, error) {
	call := c.svc.LiveChatMessages.
		List(chatID, []string{"id", "snippet", "authorDetails"}).
		MaxResults(maxResults).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}

	page := &Page{
		NextPageToken:   resp.NextPageToken,
		PollingInterval: time.Duration(resp.PollingIntervalMillis) * time.Millisecond,
		Items:           make([]Item, 0, len(resp.Items)),
	}
	for _, m := range resp.Items {
		it := Item{ID: m.Id}
		if m.AuthorDetails != nil {
			it.Author = m.AuthorDetails.DisplayName
		}
		if m.Snippet != nil {
			it.Text = m.Snippet.DisplayMessage
			if ts, err := time.Parse(time.RFC3339Nano, m.Snippet.PublishedAt); err == nil {
				it.PublishedAt = ts
			}
		}
		page.Items = append(page.Items, it)
	}
	return page, nil
}

// SendMessage implements ChatAPI.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: chatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
	if _, err := c.svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send chat message: %w", err)
	}
	return nil
}
