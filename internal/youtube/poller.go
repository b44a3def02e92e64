package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/producer"
	"github.com/blockedby/hopii/internal/telemetry"
)

// ErrNotLive is returned when the channel has no active broadcast.
var ErrNotLive = errors.New("no active broadcast")

// PollerConfig holds poller settings.
type PollerConfig struct {
	BotName         string
	MaxResults      int64
	Buffer          time.Duration // added to the server polling interval
	DefaultInterval time.Duration // used when the server sends none
	MaxErrors       int
	StopGrace       time.Duration
	JoinTimeout     time.Duration
}

func (c *PollerConfig) defaults() {
	if c.MaxResults <= 0 {
		c.MaxResults = 100
	}
	if c.Buffer <= 0 {
		c.Buffer = 5 * time.Second
	}
	if c.DefaultInterval <= 0 {
		c.DefaultInterval = 10 * time.Second
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = 5
	}
}

// Cursor is the pagination state carried between polls.
type Cursor struct {
	LiveChatID    string
	NextPageToken string
	PollInterval  time.Duration
}

// Poller is the API chat producer.
type Poller struct {
	api     ChatAPI
	cfg     PollerConfig
	limiter *RateLimiter
	log     *logger.Logger

	mu     sync.Mutex
	cursor Cursor

	seen   map[string]struct{}
	queue  producer.Queue
	runner *producer.Runner
}

// NewPoller creates a poller. limiter may be nil.
func NewPoller(api ChatAPI, cfg PollerConfig, limiter *RateLimiter, log *logger.Logger) *Poller {
	cfg.defaults()
	if limiter == nil {
		limiter = DefaultRateLimiter()
	}
	p := &Poller{
		api:     api,
		cfg:     cfg,
		limiter: limiter,
		log:     log.Component("api_poller"),
		seen:    make(map[string]struct{}),
	}
	p.runner = producer.NewRunner(p, producer.Options{
		Source:         models.SourceAPI,
		MaxErrors:      cfg.MaxErrors,
		ResetOnSuccess: true,
		StopGrace:      cfg.StopGrace,
		JoinTimeout:    cfg.JoinTimeout,
	}, log)
	return p
}

// Start has nothing to prepare; the chat id is resolved on the first poll.
func (p *Poller) Start(ctx context.Context) error {
	p.log.Info().Int64("max_results", p.cfg.MaxResults).Msg("api poller starting")
	return nil
}

// ChatID resolves and caches the live chat id.
func (p *Poller) ChatID(ctx context.Context) (string, error) {
	p.mu.Lock()
	id := p.cursor.LiveChatID
	p.mu.Unlock()
	if id != "" {
		return id, nil
	}

	id, err := p.api.LiveChatID(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve live chat: %w", err)
	}
	if id == "" {
		return "", ErrNotLive
	}

	p.mu.Lock()
	p.cursor.LiveChatID = id
	p.mu.Unlock()
	p.log.Info().Str("live_chat_id", id).Msg("live chat resolved")
	return id, nil
}

// Poll fetches every page available since the last cursor and queues the
// messages not seen before.
func (p *Poller) Poll(ctx context.Context) error {
	chatID, err := p.ChatID(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	token := p.cursor.NextPageToken
	p.mu.Unlock()

	var (
		acc      []Item
		interval time.Duration
		pages    int
	)
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		page, err := p.api.ListMessages(ctx, chatID, p.cfg.MaxResults, token)
		if err != nil {
			p.backoffOnQuota(err)
			return err
		}
		pages++

		acc = append(append(make([]Item, 0, len(page.Items)+len(acc)), page.Items...), acc...)
		interval = page.PollingInterval
		if page.NextPageToken != "" {
			token = page.NextPageToken
		}

		if page.NextPageToken == "" || int64(len(page.Items)) < p.cfg.MaxResults {
			break
		}
	}

	// the cursor only moves once every page is in hand, so a failed page
	// is refetched together with the ones before it
	if interval <= 0 {
		interval = p.cfg.DefaultInterval
	}
	p.mu.Lock()
	p.cursor.NextPageToken = token
	p.cursor.PollInterval = interval + p.cfg.Buffer
	p.mu.Unlock()

	sort.SliceStable(acc, func(i, j int) bool {
		return acc[i].PublishedAt.Before(acc[j].PublishedAt)
	})

	fresh := make([]models.ChatMessage, 0, len(acc))
	for _, it := range acc {
		if _, ok := p.seen[it.ID]; ok {
			continue
		}
		p.seen[it.ID] = struct{}{}
		if it.Author == p.cfg.BotName {
			continue
		}
		fresh = append(fresh, models.ChatMessage{
			Author:     it.Author,
			Text:       it.Text,
			Timestamp:  it.PublishedAt,
			Source:     models.SourceAPI,
			PlatformID: it.ID,
		})
	}

	p.queue.Push(fresh...)
	telemetry.Produced(string(models.SourceAPI), len(fresh))
	p.log.Debug().
		Int("pages", pages).
		Int("messages", len(fresh)).
		Dur("next_poll", interval+p.cfg.Buffer).
		Msg("api poll complete")
	return nil
}

// backoffOnQuota pauses the limiter when the API reports rate or quota errors.
func (p *Poller) backoffOnQuota(err error) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return
	}
	if gerr.Code != http.StatusForbidden && gerr.Code != http.StatusTooManyRequests {
		return
	}
	wait := p.cfg.DefaultInterval + p.cfg.Buffer
	p.log.Warn().Int("code", gerr.Code).Dur("wait", wait).Msg("api quota or rate limit hit")
	p.limiter.SetBackoff(wait)
}

// Restart drops the cursor and the cached chat id.
func (p *Poller) Restart(ctx context.Context) error {
	p.mu.Lock()
	p.cursor = Cursor{}
	p.mu.Unlock()
	p.log.Warn().Msg("api poller reset")
	return nil
}

// Interval is the server suggested delay plus a buffer.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor.PollInterval <= 0 {
		return p.cfg.DefaultInterval + p.cfg.Buffer
	}
	return p.cursor.PollInterval
}

// Cursor returns a copy of the pagination state.
func (p *Poller) Cursor() Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Send posts text to the live chat.
func (p *Poller) Send(ctx context.Context, text string) error {
	chatID, err := p.ChatID(ctx)
	if err != nil {
		return err
	}
	return p.api.SendMessage(ctx, chatID, text)
}

// Go starts the poller on its own goroutine.
func (p *Poller) Go(ctx context.Context) error { return p.runner.Go(ctx) }

// Run runs the poller on the calling goroutine.
func (p *Poller) Run(ctx context.Context) error { return p.runner.Run(ctx) }

// Stop signals the poller and joins the goroutine.
func (p *Poller) Stop() { p.runner.Stop() }

// Done is closed when the poller goroutine exits.
func (p *Poller) Done() <-chan struct{} { return p.runner.Done() }

// Err returns the terminal failure, if any.
func (p *Poller) Err() error { return p.runner.Err() }

// State returns the lifecycle state.
func (p *Poller) State() producer.State { return p.runner.State() }

// Source tags messages from this producer.
func (p *Poller) Source() models.Source { return models.SourceAPI }

// Drain returns queued messages without waiting.
func (p *Poller) Drain() []models.ChatMessage { return p.queue.Drain() }
