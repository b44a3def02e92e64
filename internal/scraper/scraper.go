// Package scraper reads livestream chat from the rendered YouTube popout chat
// page through a browser session.
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/producer"
	"github.com/blockedby/hopii/internal/telemetry"
)

// Config holds scraper settings.
type Config struct {
	VideoID      string
	BotName      string
	PollDelay    time.Duration
	SetupTimeout time.Duration
	MaxErrors    int
	// HumanizeChance is the per-poll probability of random interactions;
	// zero means one in three, negative disables them.
	HumanizeChance float64
	StopGrace      time.Duration
	JoinTimeout    time.Duration

	// test seams
	Now            func() time.Time
	Rand           *rand.Rand
	ParseTimestamp TimestampParser
}

func (c *Config) defaults() {
	if c.PollDelay <= 0 {
		c.PollDelay = time.Second
	}
	if c.SetupTimeout <= 0 {
		c.SetupTimeout = defaultSetupTimeout
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = 5
	}
	if c.HumanizeChance == 0 {
		c.HumanizeChance = 1.0 / 3
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.ParseTimestamp == nil {
		c.ParseTimestamp = ParseClockTimestamp
	}
}

// Scraper is the browser chat producer.
// Poll, Start and Restart run on the runner goroutine only; the browser
// handle is guarded because Stop releases it from another goroutine.
type Scraper struct {
	cfg        Config
	url        string
	newBrowser BrowserFactory
	log        *logger.Logger

	mu      sync.Mutex
	browser Browser

	seen       map[string]struct{}
	launchTime time.Time
	queue      producer.Queue
	runner     *producer.Runner
}

// New creates a scraper. Messages older than the minute of creation are ignored.
func New(cfg Config, newBrowser BrowserFactory, log *logger.Logger) *Scraper {
	cfg.defaults()
	s := &Scraper{
		cfg:        cfg,
		url:        fmt.Sprintf(chatURLFormat, cfg.VideoID),
		newBrowser: newBrowser,
		log:        log.Component("scraper"),
		seen:       make(map[string]struct{}),
		launchTime: cfg.Now(),
	}
	s.runner = producer.NewRunner(s, producer.Options{
		Source:      models.SourceScraper,
		MaxErrors:   cfg.MaxErrors,
		StopGrace:   cfg.StopGrace,
		JoinTimeout: cfg.JoinTimeout,
		Release:     s.closeBrowser,
	}, log)
	return s
}

// URL returns the chat page the scraper opens.
func (s *Scraper) URL() string { return s.url }

// LaunchTime is the inclusion floor for scraped messages.
func (s *Scraper) LaunchTime() time.Time { return s.launchTime }

// Start opens the chat page, switches it to "All messages" and waits for the
// first chat item. Any failure here is fatal for the session.
func (s *Scraper) Start(ctx context.Context) error {
	b := s.session()
	s.log.Info().Str("url", s.url).Msg("opening chat page")

	if err := b.Open(ctx, s.url); err != nil {
		return fmt.Errorf("open chat page: %w", err)
	}

	s.log.Debug().Msg("locating top chat dropdown")
	if err := b.ClickWhenReady(ctx, TopChatXPath, s.cfg.SetupTimeout); err != nil {
		return fmt.Errorf("top chat dropdown: %w", err)
	}

	s.log.Debug().Msg("locating all messages option")
	if err := b.ClickWhenReady(ctx, AllMessagesXPath, s.cfg.SetupTimeout); err != nil {
		return fmt.Errorf("all messages option: %w", err)
	}

	if err := b.WaitPresent(ctx, ChatItemSelector, s.cfg.SetupTimeout); err != nil {
		return fmt.Errorf("wait for chat items: %w", err)
	}

	s.log.Info().Msg("chat page ready")
	return nil
}

// Poll scans rendered items newest first, queues the unseen ones in arrival
// order and occasionally performs random interactions. Items that are still
// rendering are not marked seen.
func (s *Scraper) Poll(ctx context.Context) error {
	b := s.current()
	if b == nil {
		return ErrBrowserGone
	}

	items, err := b.ChatItems(ctx)
	if err != nil {
		return fmt.Errorf("list chat items: %w", err)
	}
	if len(items) == 0 {
		return ErrNoChatItems
	}

	now := s.cfg.Now()
	var fresh []models.ChatMessage
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if it.ID == "" {
			s.log.Warn().Msg("chat item without id, skipping")
			continue
		}
		if _, ok := s.seen[it.ID]; ok {
			continue
		}
		if it.Incomplete {
			// still rendering; picked up again on a later poll
			s.log.Debug().Str("id", it.ID).Msg("chat item incomplete, retrying later")
			continue
		}
		s.seen[it.ID] = struct{}{}

		msg, ok := s.extract(it, now)
		if ok {
			fresh = append(fresh, msg)
		}
	}

	// fresh is newest first
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}
	s.queue.Push(fresh...)
	telemetry.Produced(string(models.SourceScraper), len(fresh))

	if s.cfg.Rand.Float64() < s.cfg.HumanizeChance {
		if err := b.Humanize(ctx, s.cfg.Rand); err != nil {
			s.log.Warn().Err(err).Msg("random interaction failed")
		}
	}

	if err := b.ScrollToBottom(ctx); err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

// extract converts one item; failures affect that item only.
func (s *Scraper) extract(it Item, now time.Time) (models.ChatMessage, bool) {
	ts, err := s.cfg.ParseTimestamp(it.Timestamp, now)
	if err != nil {
		s.log.Warn().Err(err).Str("id", it.ID).Msg("failed to parse chat timestamp")
		return models.ChatMessage{}, false
	}

	if !NotBeforeLaunch(ts, s.launchTime) {
		s.log.Debug().
			Str("author", it.Author).
			Time("ts", ts).
			Time("launch", s.launchTime).
			Msg("message before launch, skipping")
		return models.ChatMessage{}, false
	}

	if it.Author == s.cfg.BotName {
		return models.ChatMessage{}, false
	}

	s.log.Debug().Str("author", it.Author).Time("ts", ts).Msg("scraped message")
	return models.ChatMessage{
		Author:    it.Author,
		Text:      it.Text,
		Timestamp: ts,
		Source:    models.SourceScraper,
	}, true
}

// Restart closes the browser session and starts a fresh one.
func (s *Scraper) Restart(ctx context.Context) error {
	s.log.Warn().Msg("recreating browser session")
	if err := s.closeBrowser(); err != nil {
		s.log.Warn().Err(err).Msg("error while closing browser")
	}
	return s.Start(ctx)
}

// Interval is the fixed delay between polls.
func (s *Scraper) Interval() time.Duration { return s.cfg.PollDelay }

// session returns the live browser, creating one if needed.
func (s *Scraper) session() Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		s.browser = s.newBrowser()
	}
	return s.browser
}

func (s *Scraper) current() Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

func (s *Scraper) closeBrowser() error {
	s.mu.Lock()
	b := s.browser
	s.browser = nil
	s.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Close()
}

// Go starts the scraper on its own goroutine.
func (s *Scraper) Go(ctx context.Context) error { return s.runner.Go(ctx) }

// Run runs the scraper on the calling goroutine.
func (s *Scraper) Run(ctx context.Context) error { return s.runner.Run(ctx) }

// Stop signals the scraper, closes the browser and joins the goroutine.
func (s *Scraper) Stop() { s.runner.Stop() }

// Done is closed when the scraper goroutine exits.
func (s *Scraper) Done() <-chan struct{} { return s.runner.Done() }

// Err returns the terminal failure, if any.
func (s *Scraper) Err() error { return s.runner.Err() }

// State returns the lifecycle state.
func (s *Scraper) State() producer.State { return s.runner.State() }

// Source tags messages from this producer.
func (s *Scraper) Source() models.Source { return models.SourceScraper }

// Drain returns queued messages without waiting.
func (s *Scraper) Drain() []models.ChatMessage { return s.queue.Drain() }
