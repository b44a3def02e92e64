// Package bot drives the chat pipeline: it merges producer output, asks the
// relevance gate about every message, answers the relevant ones and records
// the outcome.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockedby/hopii/internal/chatlog"
	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/merger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/producer"
	"github.com/blockedby/hopii/internal/relevance"
	"github.com/blockedby/hopii/internal/responder"
)

// Greeting is sent once after warm-up.
const Greeting = "Hello, I'm here now, have no fear!"

// Rule names recorded for messages the gate did not decide.
const (
	RuleWarmUp      = "warm_up"
	RuleUnparseable = "unparseable"
	RuleOwnMessage  = "own_message"
)

// Producer is a running chat source.
type Producer interface {
	merger.Producer
	Go(ctx context.Context) error
	Stop()
	Done() <-chan struct{}
	Err() error
	State() producer.State
}

// Sender posts a reply to the live chat.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Config controls the orchestration loop.
type Config struct {
	BotName         string
	StartupDelay    time.Duration
	Tick            time.Duration
	MergerCapacity  int
	ResponseEnabled bool
	SendEnabled     bool
	Greeting        string
}

func (c *Config) defaults() {
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.MergerCapacity <= 0 {
		c.MergerCapacity = merger.DefaultCapacity
	}
	if c.Greeting == "" {
		c.Greeting = Greeting
	}
}

// Deps are the collaborators of a Bot. Responder, Sender, ChatLog and
// Notifier are optional.
type Deps struct {
	Producers []Producer
	Gate      *relevance.Gate
	Responder *responder.Service
	Sender    Sender
	ChatLog   *chatlog.Queue
	Notifier  Notifier
}

// Bot is the orchestrator. Tick and warm-up run on the Run goroutine;
// Status may be called from anywhere.
type Bot struct {
	cfg       Config
	producers []Producer
	merger    *merger.Merger
	gate      *relevance.Gate
	responder *responder.Service
	sender    Sender
	chatlog   *chatlog.Queue
	notifier  Notifier
	log       *logger.Logger

	startedAt  atomic.Int64
	lastMsg    atomic.Int64
	processed  atomic.Int64
	relevant   atomic.Int64
	replies    atomic.Int64
	historyLen atomic.Int64
	dead       atomic.Int32

	stopOnce sync.Once
}

// New creates a bot.
func New(cfg Config, deps Deps, log *logger.Logger) *Bot {
	cfg.defaults()

	m := merger.New(cfg.MergerCapacity, log)
	for _, p := range deps.Producers {
		m.Add(p)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Bot{
		cfg:       cfg,
		producers: deps.Producers,
		merger:    m,
		gate:      deps.Gate,
		responder: deps.Responder,
		sender:    deps.Sender,
		chatlog:   deps.ChatLog,
		notifier:  notifier,
		log:       log.Component("bot"),
	}
}

// Run starts the producers, waits StartupDelay, warms up and then processes
// merged batches every Tick until ctx is cancelled. Producers are stopped on
// return.
func (b *Bot) Run(ctx context.Context) error {
	b.startedAt.Store(time.Now().UnixNano())

	for _, p := range b.producers {
		if err := p.Go(ctx); err != nil {
			b.stopProducers()
			return fmt.Errorf("start %s producer: %w", p.Source(), err)
		}
	}
	defer b.stopProducers()
	b.watchProducers(ctx)

	b.log.Info().
		Int("producers", len(b.producers)).
		Dur("startup_delay", b.cfg.StartupDelay).
		Msg("waiting for producers")
	if !sleep(ctx, b.cfg.StartupDelay) {
		return nil
	}

	b.WarmUp()
	b.greet(ctx)

	ticker := time.NewTicker(b.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.log.Info().Msg("bot stopped")
			return nil
		case <-ticker.C:
			b.Tick(ctx)
		}
	}
}

// WarmUp feeds everything produced so far into the gate history and the
// responder context without answering, then forgets the fingerprints.
func (b *Bot) WarmUp() {
	batch := b.merger.UniqueMessages()
	merger.SortByTimestamp(batch)

	for _, msg := range batch {
		if err := b.gate.Observe(msg); err != nil {
			b.log.Debug().Err(err).Str("author", msg.Author).Msg("skipping warm-up message")
			continue
		}
		if b.responder != nil {
			b.responder.Observe(msg.Author, msg.Text)
		}
		b.record(models.NewChatLogRecord(msg, "", false, RuleWarmUp))
	}
	b.historyLen.Store(int64(b.gate.History().Len()))
	b.merger.ClearSeen()

	b.log.Info().Int("messages", len(batch)).Msg("warm-up complete")
}

// Tick processes one merged batch in timestamp order.
func (b *Bot) Tick(ctx context.Context) {
	batch := b.merger.UniqueMessages()
	if len(batch) == 0 {
		return
	}
	merger.SortByTimestamp(batch)
	for _, msg := range batch {
		if ctx.Err() != nil {
			return
		}
		b.handle(ctx, msg)
	}
}

func (b *Bot) handle(ctx context.Context, msg models.ChatMessage) {
	b.processed.Add(1)
	b.lastMsg.Store(msg.Timestamp.UnixNano())

	if msg.Author == b.cfg.BotName {
		b.record(models.NewChatLogRecord(msg, "", false, RuleOwnMessage))
		return
	}

	v, err := b.gate.Evaluate(msg)
	b.historyLen.Store(int64(b.gate.History().Len()))
	if err != nil {
		if !errors.Is(err, relevance.ErrUnparseable) {
			b.log.Warn().Err(err).Str("author", msg.Author).Msg("relevance check failed")
		} else {
			b.log.Debug().Str("author", msg.Author).Msg("unparseable message treated as irrelevant")
		}
		v = relevance.Verdict{Rule: RuleUnparseable, Reason: err.Error()}
	}

	var response string
	if v.Relevant {
		b.relevant.Add(1)
		response = b.respond(ctx, msg)
	}

	rec := models.NewChatLogRecord(msg, response, v.Relevant, v.Rule)
	b.record(rec)
	if err := b.notifier.PublishDecision(ctx, models.NewDecisionEvent(rec, v.Reason, v.Sentiment)); err != nil {
		b.log.Warn().Err(err).Msg("failed to publish decision")
	}
}

func (b *Bot) respond(ctx context.Context, msg models.ChatMessage) string {
	if !b.cfg.ResponseEnabled || b.responder == nil {
		return ""
	}
	reply, err := b.responder.Reply(ctx, msg.Author, msg.Text)
	if err != nil {
		b.log.Error().Err(err).Str("author", msg.Author).Msg("failed to generate response")
		return ""
	}
	b.replies.Add(1)
	b.log.Info().
		Str("author", msg.Author).
		Str("message", msg.Text).
		Str("response", reply.Text).
		Bool("filtered", reply.Filtered).
		Msg("responding")

	b.send(ctx, reply.Text)
	return reply.Text
}

func (b *Bot) greet(ctx context.Context) {
	b.send(ctx, b.cfg.Greeting)
}

func (b *Bot) send(ctx context.Context, text string) {
	if !b.cfg.SendEnabled || b.sender == nil {
		return
	}
	if err := b.sender.Send(ctx, text); err != nil {
		b.log.Error().Err(err).Msg("failed to send chat message")
	}
}

func (b *Bot) record(rec models.ChatLogRecord) {
	if b.chatlog != nil {
		b.chatlog.Push(rec)
	}
}

// watchProducers logs each producer death once and warns when none are left.
func (b *Bot) watchProducers(ctx context.Context) {
	for _, p := range b.producers {
		go func(p Producer) {
			select {
			case <-ctx.Done():
				return
			case <-p.Done():
			}
			if ctx.Err() != nil {
				return
			}
			err := p.Err()
			b.log.Error().Err(err).Str("source", string(p.Source())).Msg("producer is no longer running")

			evt := models.ProducerEvent{Source: p.Source(), State: string(p.State()), At: time.Now().UTC()}
			if err != nil {
				evt.Error = err.Error()
			}
			if perr := b.notifier.PublishProducer(ctx, evt); perr != nil {
				b.log.Warn().Err(perr).Msg("failed to publish producer event")
			}

			if int(b.dead.Add(1)) == len(b.producers) {
				b.log.Warn().Msg("all producers stopped, no new chat messages will arrive")
			}
		}(p)
	}
}

func (b *Bot) stopProducers() {
	b.stopOnce.Do(func() {
		var wg sync.WaitGroup
		for _, p := range b.producers {
			wg.Add(1)
			go func(p Producer) {
				defer wg.Done()
				p.Stop()
			}(p)
		}
		wg.Wait()
	})
}

// Status returns a snapshot of the pipeline.
func (b *Bot) Status() models.PipelineStatus {
	st := models.PipelineStatus{
		SeenCount:  b.merger.Seen(),
		HistoryLen: int(b.historyLen.Load()),
		Processed:  b.processed.Load(),
		Relevant:   b.relevant.Load(),
		Replies:    b.replies.Load(),
		Producers:  make([]models.ProducerStatus, 0, len(b.producers)),
	}
	if ns := b.startedAt.Load(); ns != 0 {
		st.StartedAt = time.Unix(0, ns).UTC()
	}
	if ns := b.lastMsg.Load(); ns != 0 {
		t := time.Unix(0, ns).UTC()
		st.LastMessage = &t
	}
	if b.responder != nil {
		st.ContextLen = b.responder.Context().Len()
	}
	for _, p := range b.producers {
		ps := models.ProducerStatus{Source: p.Source(), State: string(p.State()), Alive: alive(p)}
		if err := p.Err(); err != nil {
			ps.Error = err.Error()
		}
		st.Live = st.Live || ps.Alive
		st.Producers = append(st.Producers, ps)
	}
	return st
}

func alive(p Producer) bool {
	if p.State() == producer.StateInit {
		return false
	}
	select {
	case <-p.Done():
		return false
	default:
		return true
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
