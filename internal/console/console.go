// Package console is a manual chat producer fed from a line reader,
// normally stdin. Lines look like "author: text"; a line without a colon
// is attributed to the default author.
package console

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/producer"
)

// DefaultAuthor is used for lines without an author prefix.
const DefaultAuthor = "Bob"

// Console reads chat lines on a background goroutine and hands them to the
// producer runner.
type Console struct {
	r      io.Reader
	author string
	now    func() time.Time
	log    *logger.Logger

	lines  chan string
	queue  producer.Queue
	runner *producer.Runner
}

// New creates a console producer reading from r.
func New(r io.Reader, author string, log *logger.Logger) *Console {
	if author == "" {
		author = DefaultAuthor
	}
	c := &Console{
		r:      r,
		author: author,
		now:    time.Now,
		log:    log.Component("console"),
		lines:  make(chan string, 64),
	}
	c.runner = producer.NewRunner(c, producer.Options{
		Source:    models.SourceManual,
		MaxErrors: 1,
	}, log)
	return c
}

// Start launches the reader goroutine. It exits at EOF; a blocked read on
// stdin is abandoned at shutdown.
func (c *Console) Start(ctx context.Context) error {
	go func() {
		sc := bufio.NewScanner(c.r)
		for sc.Scan() {
			select {
			case c.lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			c.log.Warn().Err(err).Msg("console input closed")
		}
	}()
	return nil
}

// Poll moves buffered lines to the queue.
func (c *Console) Poll(ctx context.Context) error {
	var batch []models.ChatMessage
	for {
		select {
		case line := <-c.lines:
			if msg, ok := c.parse(line); ok {
				batch = append(batch, msg)
			}
		default:
			c.queue.Push(batch...)
			return nil
		}
	}
}

func (c *Console) parse(line string) (models.ChatMessage, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.ChatMessage{}, false
	}
	author, text := c.author, line
	if a, t, ok := strings.Cut(line, ":"); ok && strings.TrimSpace(a) != "" && !strings.ContainsAny(a, " \t") {
		author, text = strings.TrimSpace(a), strings.TrimSpace(t)
	}
	if text == "" {
		return models.ChatMessage{}, false
	}
	return models.ChatMessage{
		Author:    author,
		Text:      text,
		Timestamp: c.now(),
		Source:    models.SourceManual,
	}, true
}

// Restart is a no-op; the reader has no session to rebuild.
func (c *Console) Restart(ctx context.Context) error { return nil }

// Interval is the delay between polls.
func (c *Console) Interval() time.Duration { return 200 * time.Millisecond }

// Go starts the producer goroutine.
func (c *Console) Go(ctx context.Context) error { return c.runner.Go(ctx) }

// Stop stops the producer.
func (c *Console) Stop() { c.runner.Stop() }

// Done is closed when the producer exits.
func (c *Console) Done() <-chan struct{} { return c.runner.Done() }

// Err returns the terminal error.
func (c *Console) Err() error { return c.runner.Err() }

// State returns the lifecycle state.
func (c *Console) State() producer.State { return c.runner.State() }

// Source identifies the producer.
func (c *Console) Source() models.Source { return models.SourceManual }

// Drain returns queued messages.
func (c *Console) Drain() []models.ChatMessage { return c.queue.Drain() }
