// Package nats carries chat pipeline events over a NATS JetStream stream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/blockedby/hopii/internal/logger"
)

// Stream and subjects carrying chat pipeline events.
const (
	StreamChat       = "CHAT"
	SubjectDecisions = "chat.decisions"
	SubjectProducers = "chat.producers"
	SubjectsAll      = "chat.>"
)

// Config describes the connection and the stream events land in.
type Config struct {
	URL            string
	Name           string        // client name shown by the server
	Stream         string        // defaults to StreamChat
	Subjects       []string      // defaults to SubjectsAll
	MaxAge         time.Duration // stream retention, default 24h
	ConnectTimeout time.Duration // default 5s
	PublishTimeout time.Duration // default 2s
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "hopii"
	}
	if c.Stream == "" {
		c.Stream = StreamChat
	}
	if len(c.Subjects) == 0 {
		c.Subjects = []string{SubjectsAll}
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
	return c
}

// streamConfig keeps the last MaxAge of events and drops the oldest first.
func (c Config) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:      c.Stream,
		Subjects:  c.Subjects,
		Retention: jetstream.LimitsPolicy,
		Discard:   jetstream.DiscardOld,
		Storage:   jetstream.FileStorage,
		MaxAge:    c.MaxAge,
	}
}

// Client is a JetStream connection bound to one stream.
type Client struct {
	cfg  Config
	conn *nats.Conn
	js   jetstream.JetStream
	log  *logger.Logger
}

// Connect dials the server and makes sure the stream exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is empty")
	}
	cfg = cfg.withDefaults()
	log = log.Component("nats")

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Debug().Msg("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, cfg.streamConfig()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}

	log.Info().Str("url", conn.ConnectedUrl()).Str("stream", cfg.Stream).Msg("nats connected")
	return &Client{cfg: cfg, conn: conn, js: js, log: log}, nil
}

// Publish stores data on subject and waits for the stream ack.
func (c *Client) Publish(subject string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PublishTimeout)
	defer cancel()
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Consume attaches a durable consumer for subject that only sees events
// published from now on. A handler error naks the message for redelivery.
// The returned function stops consumption.
func (c *Client) Consume(ctx context.Context, durable, subject string, handler func([]byte) error) (func(), error) {
	cons, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("consumer %s: %w", durable, err)
	}

	log := c.log.With().Str("consumer", durable).Logger()
	cc, err := cons.Consume(func(msg jetstream.Msg) {
		if err := handler(msg.Data()); err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject()).Msg("handler failed, redelivering")
			_ = msg.NakWithDelay(time.Second)
			return
		}
		_ = msg.Ack()
	}, jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
		log.Debug().Err(err).Msg("consume error")
	}))
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", subject, err)
	}
	return cc.Stop, nil
}

// Connected reports whether the connection is currently up.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

// Close drains pending publishes and subscriptions, falling back to a hard
// close when draining fails.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.log.Warn().Err(err).Msg("nats drain failed")
		c.conn.Close()
	}
}
