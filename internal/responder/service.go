// Package responder turns relevant chat messages into short bot replies.
package responder

import (
	"context"
	"time"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/telemetry"
)

// Reply is a generated answer.
type Reply struct {
	Text     string
	Filtered bool
}

// Service combines the filter, the generator and the rolling context.
type Service struct {
	gen    Generator
	filter *Filter
	ctx    *Context
	log    *logger.Logger
}

// NewService creates a responder service. filter may be nil.
func NewService(gen Generator, filter *Filter, history *Context, log *logger.Logger) *Service {
	if filter == nil {
		filter = NewFilter(FilterConfig{})
	}
	if history == nil {
		history = NewContext(DefaultContextSize)
	}
	return &Service{gen: gen, filter: filter, ctx: history, log: log.Component("responder")}
}

// Observe records a message the bot does not answer.
func (s *Service) Observe(author, message string) {
	s.ctx.Add(RoleUser, userLine(author, message))
}

// Reply answers message. The message and the answer are added to the
// context; on error only the message is.
func (s *Service) Reply(ctx context.Context, author, message string) (Reply, error) {
	history := s.ctx.Turns()
	s.ctx.Add(RoleUser, userLine(author, message))

	if s.filter.Triggered(author, message) {
		s.log.Info().Str("author", author).Msg("profanity filter triggered")
		telemetry.Responses.WithLabelValues("filtered").Inc()
		s.ctx.Add(RoleAssistant, ModsReply)
		return Reply{Text: ModsReply, Filtered: true}, nil
	}

	start := time.Now()
	text, err := s.gen.Respond(ctx, author, message, history)
	telemetry.ResponseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.Responses.WithLabelValues("error").Inc()
		return Reply{}, err
	}

	text = FormatResponse(text)
	s.ctx.Add(RoleAssistant, text)
	telemetry.Responses.WithLabelValues("generated").Inc()
	s.log.Debug().
		Str("author", author).
		Str("message", message).
		Str("response", text).
		Dur("took", time.Since(start)).
		Msg("reply generated")
	return Reply{Text: text}, nil
}

// Context returns the rolling context.
func (s *Service) Context() *Context { return s.ctx }
