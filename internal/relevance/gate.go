// Package relevance decides which chat messages the bot should answer.
//
// Each message is parsed into features and run through an ordered rule
// table; the first rule that matches decides. Decisions look at a bounded
// history of the messages evaluated before.
package relevance

import (
	"slices"

	"github.com/blockedby/hopii/internal/logger"
	"github.com/blockedby/hopii/internal/models"
	"github.com/blockedby/hopii/internal/telemetry"
)

// Verdict is the gate decision for one message.
type Verdict struct {
	Relevant  bool    `json:"relevant"`
	Rule      string  `json:"rule"`
	Reason    string  `json:"reason"`
	Sentiment float64 `json:"sentiment"`
}

// Gate owns the conversation history. It is used from one goroutine.
type Gate struct {
	cfg     Config
	ex      *Extractor
	history *History
	rules   []Rule
	log     *logger.Logger
}

// NewGate creates a gate with the default rule table.
func NewGate(cfg Config, log *logger.Logger) *Gate {
	ex := NewExtractor(cfg)
	return &Gate{
		cfg:     cfg,
		ex:      ex,
		history: NewHistory(cfg.HistorySize),
		rules:   DefaultRules(cfg, ex),
		log:     log.Component("relevance"),
	}
}

// Evaluate decides whether msg should be answered. The decision sees the
// history as it was before msg; msg is appended afterwards.
//
// Text that cannot be parsed returns ErrUnparseable and is not recorded,
// unless the author is allowlisted.
func (g *Gate) Evaluate(msg models.ChatMessage) (Verdict, error) {
	m, err := g.ex.Parse(msg)
	if err != nil {
		if slices.Contains(g.cfg.AuthorAllowlist, msg.Author) {
			telemetry.Decision(RuleAllowlist, true)
			return Verdict{Relevant: true, Rule: RuleAllowlist, Reason: "author allowlisted"}, nil
		}
		return Verdict{}, err
	}

	v := g.decide(m)
	g.history.Append(m)

	telemetry.Decision(v.Rule, v.Relevant)
	g.log.Debug().
		Str("author", msg.Author).
		Str("message", msg.Text).
		Bool("relevant", v.Relevant).
		Str("rule", v.Rule).
		Str("reason", v.Reason).
		Msg("relevance decided")
	return v, nil
}

func (g *Gate) decide(m *Message) Verdict {
	for _, r := range g.rules {
		if d, ok := r.Decide(m, g.history); ok {
			return Verdict{Relevant: d.Relevant, Rule: r.Name, Reason: d.Reason, Sentiment: m.Sentiment}
		}
	}
	return Verdict{Rule: RuleDefault, Sentiment: m.Sentiment}
}

// Observe records msg in the history without deciding. Used to seed the
// history with chat that predates the bot.
func (g *Gate) Observe(msg models.ChatMessage) error {
	m, err := g.ex.Parse(msg)
	if err != nil {
		return err
	}
	g.history.Append(m)
	return nil
}

// Parse exposes feature extraction.
func (g *Gate) Parse(msg models.ChatMessage) (*Message, error) { return g.ex.Parse(msg) }

// History returns the conversation window.
func (g *Gate) History() *History { return g.history }
