package relevance

import "time"

// Rule names.
const (
	RuleAllowlist   = "allowlist"
	RuleGreeting    = "greeting"
	RuleShort       = "short"
	RuleReply       = "reply"
	RuleSharedTopic = "shared_entity"
	RuleQuestion    = "question_or_subject"
	RuleDefault     = "default"
)

// Decision is the outcome of a matching rule.
type Decision struct {
	Relevant bool
	Reason   string
}

// Rule is one step of the decision cascade. Decide reports false when the
// rule does not apply and the next rule should run.
type Rule struct {
	Name   string
	Decide func(m *Message, h *History) (Decision, bool)
}

func relevant(reason string) (Decision, bool)   { return Decision{Relevant: true, Reason: reason}, true }
func irrelevant(reason string) (Decision, bool) { return Decision{Relevant: false, Reason: reason}, true }

// DefaultRules builds the cascade in evaluation order.
func DefaultRules(cfg Config, ex *Extractor) []Rule {
	allow := make(map[string]struct{}, len(cfg.AuthorAllowlist))
	for _, a := range cfg.AuthorAllowlist {
		allow[a] = struct{}{}
	}

	return []Rule{
		{Name: RuleAllowlist, Decide: func(m *Message, _ *History) (Decision, bool) {
			if _, ok := allow[m.Author]; ok {
				return relevant("author allowlisted")
			}
			return Decision{}, false
		}},
		{Name: RuleGreeting, Decide: func(m *Message, h *History) (Decision, bool) {
			if !m.IsGreeting {
				return Decision{}, false
			}
			if ex.DirectedAtBot(m.Tokens) {
				return relevant("greeting directed at bot")
			}
			if recentGreetings(m, h, cfg.GreetingLookback, cfg.GreetingWindow) < cfg.GreetingLimit {
				return relevant("greeting under limit")
			}
			return irrelevant("greeting flood")
		}},
		{Name: RuleShort, Decide: func(m *Message, _ *History) (Decision, bool) {
			if m.IsShort && !m.IsQuestion {
				return irrelevant("short statement")
			}
			return Decision{}, false
		}},
		{Name: RuleReply, Decide: func(m *Message, h *History) (Decision, bool) {
			prev, ok := h.Last()
			if !ok {
				return Decision{}, false
			}
			if reason := replyReason(m, prev, cfg); reason != "" {
				return irrelevant(reason)
			}
			return Decision{}, false
		}},
		{Name: RuleSharedTopic, Decide: func(m *Message, h *History) (Decision, bool) {
			for _, e := range h.Entries() {
				if m.SharesEntity(e) {
					return relevant("shares entity with history")
				}
			}
			return Decision{}, false
		}},
		{Name: RuleQuestion, Decide: func(m *Message, _ *History) (Decision, bool) {
			if m.IsQuestion {
				return relevant("question")
			}
			if m.Subject != "" {
				return relevant("has subject")
			}
			return Decision{}, false
		}},
		{Name: RuleDefault, Decide: func(*Message, *History) (Decision, bool) {
			return irrelevant("no rule matched")
		}},
	}
}

// recentGreetings counts greetings among the last n history entries sent
// within window of m.
func recentGreetings(m *Message, h *History, n int, window time.Duration) int {
	count := 0
	for _, e := range h.Recent(n) {
		if e.IsGreeting && absDuration(m.Timestamp.Sub(e.Timestamp)) <= window {
			count++
		}
	}
	return count
}

// replyReason explains why m looks like a reply to prev, empty when it does not.
func replyReason(m, prev *Message, cfg Config) string {
	switch {
	case m.Author != prev.Author && absDuration(m.Timestamp.Sub(prev.Timestamp)) <= cfg.ReplyWindow:
		return "reply within time window"
	case m.SharesEntity(prev):
		return "shares entity with previous message"
	case SimilarityRatio(m.Normalized, prev.Normalized) >= cfg.SimilarityThreshold:
		return "similar to previous message"
	case m.UnresolvedPronoun:
		return "unresolved pronoun"
	}
	return ""
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
