package responder

import (
	"slices"

	goaway "github.com/TwiN/go-away"
	"golang.org/x/text/cases"
)

// ModsReply is sent instead of a model reply when a message trips the filter.
const ModsReply = "Hey Mods? Someone in chat is using those sentence enhancers again."

// FilterConfig configures the profanity filter.
type FilterConfig struct {
	Enabled         bool
	Words           []string // replaces the go-away dictionary when set
	WordAllowlist   []string
	AuthorAllowlist []string
}

// Filter flags messages the profanity detector matches.
type Filter struct {
	enabled  bool
	detector *goaway.ProfanityDetector
	authors  map[string]struct{}
}

// NewFilter builds a filter. Allowlisted words are dropped from the
// dictionary and treated as false positives so longer listed words that
// contain them still match on their own.
func NewFilter(cfg FilterConfig) *Filter {
	fold := cases.Fold()
	words := goaway.DefaultProfanities
	if len(cfg.Words) > 0 {
		words = cfg.Words
	}

	allow := make([]string, 0, len(cfg.WordAllowlist))
	for _, w := range cfg.WordAllowlist {
		allow = append(allow, fold.String(w))
	}
	profanities := make([]string, 0, len(words))
	for _, w := range words {
		w = fold.String(w)
		if !slices.Contains(allow, w) {
			profanities = append(profanities, w)
		}
	}
	falsePositives := append(slices.Clone(goaway.DefaultFalsePositives), allow...)
	falseNegatives := slices.DeleteFunc(slices.Clone(goaway.DefaultFalseNegatives), func(w string) bool {
		return slices.Contains(allow, w)
	})

	f := &Filter{
		enabled: cfg.Enabled,
		// joining words across spaces flags innocent phrases in chat
		detector: goaway.NewProfanityDetector().
			WithSanitizeSpaces(false).
			WithCustomDictionary(profanities, falsePositives, falseNegatives),
		authors: make(map[string]struct{}, len(cfg.AuthorAllowlist)),
	}
	for _, a := range cfg.AuthorAllowlist {
		f.authors[a] = struct{}{}
	}
	return f
}

// Triggered reports whether message from author should get the mods reply.
func (f *Filter) Triggered(author, message string) bool {
	if !f.enabled {
		return false
	}
	if _, ok := f.authors[author]; ok {
		return false
	}
	return f.detector.IsProfane(message)
}
