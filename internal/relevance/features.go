package relevance

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/blockedby/hopii/internal/models"
)

// ErrUnparseable is returned for text that yields no features.
var ErrUnparseable = errors.New("message text cannot be parsed")

// Message is a chat message with its derived features.
type Message struct {
	models.ChatMessage

	// Tokens are case folded words in order.
	Tokens     []string
	Normalized string

	IsGreeting bool
	IsQuestion bool
	IsShort    bool
	Entities   []string
	Subject    string
	Sentiment  float64

	// UnresolvedPronoun is set when a tracked pronoun appears and the
	// message names no entity it could refer to.
	UnresolvedPronoun bool
}

// HasEntity reports whether e is among the message entities.
func (m *Message) HasEntity(e string) bool {
	for _, x := range m.Entities {
		if x == e {
			return true
		}
	}
	return false
}

// SharesEntity reports whether m and o name a common entity.
func (m *Message) SharesEntity(o *Message) bool {
	for _, e := range m.Entities {
		if o.HasEntity(e) {
			return true
		}
	}
	return false
}

var auxVerbs = set(
	"is", "are", "was", "were", "am", "do", "does", "did", "can", "could",
	"will", "would", "should", "shall", "has", "have", "had", "may", "might", "must",
	"isn't", "aren't", "don't", "doesn't", "didn't", "can't", "won't", "wouldn't", "shouldn't",
)

var subjectPronouns = set("i", "you", "we", "he", "she", "it", "they")

// stopwords never count as a subject or entity.
var stopwords = set(
	"a", "an", "the", "and", "or", "but", "so", "if", "then", "than", "to", "of", "in", "on",
	"at", "by", "for", "with", "from", "about", "as", "into", "over", "just", "also", "very",
	"this", "that", "these", "those", "there", "here", "me", "my", "mine", "your", "yours",
	"our", "his", "her", "its", "their", "them", "him", "us", "not", "no", "all", "any",
	"some", "too", "now", "get", "got", "like", "really", "thing", "things", "one",
	"lol", "lmao", "rofl", "haha", "hahaha", "nice", "cool", "wow", "omg", "yes", "yeah",
	"yep", "nope", "okay", "great", "good", "awesome", "thanks", "thank", "please", "well",
)

// Extractor derives message features. It is not safe for concurrent use.
type Extractor struct {
	cfg       Config
	fold      cases.Caser
	greetings map[string]struct{}
	questions map[string]struct{}
	pronouns  map[string]struct{}
	entities  [][]string
	botTokens []string
	botWords  map[string]struct{}
}

// NewExtractor creates an extractor for cfg.
func NewExtractor(cfg Config) *Extractor {
	e := &Extractor{
		cfg:  cfg,
		fold: cases.Fold(),
	}
	e.greetings = e.foldSet(cfg.GreetingWords)
	e.questions = e.foldSet(cfg.QuestionWords)
	e.pronouns = e.foldSet(cfg.Pronouns)
	for _, name := range cfg.KnownEntities {
		if toks := e.words(name); len(toks) > 0 {
			e.entities = append(e.entities, toks)
		}
	}
	e.botTokens = e.words(cfg.BotName)
	e.botWords = set(e.botTokens...)
	return e
}

func (e *Extractor) foldSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[e.fold.String(strings.TrimSpace(w))] = struct{}{}
	}
	return out
}

// words tokenizes and folds s.
func (e *Extractor) words(s string) []string {
	var out []string
	for _, w := range tokenize(s) {
		out = append(out, e.fold.String(w.text))
	}
	return out
}

// Parse derives the features of msg.
func (e *Extractor) Parse(msg models.ChatMessage) (*Message, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || !utf8.ValidString(text) {
		return nil, ErrUnparseable
	}

	raw := tokenize(text)
	m := &Message{ChatMessage: msg}
	m.Tokens = make([]string, len(raw))
	for i, w := range raw {
		m.Tokens[i] = e.fold.String(w.text)
	}
	m.Normalized = strings.Join(m.Tokens, " ")

	m.IsShort = len(m.Tokens) < e.cfg.ShortThreshold
	m.IsGreeting = e.anyIn(m.Tokens, e.greetings)
	m.IsQuestion = e.isQuestion(text, m.Tokens)
	m.Entities = e.namedEntities(raw, m.Tokens)
	m.Subject = e.subject(m.Tokens, m.Entities)
	m.Sentiment = Sentiment(m.Tokens)
	m.UnresolvedPronoun = len(m.Entities) == 0 && e.anyIn(m.Tokens, e.pronouns)
	return m, nil
}

func (e *Extractor) anyIn(tokens []string, words map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := words[t]; ok {
			return true
		}
	}
	return false
}

func (e *Extractor) isQuestion(text string, tokens []string) bool {
	if strings.HasSuffix(text, "?") {
		return true
	}
	if len(tokens) == 0 {
		return false
	}
	if _, ok := e.questions[tokens[0]]; ok {
		return true
	}
	// inverted aux + subject: "is starship flying today"
	if _, ok := auxVerbs[tokens[0]]; ok {
		for _, t := range tokens[1:] {
			if _, ok := subjectPronouns[t]; ok || nounLike(t) {
				return true
			}
		}
	}
	return false
}

// namedEntities returns configured entities found in the tokens followed by
// capitalized runs that do not open a sentence.
func (e *Extractor) namedEntities(raw []word, tokens []string) []string {
	var out []string
	add := func(s string) {
		for _, x := range out {
			if x == s {
				return
			}
		}
		out = append(out, s)
	}

	for _, ent := range e.entities {
		if containsRun(tokens, ent) {
			add(strings.Join(ent, " "))
		}
	}

	var run []string
	flush := func() {
		if len(run) > 0 {
			add(strings.Join(run, " "))
			run = run[:0]
		}
	}
	for i, w := range raw {
		t := tokens[i]
		capital := startsUpper(w.text)
		_, stop := stopwords[t]
		_, greet := e.greetings[t]
		_, pron := subjectPronouns[t]
		_, bot := e.botWords[t] // addressing the bot is not a topic
		if capital && !w.sentenceStart && !stop && !greet && !pron && !bot {
			run = append(run, t)
			continue
		}
		flush()
	}
	flush()
	return out
}

// subject returns the first subject pronoun or entity, else the first
// noun-like token.
func (e *Extractor) subject(tokens []string, entities []string) string {
	for _, t := range tokens {
		if _, ok := subjectPronouns[t]; ok {
			return t
		}
	}
	if len(entities) > 0 {
		return entities[0]
	}
	for _, t := range tokens {
		if _, ok := e.greetings[t]; ok {
			continue
		}
		if _, ok := e.questions[t]; ok {
			continue
		}
		if _, ok := auxVerbs[t]; ok {
			continue
		}
		if nounLike(t) {
			return t
		}
	}
	return ""
}

// DirectedAtBot reports whether a greeting word sits right next to the bot
// name, on either side.
func (e *Extractor) DirectedAtBot(tokens []string) bool {
	n := len(e.botTokens)
	if n == 0 {
		return false
	}
	for i, t := range tokens {
		if _, ok := e.greetings[t]; !ok {
			continue
		}
		if i+1+n <= len(tokens) && equalTokens(tokens[i+1:i+1+n], e.botTokens) {
			return true
		}
		if i-n >= 0 && equalTokens(tokens[i-n:i], e.botTokens) {
			return true
		}
	}
	return false
}

func nounLike(t string) bool {
	if utf8.RuneCountInString(t) < 3 {
		return false
	}
	if _, ok := stopwords[t]; ok {
		return false
	}
	if _, ok := auxVerbs[t]; ok {
		return false
	}
	for _, r := range t {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

type word struct {
	text          string
	sentenceStart bool
}

// tokenize splits s into words of letters, digits and apostrophes. A word
// opens a sentence when it is first or follows '.', '!' or '?'.
func tokenize(s string) []word {
	var (
		out   []word
		b     strings.Builder
		start = true
		open  bool
	)
	emit := func() {
		if b.Len() == 0 {
			return
		}
		text := strings.Trim(b.String(), "'’")
		b.Reset()
		if text == "" {
			return
		}
		out = append(out, word{text: text, sentenceStart: open})
		open = false
	}

	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’':
			if b.Len() == 0 {
				open = start
				start = false
			}
			b.WriteRune(r)
		default:
			emit()
			if r == '.' || r == '!' || r == '?' {
				start = true
			}
		}
	}
	emit()
	return out
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func containsRun(tokens, run []string) bool {
	for i := 0; i+len(run) <= len(tokens); i++ {
		if equalTokens(tokens[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func set(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
