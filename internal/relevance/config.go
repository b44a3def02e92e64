package relevance

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the relevance rule settings.
type Config struct {
	BotName             string        `yaml:"bot_name"`
	AuthorAllowlist     []string      `yaml:"author_allowlist"`
	GreetingWords       []string      `yaml:"greeting_words"`
	QuestionWords       []string      `yaml:"question_words"`
	Pronouns            []string      `yaml:"pronouns"`
	KnownEntities       []string      `yaml:"known_entities"`
	ShortThreshold      int           `yaml:"short_threshold"`
	HistorySize         int           `yaml:"history_size"`
	GreetingLookback    int           `yaml:"greeting_lookback"`
	GreetingWindow      time.Duration `yaml:"greeting_window"`
	GreetingLimit       int           `yaml:"greeting_limit"`
	ReplyWindow         time.Duration `yaml:"reply_window"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
}

// DefaultConfig returns the built-in rule settings.
func DefaultConfig() Config {
	return Config{
		GreetingWords: []string{
			"hi", "hello", "hey", "heya", "hiya", "howdy", "greetings",
			"yo", "sup", "hola", "gm", "hallo", "bonjour",
		},
		QuestionWords: []string{
			"what", "why", "how", "when", "where", "who", "which", "whose", "whom",
		},
		Pronouns:            []string{"it", "he", "she", "they"},
		KnownEntities:       []string{"spacex", "starship", "super heavy", "falcon 9", "falcon heavy", "nasa", "starbase", "raptor", "mars", "moon"},
		ShortThreshold:      3,
		HistorySize:         10,
		GreetingLookback:    10,
		GreetingWindow:      60 * time.Second,
		GreetingLimit:       2,
		ReplyWindow:         30 * time.Second,
		SimilarityThreshold: 0.6,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read relevance config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse relevance config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the numeric settings.
func (c Config) Validate() error {
	var errs []error
	if c.ShortThreshold < 0 {
		errs = append(errs, errors.New("short_threshold must not be negative"))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, errors.New("history_size must be positive"))
	}
	if c.GreetingLookback <= 0 {
		errs = append(errs, errors.New("greeting_lookback must be positive"))
	}
	if c.GreetingWindow <= 0 {
		errs = append(errs, errors.New("greeting_window must be positive"))
	}
	if c.GreetingLimit < 0 {
		errs = append(errs, errors.New("greeting_limit must not be negative"))
	}
	if c.ReplyWindow < 0 {
		errs = append(errs, errors.New("reply_window must not be negative"))
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, errors.New("similarity_threshold must be within [0, 1]"))
	}
	return errors.Join(errs...)
}
