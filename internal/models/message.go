// Package models defines shared data types for the application.
package models

import (
	"fmt"
	"time"
)

// Source identifies which producer originated a chat message.
type Source string

// Source constants define the supported chat message producers.
const (
	SourceScraper Source = "scraper"
	SourceAPI     Source = "api"
	SourceManual  Source = "manual"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceScraper, SourceAPI, SourceManual:
		return true
	}
	return false
}

// ParseSource converts a string into a Source.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}

// ChatMessage is a single livestream chat line as emitted by a producer.
// Values are treated as immutable once created; pass them by value.
type ChatMessage struct {
	Author    string    `json:"author"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source,omitempty"`

	// platform specific id, empty when the producer has none
	PlatformID string `json:"platform_id,omitempty"`
}

// WithSource returns a copy of m stamped with src.
func (m ChatMessage) WithSource(src Source) ChatMessage {
	m.Source = src
	return m
}

// String renders the message the way it is shown to the response generator.
func (m ChatMessage) String() string {
	return m.Author + ": " + m.Text
}
