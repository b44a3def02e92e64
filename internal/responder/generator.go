package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Roles of context turns.
const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Turn is one line of conversation context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator produces a reply to a chat message.
type Generator interface {
	Respond(ctx context.Context, author, message string, history []Turn) (string, error)
}

// ErrEmptyCompletion is returned when the model answers with no choices.
var ErrEmptyCompletion = errors.New("no choices in response")

// Config holds the configuration for the OpenAI generator.
type Config struct {
	BaseURL      string
	Model        string
	APIKey       string
	MaxTokens    int
	Temperature  float32
	TopP         float32
	Timeout      time.Duration
	PromptPrefix string
}

// OpenAIGenerator is a Generator backed by an OpenAI compatible API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    Config
}

// NewOpenAIGenerator creates a generator with the provided configuration.
func NewOpenAIGenerator(cfg Config) *OpenAIGenerator {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
	}
}

// Respond sends the persona, the rolling history and the message to the model.
func (g *OpenAIGenerator) Respond(ctx context.Context, author, message string, history []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if g.cfg.PromptPrefix != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.cfg.PromptPrefix})
	}
	for _, t := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userLine(author, message)})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    msgs,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func userLine(author, message string) string {
	return author + ": " + message
}
