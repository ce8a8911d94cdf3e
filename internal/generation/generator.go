// Package generation provides the text-generation capability used to answer questions.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature and DefaultMaxTokens match the sampling settings the
	// chat endpoint has always used.
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 2000
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Generator produces free-form text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options are pass-through sampling parameters.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// OpenAIGenerator answers prompts through an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	opts   Options
}

// NewOpenAIGenerator creates a generator with the given OpenAI client.
// An empty model or non-positive MaxTokens falls back to the package default;
// a negative Temperature selects DefaultTemperature.
func NewOpenAIGenerator(client *openai.Client, opts Options) *OpenAIGenerator {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature < 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &OpenAIGenerator{
		client: client,
		opts:   opts,
	}
}

// Generate sends prompt as a single user message and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.opts.Model),
		Temperature: openai.Float(g.opts.Temperature),
		MaxTokens:   openai.Int(int64(g.opts.MaxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
