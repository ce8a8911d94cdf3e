package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ClientConfig holds connection settings for an OpenAI-compatible API.
// Setting BaseURL to an Ollama endpoint (http://localhost:11434/v1) lets the
// same client serve local models.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// Client wraps the OpenAI client shared by embedding and generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a new OpenAI client.
// An API key is required unless a custom BaseURL is configured, since local
// OpenAI-compatible servers usually ignore it.
func NewClient(cfg ClientConfig, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	client := openai.NewClient(reqOpts...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
