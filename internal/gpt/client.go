// internal/gpt/client.go
package gpt

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float32
}

// NewClient builds the completion client. An empty apiKey yields a client
// that reports itself unconfigured; callers are expected to fall back.
func NewClient(apiKey string) *Client {
	var c *openai.Client
	if apiKey != "" {
		c = openai.NewClient(apiKey)
	}
	return &Client{
		client:      c,
		apiKey:      apiKey,
		model:       openai.GPT3Dot5Turbo,
		maxTokens:   1600,
		temperature: 0.7,
	}
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithLimits(maxTokens int, temperature float32) *Client {
	if maxTokens > 0 {
		c.maxTokens = maxTokens
	}
	if temperature > 0 {
		c.temperature = temperature
	}
	return c
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete sends a single-turn chat completion request and returns the text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("completion client is not configured")
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from completion API")
	}

	return resp.Choices[0].Message.Content, nil
}
