package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"movierec-backend/internal/llm"
	"movierec-backend/internal/shared/telemetry"
)

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = "gpt-4o-mini"

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient constructs an OpenAI client. baseURL may point at any
// Chat Completions compatible endpoint.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	cfg := goopenai.DefaultConfig(strings.TrimSpace(apiKey))
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
	return &Client{
		api:   goopenai.NewClientWithConfig(cfg),
		model: strings.TrimSpace(model),
	}, nil
}

// Invoke sends prompt as a single user message and returns the first choice.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if !isGPT5(c.model) {
		req.Temperature = 0.7
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai http status %d: %s (%s)", apiErr.HTTPStatusCode, apiErr.Message, apiErr.Type)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("openai request timeout: %w", err)
		}
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openai response empty content")
	}

	telemetry.Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             c.model,
		"prompt_hash":       llm.PromptHash(prompt),
		"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	})
	return text, nil
}

// gpt-5 models reject a non-default temperature.
func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
