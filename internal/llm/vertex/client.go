package vertex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"movierec-backend/internal/llm"
	"movierec-backend/internal/shared/telemetry"
)

// DefaultModel is used when LLM_MODEL is empty.
const DefaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client on Vertex AI generative models.
type Client struct {
	client *genai.Client
	model  generator
	name   string
}

// Options selects the Vertex project and model.
type Options struct {
	Project     string
	Location    string
	Model       string
	AccessToken string
}

// NewClient dials Vertex AI. A static AccessToken is used when set, otherwise
// application default credentials.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Project) == "" {
		return nil, fmt.Errorf("%w: VERTEX_PROJECT is not set", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(opts.Location) == "" {
		opts.Location = "us-central1"
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}

	var clientOpts []option.ClientOption
	if tok := strings.TrimSpace(opts.AccessToken); tok != "" {
		clientOpts = append(clientOpts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})))
	}
	gc, err := genai.NewClient(ctx, opts.Project, opts.Location, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("vertex client: %w", err)
	}
	return &Client{
		client: gc,
		model:  gc.GenerativeModel(opts.Model),
		name:   opts.Model,
	}, nil
}

// Invoke sends prompt as a single text part.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	telemetry.Info("llm.response", map[string]any{
		"provider":    "vertex",
		"model":       c.name,
		"prompt_hash": llm.PromptHash(prompt),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	})
	return text, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("vertex response missing candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("vertex response empty content")
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("vertex response empty content")
	}
	return b.String(), nil
}

var _ llm.Client = (*Client)(nil)
