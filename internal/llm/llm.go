package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Client sends a single prompt to a text-generation model and returns the
// model's raw text output.
type Client interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured marks a provider that cannot run because credentials or
// required settings are missing.
var ErrNotConfigured = errors.New("llm client not configured")

// PlaceholderClient stands in for a provider whose credentials are missing.
// Every call fails with ErrNotConfigured.
type PlaceholderClient struct {
	Reason string
}

// Invoke returns ErrNotConfigured.
func (p PlaceholderClient) Invoke(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	if p.Reason == "" {
		return "", ErrNotConfigured
	}
	return "", fmt.Errorf("%w: %s", ErrNotConfigured, p.Reason)
}

// PromptHash returns a stable hex digest of prompt for log correlation.
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
