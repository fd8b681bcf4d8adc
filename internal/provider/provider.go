// Package provider sends generation requests to a chain of text-generation
// backends, falling through to the next one on failure and cooling down
// backends that report rate limiting.
package provider

import (
	"context"
	"time"
)

// Request is one generation call.
type Request struct {
	Prompt    string
	System    string
	Model     string
	MaxTokens int64
}

// Response is a successful generation.
type Response struct {
	Text         string
	Provider     string
	Model        string
	Fallback     bool
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
}

// Provider is a text-generation backend.
type Provider interface {
	// Name is the unique registration name.
	Name() string
	// Models returns the ordered model preference. The first entry is used
	// unless the request names another model the provider offers.
	Models() []string
	// Generate performs the call. Implementations should return
	// *RateLimitError or *TokenLimitError when they can tell.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// pickModel returns the requested model when the provider offers it, else its first preference.
func pickModel(p Provider, requested string) string {
	models := p.Models()
	if requested != "" {
		for _, m := range models {
			if m == requested {
				return m
			}
		}
	}
	if len(models) > 0 {
		return models[0]
	}
	return requested
}
