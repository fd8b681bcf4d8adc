package provider

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrNoProviders is returned when the engine is built without any backend.
var ErrNoProviders = errors.New("no providers configured")

// maxFailureMessage bounds recorded failure text.
const maxFailureMessage = 200

// rateLimitSignatures are matched case-insensitively against error text.
var rateLimitSignatures = []string{
	"429",
	"rate limit",
	"rate_limit",
	"quota",
	"too many requests",
	"overloaded",
}

// ProviderError is a generic backend failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimitError means the backend throttled the call. The engine puts the
// provider into cooldown.
type RateLimitError struct {
	Provider   string
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider %s rate limited: %s", e.Provider, e.Message)
}

// TokenLimitError means the backend's quota is exhausted. The provider is
// marked unavailable until Engine.Reset is called.
type TokenLimitError struct {
	Provider string
	Message  string
}

func (e *TokenLimitError) Error() string {
	return fmt.Sprintf("provider %s token limit reached: %s", e.Provider, e.Message)
}

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Failure records why one candidate did not produce a response.
type Failure struct {
	Provider    string    `json:"provider"`
	Message     string    `json:"message"`
	At          time.Time `json:"at"`
	RateLimited bool      `json:"rate_limited"`
	Skipped     bool      `json:"skipped"`
}

// ExhaustedError is returned when every candidate failed or was skipped.
type ExhaustedError struct {
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "all providers failed"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Provider+": "+f.Message)
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// IsRateLimited reports whether err is a rate-limit signal, either typed or
// recognised from its text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
