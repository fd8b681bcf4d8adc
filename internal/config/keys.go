package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceProvider KeySource = "provider_config"
	KeySourceConfig   KeySource = "config_file"
	KeySourceEnv      KeySource = "environment"
	KeySourceNone     KeySource = "none"
)

// ResolveAPIKey returns the key a provider should use and where it came from.
// Order: the provider's own api_key, the shared anthropic.api_key, then ANTHROPIC_API_KEY.
func ResolveAPIKey(cfg *Config, p ProviderConfig) (string, KeySource) {
	if key := usableKey(p.APIKey); key != "" {
		return key, KeySourceProvider
	}
	if cfg != nil {
		if key := usableKey(cfg.Anthropic.APIKey); key != "" {
			return key, KeySourceConfig
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, KeySourceEnv
	}
	return "", KeySourceNone
}

// usableKey expands env references and rejects unresolved placeholders.
func usableKey(raw string) string {
	key := os.ExpandEnv(raw)
	if key == "" || strings.HasPrefix(key, "${") {
		return ""
	}
	return key
}

// ValidateAPIKey performs basic validation on an API key.
// It checks format but does not verify the key with Anthropic's API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
