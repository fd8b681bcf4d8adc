package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/steward/internal/config"
)

// Build instantiates providers from configuration in declaration order.
func Build(cfg *config.Config) ([]Provider, error) {
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		p, err := buildOne(cfg, pc)
		var cfgErr *ConfigurationError
		switch {
		case err == nil:
		case pc.Kind.Valid() && errors.As(err, &cfgErr):
			p = &unconfigured{name: pc.Name, models: pc.Models, err: err}
		default:
			return nil, err
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		return nil, &ConfigurationError{Err: ErrNoProviders}
	}
	return providers, nil
}

func buildOne(cfg *config.Config, pc config.ProviderConfig) (Provider, error) {
	switch pc.Kind {
	case config.ProviderEcho:
		return NewEchoProvider(pc.Name), nil
	case config.ProviderAnthropic, "":
		key, _ := config.ResolveAPIKey(cfg, pc)
		return NewAnthropicProvider(AnthropicConfig{
			Name:      pc.Name,
			Models:    pc.Models,
			APIKey:    key,
			MaxTokens: pc.MaxTokens,
		})
	case config.ProviderBedrock:
		return NewAnthropicProvider(AnthropicConfig{
			Name:          pc.Name,
			Models:        pc.Models,
			UseAWSBedrock: true,
			AWSRegion:     pc.Region,
			AWSProfile:    pc.Profile,
			MaxTokens:     pc.MaxTokens,
		})
	default:
		return nil, &ConfigurationError{Err: fmt.Errorf("provider %q: unknown kind %q", pc.Name, pc.Kind)}
	}
}

// EngineConfig derives the engine settings from configuration.
func EngineConfig(cfg *config.Config) Config {
	timeouts := make(map[string]time.Duration)
	for _, pc := range cfg.Providers {
		if pc.Timeout > 0 {
			timeouts[pc.Name] = pc.Timeout
		}
	}
	return Config{
		Default:          cfg.Routing.DefaultProvider,
		RouterPreference: cfg.Routing.RouterPreference,
		FallbackOrder:    cfg.Routing.FallbackOrder,
		Cooldown:         cfg.Routing.Cooldown,
		Timeout:          cfg.Routing.Timeout,
		Timeouts:         timeouts,
	}
}

// unconfigured stands in for a provider whose backend could not be built,
// for example an anthropic entry without a key. It stays registered so the
// engine reports it as unavailable instead of refusing to start.
type unconfigured struct {
	name   string
	models []string
	err    error
}

func (u *unconfigured) Name() string     { return u.name }
func (u *unconfigured) Models() []string { return u.models }

func (u *unconfigured) Generate(context.Context, Request) (*Response, error) {
	return nil, u.err
}

// ConfigError reports why the provider cannot serve requests.
func (u *unconfigured) ConfigError() error { return u.err }
