package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/steward/internal/config"
)

func TestBuild(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{
		{Name: "primary", Kind: config.ProviderAnthropic, APIKey: "sk-ant-test-key-0000000000", Timeout: 45 * time.Second},
		{Name: "offline", Kind: config.ProviderEcho},
	}
	cfg.Routing.FallbackOrder = []string{"offline"}

	providers, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "primary", providers[0].Name())
	assert.Equal(t, "offline", providers[1].Name())

	ec := EngineConfig(cfg)
	assert.Equal(t, 45*time.Second, ec.Timeouts["primary"])
	assert.Equal(t, []string{"offline"}, ec.FallbackOrder)
}

func TestBuild_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = nil
	_, err := Build(cfg)
	assert.True(t, errors.Is(err, ErrNoProviders))

	cfg.Providers = []config.ProviderConfig{{Name: "odd", Kind: "carrier-pigeon"}}
	_, err = Build(cfg)
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestBuild_MissingAPIKeyRegistersUnavailable(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := config.Default()
	cfg.Providers = []config.ProviderConfig{
		{Name: "primary", Kind: config.ProviderAnthropic, Models: []string{"claude-sonnet-4-5"}},
		{Name: "offline", Kind: config.ProviderEcho},
	}
	cfg.Routing.DefaultProvider = "primary"

	providers, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, providers, 2)

	eng, err := NewEngine(EngineConfig(cfg), providers)
	require.NoError(t, err)

	status := eng.Status()
	assert.False(t, status[0].Available)
	assert.Contains(t, status[0].LastError, "no Anthropic API key")
	assert.True(t, status[1].Available)

	resp, err := eng.Send(context.Background(), Request{Prompt: "hello"}, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, "offline", resp.Provider)
	assert.True(t, resp.Fallback)

	require.NoError(t, eng.Reset("primary"))
	_, err = eng.Send(context.Background(), Request{Prompt: "hello"}, SendOptions{Preferred: "primary"})
	require.NoError(t, err)
	assert.False(t, eng.Status()[0].Available, "a reset misconfigured provider drops out again")
}
