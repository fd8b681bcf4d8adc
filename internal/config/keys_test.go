package config

import "testing"

func TestResolveAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		env        string
		shared     string
		provider   string
		wantKey    string
		wantSource KeySource
	}{
		{"provider key wins", "sk-ant-env-0000000000", "sk-ant-shared-00000000", "sk-ant-provider-000000", "sk-ant-provider-000000", KeySourceProvider},
		{"shared key next", "sk-ant-env-0000000000", "sk-ant-shared-00000000", "", "sk-ant-shared-00000000", KeySourceConfig},
		{"environment last", "sk-ant-env-0000000000", "", "", "sk-ant-env-0000000000", KeySourceEnv},
		{"unresolved placeholder ignored", "", "${MISSING_STEWARD_VAR}", "", "", KeySourceNone},
		{"nothing configured", "", "", "", "", KeySourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", tt.env)
			cfg := &Config{Anthropic: AnthropicConfig{APIKey: tt.shared}}

			key, source := ResolveAPIKey(cfg, ProviderConfig{APIKey: tt.provider})
			if key != tt.wantKey {
				t.Errorf("key = %q, want %q", key, tt.wantKey)
			}
			if source != tt.wantSource {
				t.Errorf("source = %q, want %q", source, tt.wantSource)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"empty", "", true},
		{"wrong prefix", "sk-openai-1234567890123", true},
		{"too short", "sk-ant-123", true},
		{"valid", "sk-ant-REDACTED", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...mnop"},
	}

	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
