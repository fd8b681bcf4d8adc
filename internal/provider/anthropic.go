package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

const defaultMaxTokens = 4096

// AnthropicConfig contains configuration for an Anthropic-backed provider.
type AnthropicConfig struct {
	// Name is the registration name (e.g. "anthropic", "bedrock").
	Name string
	// Models is the ordered model preference.
	Models []string
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens caps each response. Zero means 4096.
	MaxTokens int64
}

// AnthropicProvider calls the Messages API directly or through Bedrock.
type AnthropicProvider struct {
	name      string
	inner     anthropic.Client
	models    []string
	maxTokens int64
}

// NewAnthropicProvider creates a provider from cfg.
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, &ConfigurationError{Err: fmt.Errorf("provider %s: no Anthropic API key configured", cfg.Name)}
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	models := cfg.Models
	if len(models) == 0 {
		models = []string{string(anthropic.ModelClaudeSonnet4_5_20250929), string(anthropic.ModelClaudeHaiku4_5_20251001)}
	}
	if cfg.UseAWSBedrock {
		translated := make([]string, len(models))
		for i, m := range models {
			translated[i] = translateModelForBedrock(m)
		}
		models = translated
	}

	name := cfg.Name
	if name == "" {
		name = "anthropic"
		if cfg.UseAWSBedrock {
			name = "bedrock"
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicProvider{
		name:      name,
		inner:     anthropic.NewClient(opts...),
		models:    models,
		maxTokens: maxTokens,
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock inference profile format.
func translateModelForBedrock(model string) string {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[anthropic.Model(model)]; ok {
		return bedrockModel
	}
	return model
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return p.name }

// Models implements Provider.
func (p *AnthropicProvider) Models() []string { return p.models }

// Generate implements Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	model := pickModel(p, req.Model)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := p.inner.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError(p.name, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}

	return &Response{
		Text:         text.String(),
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Duration:     time.Since(start),
	}, nil
}

// classifyAPIError maps SDK errors onto the engine's typed errors.
func classifyAPIError(name string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || apiErr.StatusCode == 529:
			return &RateLimitError{Provider: name, Message: fmt.Sprintf("status %d", apiErr.StatusCode)}
		case apiErr.StatusCode == 402:
			return &TokenLimitError{Provider: name, Message: "payment required"}
		}
	}
	return classifyMessage(name, err)
}

// classifyMessage inspects error text for quota and throttling signals.
func classifyMessage(name string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "credit balance") || strings.Contains(msg, "insufficient_quota") {
		return &TokenLimitError{Provider: name, Message: truncate(err.Error(), maxFailureMessage)}
	}
	if IsRateLimited(err) {
		return &RateLimitError{Provider: name, Message: truncate(err.Error(), maxFailureMessage)}
	}
	return &ProviderError{Provider: name, Err: err}
}
