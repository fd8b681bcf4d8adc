package skills

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ShayCichocki/steward/internal/provider"
	"github.com/ShayCichocki/steward/pkg/models"
)

// Generator sends a prompt through the provider fallback chain.
type Generator interface {
	Send(ctx context.Context, req provider.Request, opts provider.SendOptions) (*provider.Response, error)
}

const copywriterSystem = `You are a direct-response copywriter. Write concise copy for the request.
Name the audience, state one concrete benefit and end with a clear call to action.
Return only the copy.`

// Copywriting drafts marketing copy through the provider engine.
type Copywriting struct {
	gen Generator
}

// NewCopywriting returns a copywriting handler.
func NewCopywriting(gen Generator) *Copywriting {
	return &Copywriting{gen: gen}
}

func (c *Copywriting) Name() string                  { return "copywriting" }
func (c *Copywriting) Category() string              { return "marketing" }
func (c *Copywriting) RiskCeiling() models.RiskLevel { return models.RiskLow }

var (
	copyVerb   = regexp.MustCompile(`(?i)\b(write|draft|create|compose|come up with)\b`)
	copyObject = regexp.MustCompile(`(?i)\b(ad|advert|advertisement|tagline|slogan|landing page|product description|email campaign|newsletter|social (media )?post|marketing copy|copy|headline)s?\b`)
)

// Score implements capability.Handler.
func (c *Copywriting) Score(request string) float64 {
	hasObject := copyObject.MatchString(request)
	switch {
	case hasObject && copyVerb.MatchString(request):
		return 0.85
	case hasObject:
		return 0.5
	default:
		return 0
	}
}

// Execute implements capability.Handler.
func (c *Copywriting) Execute(ctx context.Context, request string) (*models.Action, error) {
	resp, err := c.gen.Send(ctx, provider.Request{
		System: copywriterSystem,
		Prompt: strings.TrimSpace(request),
	}, provider.SendOptions{})
	if err != nil {
		return nil, fmt.Errorf("generate copy: %w", err)
	}
	return &models.Action{
		Type:    models.ActionCapability,
		Success: true,
		Message: strings.TrimSpace(resp.Text),
		Risk:    models.RiskLow,
		Payload: map[string]string{
			"provider": resp.Provider,
			"model":    resp.Model,
		},
	}, nil
}
