package provider

import (
	"context"
	"strings"
)

// EchoProvider answers every request by echoing the prompt. It needs no
// credentials, which makes it the default for fresh installs and offline use.
type EchoProvider struct {
	name string
}

// NewEchoProvider returns an echo provider registered under name.
func NewEchoProvider(name string) *EchoProvider {
	if name == "" {
		name = "echo"
	}
	return &EchoProvider{name: name}
}

// Name implements Provider.
func (p *EchoProvider) Name() string { return p.name }

// Models implements Provider.
func (p *EchoProvider) Models() []string { return []string{"echo"} }

// Generate implements Provider.
func (p *EchoProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Prompt)
	return &Response{
		Text:         "echo: " + text,
		Model:        "echo",
		InputTokens:  int64(len(strings.Fields(req.System + " " + text))),
		OutputTokens: int64(len(strings.Fields(text)) + 1),
	}, nil
}
