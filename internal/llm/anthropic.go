package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

// AnthropicProvider adapts Anthropic Claude through langchaingo.
type AnthropicProvider struct {
	llm   llms.Model
	model string
}

var _ Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider constructs the single Anthropic client this
// adapter owns.
func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create anthropic client: %w", err)
	}
	return &AnthropicProvider{llm: client, model: model}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Model() string { return p.model }

// Healthy reports whether the client was constructed. No network probe.
func (p *AnthropicProvider) Healthy() bool { return p.llm != nil }

func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return complete(ctx, p.Name(), p.model, p.llm, req)
}
