package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider adapts the OpenAI chat API through langchaingo.
type OpenAIProvider struct {
	llm   llms.Model
	model string
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider constructs the single OpenAI client this adapter owns.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIProvider{llm: client, model: model}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Model() string { return p.model }

// Healthy reports whether the client was constructed. No network probe.
func (p *OpenAIProvider) Healthy() bool { return p.llm != nil }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return complete(ctx, p.Name(), p.model, p.llm, req)
}
