package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GeminiProvider adapts Google Gemini through langchaingo.
type GeminiProvider struct {
	llm   llms.Model
	model string
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider constructs the single Gemini client this adapter
// owns. Construction failure is returned so the selector can skip the
// adapter instead of crashing startup.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{llm: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Model() string { return p.model }

// Healthy reports whether the client was constructed. No network probe.
func (p *GeminiProvider) Healthy() bool { return p.llm != nil }

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return complete(ctx, p.Name(), p.model, p.llm, req)
}
