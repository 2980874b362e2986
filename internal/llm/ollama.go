package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider adapts a local Ollama server. It needs no credentials
// and serves as the last-resort provider when all remote backends are
// unavailable.
type OllamaProvider struct {
	llm   llms.Model
	model string
}

var _ Provider = (*OllamaProvider)(nil)

// NewOllamaProvider constructs the single Ollama client this adapter owns.
func NewOllamaProvider(serverURL, model string) (*OllamaProvider, error) {
	client, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &OllamaProvider{llm: client, model: model}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Model() string { return p.model }

// Healthy reports whether the client was constructed. No network probe.
func (p *OllamaProvider) Healthy() bool { return p.llm != nil }

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return complete(ctx, p.Name(), p.model, p.llm, req)
}
