package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIModel produces 1536-dimensional vectors.
const DefaultOpenAIModel = "text-embedding-3-small"

// DefaultOllamaModel produces 768-dimensional vectors.
const DefaultOllamaModel = "nomic-embed-text"

// remoteEmbedder adapts a langchaingo embedder to the Embedder
// interface and enforces the configured dimension on every vector.
type remoteEmbedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
}

var _ Embedder = (*remoteEmbedder)(nil)

func newOpenAIEmbedder(apiKey, model string, dimension int) (*remoteEmbedder, error) {
	if model == "" {
		model = DefaultOpenAIModel
	}
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create openai embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create openai embedder: %w", err)
	}
	return &remoteEmbedder{embedder: embedder, model: model, dimension: dimension}, nil
}

func newOllamaEmbedder(serverURL, model string, dimension int) (*remoteEmbedder, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	client, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}
	return &remoteEmbedder{embedder: embedder, model: model, dimension: dimension}, nil
}

func (e *remoteEmbedder) Model() string { return e.model }

func (e *remoteEmbedder) Dimension() int { return e.dimension }

func (e *remoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := e.checkDimension(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func (e *remoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d",
			len(vecs), len(texts))
	}
	for i, vec := range vecs {
		if err := e.checkDimension(vec); err != nil {
			return nil, fmt.Errorf("embedding %d: %w", i, err)
		}
	}
	return vecs, nil
}

func (e *remoteEmbedder) checkDimension(vec []float32) error {
	if len(vec) != e.dimension {
		return fmt.Errorf("dimension mismatch: got %d, want %d (model: %s)",
			len(vec), e.dimension, e.model)
	}
	return nil
}
