// Package embedding provides text embedding generation with multiple
// backend support.
package embedding

import (
	"context"
	"fmt"
)

// Embedder defines the interface for text embedding providers.
// Implementations include a deterministic local embedder and remote
// backends (OpenAI, Ollama).
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// More efficient than multiple Embed calls for bulk operations.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the embedding vector dimension.
	// CRITICAL: Must match the HNSW index dimension in the memory store.
	Dimension() int
}

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderLocal uses the deterministic hash embedder. No network.
	ProviderLocal ProviderType = "local"

	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderOllama uses a local Ollama server for embeddings.
	ProviderOllama ProviderType = "ollama"
)

// Config holds configuration for creating an Embedder.
type Config struct {
	// Provider specifies which embedding backend to use.
	Provider ProviderType

	// Model is the embedding model name (provider-specific).
	// OpenAI: "text-embedding-3-small" (1536-dim)
	// Ollama: "nomic-embed-text" (768-dim), "all-minilm:l6-v2" (384-dim)
	// Ignored by the local provider.
	Model string

	// Dimension is the required output dimension. Vectors of any other
	// size are rejected before they reach the store.
	Dimension int

	// OpenAI-specific
	OpenAIAPIKey string

	// Ollama-specific
	OllamaHost string
}

// New creates an Embedder based on the provided configuration.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalEmbedder(cfg.Dimension), nil

	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires API key")
		}
		return newOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.Model, cfg.Dimension)

	case ProviderOllama:
		return newOllamaEmbedder(cfg.OllamaHost, cfg.Model, cfg.Dimension)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
