package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// DefaultLocalDimension matches the default HNSW index dimension.
const DefaultLocalDimension = 768

// LocalEmbedder produces deterministic pseudo-embeddings derived from a
// hash of the input text. Identical texts always map to identical
// vectors, so nearest-neighbor lookups for previously stored content
// rank the exact match first. It carries no semantic signal and exists
// so the service runs with zero external dependencies.
type LocalEmbedder struct {
	dimension int
}

var _ Embedder = (*LocalEmbedder)(nil)

// NewLocalEmbedder creates a local embedder with the given output
// dimension. A dimension of 0 uses DefaultLocalDimension.
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = DefaultLocalDimension
	}
	return &LocalEmbedder{dimension: dimension}
}

func (e *LocalEmbedder) Model() string { return "local-hash" }

func (e *LocalEmbedder) Dimension() int { return e.dimension }

// Embed derives a unit-length vector from repeated hashing of the text.
func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)

	var counter [8]byte
	var norm float64
	for i := 0; i < e.dimension; {
		binary.BigEndian.PutUint64(counter[:], uint64(i))
		h := sha256.New()
		h.Write([]byte(text))
		h.Write(counter[:])
		digest := h.Sum(nil)

		for _, b := range digest {
			if i >= e.dimension {
				break
			}
			v := (float64(b) - 127.5) / 127.5
			vec[i] = float32(v)
			norm += v * v
			i++
		}
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}
