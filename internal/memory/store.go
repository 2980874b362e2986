// Package memory provides the character memory vector store and the
// embed-then-store service on top of it.
package memory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bakchod-ai/persona/internal/models"
)

// Sentinel errors for memory operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("memory not found")

	// ErrDimensionMismatch indicates a vector whose length does not
	// match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Hit is one semantic search result.
type Hit struct {
	Memory models.CharacterMemory `json:"memory"`
	Score  float64                `json:"score"`
}

// SummaryHit is one conversation summary search result.
type SummaryHit struct {
	Summary models.ConversationSummary `json:"summary"`
	Score   float64                    `json:"score"`
}

// DeleteResult reports the outcome of a bulk delete. Supported is false
// when the backing store cannot perform filtered deletion; Deleted is
// only meaningful when Supported is true.
type DeleteResult struct {
	Supported bool `json:"supported"`
	Deleted   int  `json:"deleted"`
}

// Stats summarizes the store contents.
type Stats struct {
	MemoryCount  int `json:"memory_count"`
	SummaryCount int `json:"summary_count"`
	Dimension    int `json:"dimension"`
}

// Store is the vector index behind character memories and conversation
// summaries. Implementations must rank search results by cosine
// similarity, best first.
type Store interface {
	// UpsertMemory writes a memory with its embedding and returns the
	// record id.
	UpsertMemory(ctx context.Context, m models.CharacterMemory, embedding []float32) (string, error)

	// SearchMemories returns the topK memories of a character nearest to
	// the query vector. A non-nil memType restricts results to that type.
	SearchMemories(ctx context.Context, characterID uuid.UUID, vector []float32, memType *models.MemoryType, topK int) ([]Hit, error)

	// ListMemories returns a character's memories ordered by importance,
	// without a vector query. A non-nil memType restricts by type.
	ListMemories(ctx context.Context, characterID uuid.UUID, memType *models.MemoryType, limit int) ([]models.CharacterMemory, error)

	// DeleteCharacterMemories removes every memory of a character.
	DeleteCharacterMemories(ctx context.Context, characterID uuid.UUID) (DeleteResult, error)

	// UpsertSummary writes a group conversation summary with its
	// embedding and returns the record id.
	UpsertSummary(ctx context.Context, s models.ConversationSummary, embedding []float32) (string, error)

	// SearchSummaries returns the topK summaries of a group nearest to
	// the query vector.
	SearchSummaries(ctx context.Context, groupID uuid.UUID, vector []float32, topK int) ([]SummaryHit, error)

	// Healthy reports whether the store connection is usable.
	Healthy(ctx context.Context) bool

	// Dimension returns the vector index dimension.
	Dimension() int

	// Stats returns record counts and the index dimension.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the store connection.
	Close(ctx context.Context) error
}
