package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bakchod-ai/persona/internal/embedding"
	"github.com/bakchod-ai/persona/internal/metrics"
	"github.com/bakchod-ai/persona/internal/models"
)

// Service composes an Embedder and a Store into the embed-then-store
// and embed-then-query flows. Write failures are returned to the
// caller; read paths degrade to empty results so a store outage never
// breaks response generation.
type Service struct {
	embedder  embedding.Embedder
	store     Store
	logger    *slog.Logger
	collector *metrics.Collector
}

// NewService wires an embedder to a store. The embedder output
// dimension must match the store index dimension; a mismatch would
// silently corrupt every search, so it is a construction error.
func NewService(embedder embedding.Embedder, store Store, logger *slog.Logger, collector *metrics.Collector) (*Service, error) {
	if embedder.Dimension() != store.Dimension() {
		return nil, fmt.Errorf("embedder dimension %d does not match store dimension %d",
			embedder.Dimension(), store.Dimension())
	}
	return &Service{
		embedder:  embedder,
		store:     store,
		logger:    logger,
		collector: collector,
	}, nil
}

// StoreMemory embeds and persists a character memory, returning its id.
func (s *Service) StoreMemory(ctx context.Context, m models.CharacterMemory) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	vector, err := s.embed(ctx, m.Content)
	if err != nil {
		return "", fmt.Errorf("embed memory: %w", err)
	}

	start := time.Now()
	id, err := s.store.UpsertMemory(ctx, m, vector)
	if err != nil {
		return "", err
	}
	s.collector.RecordTiming(metrics.OpMemoryUpsert, time.Since(start))

	s.logger.Debug("stored character memory",
		"memory_id", id,
		"character_id", m.CharacterID,
		"type", m.Type)
	return id, nil
}

// Search returns a character's memories most relevant to the query
// text. Degrades to an empty slice when the embedder or store fails.
func (s *Service) Search(ctx context.Context, characterID uuid.UUID, query string, memType *models.MemoryType, topK int) []Hit {
	vector, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Warn("memory search embed failed", "error", err)
		return []Hit{}
	}

	start := time.Now()
	hits, err := s.store.SearchMemories(ctx, characterID, vector, memType, topK)
	if err != nil {
		s.logger.Warn("memory search failed",
			"character_id", characterID,
			"error", err)
		return []Hit{}
	}
	s.collector.RecordTiming(metrics.OpMemorySearch, time.Since(start))
	return hits
}

// List returns a character's memories by importance without a vector
// query. Degrades to an empty slice on store failure.
func (s *Service) List(ctx context.Context, characterID uuid.UUID, memType *models.MemoryType, limit int) []models.CharacterMemory {
	memories, err := s.store.ListMemories(ctx, characterID, memType, limit)
	if err != nil {
		s.logger.Warn("memory list failed",
			"character_id", characterID,
			"error", err)
		return []models.CharacterMemory{}
	}
	return memories
}

// DeleteCharacter removes every memory of a character.
func (s *Service) DeleteCharacter(ctx context.Context, characterID uuid.UUID) (DeleteResult, error) {
	return s.store.DeleteCharacterMemories(ctx, characterID)
}

// StoreSummary embeds and persists a group conversation summary.
func (s *Service) StoreSummary(ctx context.Context, summary models.ConversationSummary) (string, error) {
	vector, err := s.embed(ctx, summary.Summary)
	if err != nil {
		return "", fmt.Errorf("embed summary: %w", err)
	}

	start := time.Now()
	id, err := s.store.UpsertSummary(ctx, summary, vector)
	if err != nil {
		return "", err
	}
	s.collector.RecordTiming(metrics.OpMemoryUpsert, time.Since(start))
	return id, nil
}

// SearchSummaries returns a group's summaries most relevant to the
// query text. Degrades to an empty slice on failure.
func (s *Service) SearchSummaries(ctx context.Context, groupID uuid.UUID, query string, topK int) []SummaryHit {
	vector, err := s.embed(ctx, query)
	if err != nil {
		s.logger.Warn("summary search embed failed", "error", err)
		return []SummaryHit{}
	}

	start := time.Now()
	hits, err := s.store.SearchSummaries(ctx, groupID, vector, topK)
	if err != nil {
		s.logger.Warn("summary search failed", "group_id", groupID, "error", err)
		return []SummaryHit{}
	}
	s.collector.RecordTiming(metrics.OpMemorySearch, time.Since(start))
	return hits
}

// Healthy reports whether the backing store is reachable.
func (s *Service) Healthy(ctx context.Context) bool {
	return s.store.Healthy(ctx)
}

// Stats returns store statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.collector.RecordTiming(metrics.OpEmbedding, time.Since(start))
	return vector, nil
}
