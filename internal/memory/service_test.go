package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakchod-ai/persona/internal/embedding"
	"github.com/bakchod-ai/persona/internal/metrics"
	"github.com/bakchod-ai/persona/internal/models"
)

// fakeStore is an in-memory Store with real cosine ranking.
type fakeStore struct {
	dimension int
	memories  map[string]fakeRecord
	summaries map[string]fakeSummary
	failAll   bool
}

type fakeRecord struct {
	memory models.CharacterMemory
	vector []float32
}

type fakeSummary struct {
	summary models.ConversationSummary
	vector  []float32
}

var _ Store = (*fakeStore)(nil)

func newFakeStore(dimension int) *fakeStore {
	return &fakeStore{
		dimension: dimension,
		memories:  make(map[string]fakeRecord),
		summaries: make(map[string]fakeSummary),
	}
}

var errStoreDown = errors.New("store unavailable")

func (f *fakeStore) Dimension() int { return f.dimension }

func (f *fakeStore) Healthy(context.Context) bool { return !f.failAll }

func (f *fakeStore) Close(context.Context) error { return nil }

func (f *fakeStore) UpsertMemory(_ context.Context, m models.CharacterMemory, embedding []float32) (string, error) {
	if f.failAll {
		return "", errStoreDown
	}
	if len(embedding) != f.dimension {
		return "", ErrDimensionMismatch
	}
	f.memories[m.ID] = fakeRecord{memory: m, vector: embedding}
	return m.ID, nil
}

func (f *fakeStore) SearchMemories(_ context.Context, characterID uuid.UUID, vector []float32, memType *models.MemoryType, topK int) ([]Hit, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	var hits []Hit
	for _, rec := range f.memories {
		if rec.memory.CharacterID != characterID {
			continue
		}
		if memType != nil && rec.memory.Type != *memType {
			continue
		}
		hits = append(hits, Hit{Memory: rec.memory, Score: cosine(vector, rec.vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeStore) ListMemories(_ context.Context, characterID uuid.UUID, memType *models.MemoryType, limit int) ([]models.CharacterMemory, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	var out []models.CharacterMemory
	for _, rec := range f.memories {
		if rec.memory.CharacterID != characterID {
			continue
		}
		if memType != nil && rec.memory.Type != *memType {
			continue
		}
		out = append(out, rec.memory)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImportanceScore > out[j].ImportanceScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) DeleteCharacterMemories(_ context.Context, characterID uuid.UUID) (DeleteResult, error) {
	if f.failAll {
		return DeleteResult{Supported: true}, errStoreDown
	}
	deleted := 0
	for id, rec := range f.memories {
		if rec.memory.CharacterID == characterID {
			delete(f.memories, id)
			deleted++
		}
	}
	return DeleteResult{Supported: true, Deleted: deleted}, nil
}

func (f *fakeStore) UpsertSummary(_ context.Context, s models.ConversationSummary, embedding []float32) (string, error) {
	if f.failAll {
		return "", errStoreDown
	}
	f.summaries[s.ID] = fakeSummary{summary: s, vector: embedding}
	return s.ID, nil
}

func (f *fakeStore) SearchSummaries(_ context.Context, groupID uuid.UUID, vector []float32, topK int) ([]SummaryHit, error) {
	if f.failAll {
		return nil, errStoreDown
	}
	var hits []SummaryHit
	for _, rec := range f.summaries {
		if rec.summary.GroupID != groupID {
			continue
		}
		hits = append(hits, SummaryHit{Summary: rec.summary, Score: cosine(vector, rec.vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeStore) Stats(context.Context) (Stats, error) {
	if f.failAll {
		return Stats{}, errStoreDown
	}
	return Stats{
		MemoryCount:  len(f.memories),
		SummaryCount: len(f.summaries),
		Dimension:    f.dimension,
	}, nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func testService(t *testing.T, store Store) *Service {
	t.Helper()
	svc, err := NewService(
		embedding.NewLocalEmbedder(store.Dimension()),
		store,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.NewCollector(),
	)
	require.NoError(t, err)
	return svc
}

func TestNewServiceDimensionMismatch(t *testing.T) {
	store := newFakeStore(768)
	_, err := NewService(
		embedding.NewLocalEmbedder(384),
		store,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.NewCollector(),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestStoreMemoryRejectsInvalid(t *testing.T) {
	store := newFakeStore(128)
	svc := testService(t, store)

	m := models.NewCharacterMemory(uuid.New(), models.MemoryFact, "", 0.5)
	_, err := svc.StoreMemory(context.Background(), m)
	require.Error(t, err)
	assert.Empty(t, store.memories, "invalid memory must not reach the store")
}

func TestStoreAndSearchRoundTrip(t *testing.T) {
	store := newFakeStore(256)
	svc := testService(t, store)
	ctx := context.Background()
	charID := uuid.New()

	first := models.NewCharacterMemory(charID, models.MemoryFact, "Rahul supports Mumbai Indians", 0.9)
	second := models.NewCharacterMemory(charID, models.MemoryPreference, "Rahul drinks cutting chai every morning", 0.6)

	_, err := svc.StoreMemory(ctx, first)
	require.NoError(t, err)
	_, err = svc.StoreMemory(ctx, second)
	require.NoError(t, err)

	// Searching with the exact stored text must rank that memory first.
	hits := svc.Search(ctx, charID, "Rahul drinks cutting chai every morning", nil, 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, second.ID, hits[0].Memory.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
}

func TestSearchFiltersByType(t *testing.T) {
	store := newFakeStore(128)
	svc := testService(t, store)
	ctx := context.Background()
	charID := uuid.New()

	fact := models.NewCharacterMemory(charID, models.MemoryFact, "lives in Bandra", 0.5)
	pref := models.NewCharacterMemory(charID, models.MemoryPreference, "loves street food", 0.5)
	_, err := svc.StoreMemory(ctx, fact)
	require.NoError(t, err)
	_, err = svc.StoreMemory(ctx, pref)
	require.NoError(t, err)

	prefType := models.MemoryPreference
	hits := svc.Search(ctx, charID, "food", &prefType, 5)
	require.Len(t, hits, 1)
	assert.Equal(t, models.MemoryPreference, hits[0].Memory.Type)
}

func TestSearchIsolatesCharacters(t *testing.T) {
	store := newFakeStore(128)
	svc := testService(t, store)
	ctx := context.Background()

	rahul := uuid.New()
	priya := uuid.New()
	_, err := svc.StoreMemory(ctx, models.NewCharacterMemory(rahul, models.MemoryFact, "plays cricket", 0.5))
	require.NoError(t, err)
	_, err = svc.StoreMemory(ctx, models.NewCharacterMemory(priya, models.MemoryFact, "plays cricket", 0.5))
	require.NoError(t, err)

	hits := svc.Search(ctx, rahul, "cricket", nil, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, rahul, hits[0].Memory.CharacterID)
}

func TestSearchDegradesToEmptyOnStoreFailure(t *testing.T) {
	store := newFakeStore(128)
	svc := testService(t, store)
	ctx := context.Background()

	store.failAll = true
	hits := svc.Search(ctx, uuid.New(), "anything", nil, 5)
	assert.Empty(t, hits)

	memories := svc.List(ctx, uuid.New(), nil, 5)
	assert.Empty(t, memories)

	summaries := svc.SearchSummaries(ctx, uuid.New(), "anything", 5)
	assert.Empty(t, summaries)

	assert.False(t, svc.Healthy(ctx))
}

func TestStoreMemoryFailureIsReturned(t *testing.T) {
	store := newFakeStore(128)
	svc := testService(t, store)
	store.failAll = true

	m := models.NewCharacterMemory(uuid.New(), models.MemoryFact, "won't make it", 0.5)
	_, err := svc.StoreMemory(context.Background(), m)
	require.ErrorIs(t, err, errStoreDown)
}

func TestDeleteCharacterMemories(t *testing.T) {
	store := newFakeStore(128)
	svc := testService(t, store)
	ctx := context.Background()
	charID := uuid.New()

	for _, content := range []string{"one", "two", "three"} {
		_, err := svc.StoreMemory(ctx, models.NewCharacterMemory(charID, models.MemoryFact, content, 0.5))
		require.NoError(t, err)
	}

	result, err := svc.DeleteCharacter(ctx, charID)
	require.NoError(t, err)
	assert.True(t, result.Supported)
	assert.Equal(t, 3, result.Deleted)

	// Idempotent: second delete finds nothing.
	result, err = svc.DeleteCharacter(ctx, charID)
	require.NoError(t, err)
	assert.True(t, result.Supported)
	assert.Equal(t, 0, result.Deleted)
}

func TestSummaryRoundTrip(t *testing.T) {
	store := newFakeStore(128)
	svc := testService(t, store)
	ctx := context.Background()
	groupID := uuid.New()

	summary := models.NewConversationSummary(groupID, "The group debated the best vada pav in Mumbai.")
	summary.KeyTopics = []string{"food", "mumbai"}

	_, err := svc.StoreSummary(ctx, summary)
	require.NoError(t, err)

	hits := svc.SearchSummaries(ctx, groupID, "The group debated the best vada pav in Mumbai.", 3)
	require.NotEmpty(t, hits)
	assert.Equal(t, summary.ID, hits[0].Summary.ID)
	assert.Equal(t, []string{"food", "mumbai"}, hits[0].Summary.KeyTopics)
}
