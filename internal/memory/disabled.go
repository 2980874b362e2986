package memory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bakchod-ai/persona/internal/models"
)

// ErrStoreDisabled indicates the vector store was unreachable at startup
// and memory persistence is switched off for this process.
var ErrStoreDisabled = errors.New("memory store disabled")

// DisabledStore is the Store used when the vector store cannot be
// reached at startup. Writes fail with ErrStoreDisabled, reads return
// nothing and Healthy is always false, so the service keeps generating
// responses while /health reports the degradation.
type DisabledStore struct {
	dimension int
}

var _ Store = (*DisabledStore)(nil)

// NewDisabledStore returns a store that rejects all writes. The
// dimension is carried through so the service dimension check passes.
func NewDisabledStore(dimension int) *DisabledStore {
	return &DisabledStore{dimension: dimension}
}

func (d *DisabledStore) UpsertMemory(context.Context, models.CharacterMemory, []float32) (string, error) {
	return "", ErrStoreDisabled
}

func (d *DisabledStore) SearchMemories(context.Context, uuid.UUID, []float32, *models.MemoryType, int) ([]Hit, error) {
	return []Hit{}, nil
}

func (d *DisabledStore) ListMemories(context.Context, uuid.UUID, *models.MemoryType, int) ([]models.CharacterMemory, error) {
	return []models.CharacterMemory{}, nil
}

func (d *DisabledStore) DeleteCharacterMemories(context.Context, uuid.UUID) (DeleteResult, error) {
	return DeleteResult{Supported: false}, nil
}

func (d *DisabledStore) UpsertSummary(context.Context, models.ConversationSummary, []float32) (string, error) {
	return "", ErrStoreDisabled
}

func (d *DisabledStore) SearchSummaries(context.Context, uuid.UUID, []float32, int) ([]SummaryHit, error) {
	return []SummaryHit{}, nil
}

func (d *DisabledStore) Healthy(context.Context) bool { return false }

func (d *DisabledStore) Dimension() int { return d.dimension }

func (d *DisabledStore) Stats(context.Context) (Stats, error) {
	return Stats{Dimension: d.dimension}, nil
}

func (d *DisabledStore) Close(context.Context) error { return nil }
