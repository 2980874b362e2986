package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakchod-ai/persona/internal/llm"
	"github.com/bakchod-ai/persona/internal/memory"
	"github.com/bakchod-ai/persona/internal/models"
)

type stubGenerator struct {
	resp    *llm.Response
	err     error
	healthy bool
	lastReq llm.Request
}

func (g *stubGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	g.lastReq = req
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func (g *stubGenerator) Healthy() bool { return g.healthy }

type stubMemories struct {
	mu        sync.Mutex
	memories  []models.CharacterMemory
	summaries []models.ConversationSummary
	hits      []memory.Hit
	sumHits   []memory.SummaryHit
	healthy   bool
	stored    chan struct{}
}

func newStubMemories() *stubMemories {
	return &stubMemories{healthy: true, stored: make(chan struct{}, 8)}
}

func (m *stubMemories) StoreMemory(_ context.Context, mem models.CharacterMemory) (string, error) {
	m.mu.Lock()
	m.memories = append(m.memories, mem)
	m.mu.Unlock()
	m.stored <- struct{}{}
	return mem.ID, nil
}

func (m *stubMemories) StoreSummary(_ context.Context, s models.ConversationSummary) (string, error) {
	m.mu.Lock()
	m.summaries = append(m.summaries, s)
	m.mu.Unlock()
	m.stored <- struct{}{}
	return s.ID, nil
}

func (m *stubMemories) Search(context.Context, uuid.UUID, string, *models.MemoryType, int) []memory.Hit {
	return m.hits
}

func (m *stubMemories) SearchSummaries(context.Context, uuid.UUID, string, int) []memory.SummaryHit {
	return m.sumHits
}

func (m *stubMemories) Healthy(context.Context) bool { return m.healthy }

func (m *stubMemories) waitStores(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.stored:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for store %d of %d", i+1, n)
		}
	}
}

func testOrchestrator(gen *stubGenerator, mems *stubMemories) *Service {
	return NewService(gen, mems, slog.New(slog.NewTextHandler(io.Discard, nil)), 500)
}

func TestGenerateResponseHappyPath(t *testing.T) {
	gen := &stubGenerator{
		healthy: true,
		resp: &llm.Response{
			Content:  "Arre, what a match that was!",
			Model:    "gemini-1.5-pro",
			Provider: "gemini",
			Latency:  80 * time.Millisecond,
		},
	}
	mems := newStubMemories()
	svc := testOrchestrator(gen, mems)
	convCtx := testContext()

	resp := svc.GenerateResponse(context.Background(), convCtx)

	assert.Equal(t, "Arre, what a match that was!", resp.Content)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, "gemini-1.5-pro", resp.ModelUsed)

	// Generation parameters are fixed.
	assert.Equal(t, 500, gen.lastReq.MaxTokens)
	assert.Equal(t, 0.8, gen.lastReq.Temperature)
	assert.Equal(t, 0.9, gen.lastReq.TopP)
	assert.Contains(t, gen.lastReq.Prompt, "You are Rahul")

	// Both the conversation memory and the summary land asynchronously.
	mems.waitStores(t, 2)
	mems.mu.Lock()
	defer mems.mu.Unlock()
	require.Len(t, mems.memories, 1)
	assert.Equal(t, models.MemoryConversation, mems.memories[0].Type)
	assert.Equal(t, 0.7, mems.memories[0].ImportanceScore)
	assert.Equal(t, convCtx.CurrentCharacter.ID, mems.memories[0].CharacterID)
	assert.Equal(t, convCtx.Group.ID.String(), mems.memories[0].Metadata["group_id"])

	require.Len(t, mems.summaries, 1)
	assert.Equal(t, convCtx.Group.ID, mems.summaries[0].GroupID)
	assert.Contains(t, mems.summaries[0].Summary, "Conversation in Adda with 2 participants")
	assert.Equal(t, []string{"IPL finals"}, mems.summaries[0].KeyTopics)
}

func TestSummaryExcerptKeepsRunesIntact(t *testing.T) {
	gen := &stubGenerator{
		healthy: true,
		resp: &llm.Response{
			Content:  strings.Repeat("😀", 150),
			Model:    "gemini-1.5-pro",
			Provider: "gemini",
		},
	}
	mems := newStubMemories()
	svc := testOrchestrator(gen, mems)

	svc.GenerateResponse(context.Background(), testContext())

	mems.waitStores(t, 2)
	mems.mu.Lock()
	defer mems.mu.Unlock()
	require.Len(t, mems.summaries, 1)
	assert.True(t, utf8.ValidString(mems.summaries[0].Summary))
	assert.Contains(t, mems.summaries[0].Summary, strings.Repeat("😀", 100)+"...")
}

func TestGenerateResponseFallsBackOnGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("all providers down")}
	svc := testOrchestrator(gen, newStubMemories())

	resp := svc.GenerateResponse(context.Background(), testContext())

	assert.Contains(t, fallbackReplies, resp.Content)
	assert.LessOrEqual(t, resp.Confidence, 0.2)
	assert.Equal(t, true, resp.Metadata["fallback"])
}

func TestGenerateResponseFallsBackWhenNoHealthyProvider(t *testing.T) {
	gen := &stubGenerator{err: llm.ErrNoHealthyProvider}
	svc := testOrchestrator(gen, newStubMemories())

	resp := svc.GenerateResponse(context.Background(), testContext())

	assert.Equal(t, true, resp.Metadata["fallback"])
	assert.LessOrEqual(t, resp.Confidence, 0.2)
}

func TestCharacterMemoriesDelegates(t *testing.T) {
	mems := newStubMemories()
	charID := uuid.New()
	mems.hits = []memory.Hit{
		{Memory: models.NewCharacterMemory(charID, models.MemoryFact, "loves chai", 0.5), Score: 0.8},
	}
	svc := testOrchestrator(&stubGenerator{healthy: true}, mems)

	hits := svc.CharacterMemories(context.Background(), charID, "chai", 5)
	require.Len(t, hits, 1)
	assert.Equal(t, "loves chai", hits[0].Memory.Content)
}

func TestGroupContextDelegates(t *testing.T) {
	mems := newStubMemories()
	groupID := uuid.New()
	mems.sumHits = []memory.SummaryHit{
		{Summary: models.NewConversationSummary(groupID, "talked about food"), Score: 0.6},
	}
	svc := testOrchestrator(&stubGenerator{healthy: true}, mems)

	hits := svc.GroupContext(context.Background(), groupID, "food", 3)
	require.Len(t, hits, 1)
	assert.Equal(t, groupID, hits[0].Summary.GroupID)
}

func TestHealthyRequiresBothCollaborators(t *testing.T) {
	mems := newStubMemories()
	gen := &stubGenerator{healthy: true}
	svc := testOrchestrator(gen, mems)
	ctx := context.Background()

	assert.True(t, svc.Healthy(ctx))

	gen.healthy = false
	assert.False(t, svc.Healthy(ctx))

	gen.healthy = true
	mems.healthy = false
	assert.False(t, svc.Healthy(ctx))
}
