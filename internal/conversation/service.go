package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bakchod-ai/persona/internal/llm"
	"github.com/bakchod-ai/persona/internal/memory"
	"github.com/bakchod-ai/persona/internal/models"
)

const (
	generateTemperature = 0.8
	generateTopP        = 0.9

	// conversationImportance scores memories persisted from generated
	// replies.
	conversationImportance = 0.7

	// persistTimeout bounds the background persistence of a generated
	// reply so a stuck store cannot leak goroutines.
	persistTimeout = 10 * time.Second
)

// Generator produces text for a prompt. Implemented by the provider
// selector.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (*llm.Response, error)
	Healthy() bool
}

// Memories is the slice of the memory service the orchestrator uses.
type Memories interface {
	StoreMemory(ctx context.Context, m models.CharacterMemory) (string, error)
	StoreSummary(ctx context.Context, s models.ConversationSummary) (string, error)
	Search(ctx context.Context, characterID uuid.UUID, query string, memType *models.MemoryType, topK int) []memory.Hit
	SearchSummaries(ctx context.Context, groupID uuid.UUID, query string, topK int) []memory.SummaryHit
	Healthy(ctx context.Context) bool
}

// Service orchestrates prompt assembly, generation, post-processing and
// best-effort persistence. GenerateResponse never returns an error:
// character chat degrades to a stock reply instead of failing visibly.
type Service struct {
	generator Generator
	memories  Memories
	logger    *slog.Logger

	maxResponseLength int
}

// NewService wires the orchestrator.
func NewService(generator Generator, memories Memories, logger *slog.Logger, maxResponseLength int) *Service {
	return &Service{
		generator:         generator,
		memories:          memories,
		logger:            logger,
		maxResponseLength: maxResponseLength,
	}
}

// GenerateResponse produces the current character's next reply. Any
// failure along the way degrades to the fallback response.
func (s *Service) GenerateResponse(ctx context.Context, convCtx models.ConversationContext) models.AIResponse {
	start := time.Now()

	prompt := BuildPrompt(convCtx)
	resp, err := s.generator.Generate(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   s.maxResponseLength,
		Temperature: generateTemperature,
		TopP:        generateTopP,
	})
	if err != nil {
		s.logger.Error("response generation failed",
			"character", convCtx.CurrentCharacter.Name,
			"error", err)
		return FallbackResponse()
	}

	aiResp := ProcessResponse(resp, convCtx, s.maxResponseLength)

	// Persist off the request path; a client disconnect must not abort it.
	go s.persistExchange(convCtx, aiResp)

	aiResp.ResponseTimeMs = time.Since(start).Milliseconds()

	s.logger.Info("generated AI response",
		"character", convCtx.CurrentCharacter.Name,
		"provider", resp.Provider,
		"response_time_ms", aiResp.ResponseTimeMs,
		"content_length", len(aiResp.Content))
	return aiResp
}

// CharacterMemories returns the memories of a character most relevant
// to the query. Degrades to empty on any failure.
func (s *Service) CharacterMemories(ctx context.Context, characterID uuid.UUID, query string, limit int) []memory.Hit {
	return s.memories.Search(ctx, characterID, query, nil, limit)
}

// GroupContext returns the conversation summaries of a group most
// relevant to the query. Degrades to empty on any failure.
func (s *Service) GroupContext(ctx context.Context, groupID uuid.UUID, query string, limit int) []memory.SummaryHit {
	return s.memories.SearchSummaries(ctx, groupID, query, limit)
}

// Healthy reports whether both collaborators are serving.
func (s *Service) Healthy(ctx context.Context) bool {
	return s.generator.Healthy() && s.memories.Healthy(ctx)
}

// persistExchange stores the reply as a conversation memory and
// refreshes the group summary. Best-effort: errors are logged and
// swallowed.
func (s *Service) persistExchange(convCtx models.ConversationContext, resp models.AIResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	mood := convCtx.Mood
	if mood == "" {
		mood = defaultMood
	}
	topic := convCtx.CurrentTopic
	if topic == "" {
		topic = "general"
	}

	m := models.NewCharacterMemory(
		convCtx.CurrentCharacter.ID,
		models.MemoryConversation,
		resp.Content,
		conversationImportance,
	)
	m.Metadata = map[string]string{
		"group_id": convCtx.Group.ID.String(),
		"mood":     string(mood),
		"topic":    topic,
	}
	if _, err := s.memories.StoreMemory(ctx, m); err != nil {
		s.logger.Warn("conversation memory not stored",
			"character_id", convCtx.CurrentCharacter.ID,
			"error", err)
	}

	summary := buildSummary(convCtx, resp)
	if _, err := s.memories.StoreSummary(ctx, summary); err != nil {
		s.logger.Warn("conversation summary not stored",
			"group_id", convCtx.Group.ID,
			"error", err)
	}
}

// buildSummary produces the simplified rolling summary of a group
// conversation.
func buildSummary(convCtx models.ConversationContext, resp models.AIResponse) models.ConversationSummary {
	mood := convCtx.Mood
	if mood == "" {
		mood = defaultMood
	}

	excerpt := resp.Content
	if runes := []rune(excerpt); len(runes) > 100 {
		excerpt = string(runes[:100])
	}
	text := fmt.Sprintf("Conversation in %s with %d participants. Current mood: %s. Latest message from %s: %s...",
		convCtx.Group.Name, len(convCtx.ActiveCharacters), mood, convCtx.CurrentCharacter.Name, excerpt)

	summary := models.NewConversationSummary(convCtx.Group.ID, text)
	summary.Mood = mood
	if convCtx.CurrentTopic != "" {
		summary.KeyTopics = []string{convCtx.CurrentTopic}
	}
	for _, c := range convCtx.ActiveCharacters {
		summary.Participants = append(summary.Participants, c.ID)
	}
	return summary
}
