// Package character manages the AI persona registry and its memories.
package character

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bakchod-ai/persona/internal/memory"
	"github.com/bakchod-ai/persona/internal/models"
)

var (
	// ErrNotFound indicates the requested character does not exist.
	ErrNotFound = errors.New("character not found")

	// ErrTooManyCharacters indicates the active character cap is reached.
	ErrTooManyCharacters = errors.New("maximum active characters reached")
)

// MemoryStore is the slice of the memory service the character service
// depends on.
type MemoryStore interface {
	StoreMemory(ctx context.Context, m models.CharacterMemory) (string, error)
	Search(ctx context.Context, characterID uuid.UUID, query string, memType *models.MemoryType, topK int) []memory.Hit
	List(ctx context.Context, characterID uuid.UUID, memType *models.MemoryType, limit int) []models.CharacterMemory
	DeleteCharacter(ctx context.Context, characterID uuid.UUID) (memory.DeleteResult, error)
}

// Input carries the caller-settable fields of a character.
type Input struct {
	Name              string `json:"name" yaml:"name" binding:"required"`
	PersonalityTraits string `json:"personality_traits" yaml:"personality_traits"`
	SystemPrompt      string `json:"system_prompt" yaml:"system_prompt"`
	AvatarURL         string `json:"avatar_url" yaml:"avatar_url"`
	SpeakingStyle     string `json:"speaking_style" yaml:"speaking_style"`
	Background        string `json:"background" yaml:"background"`
}

// Update enumerates the patchable fields of a character. Nil pointers
// leave the field untouched.
type Update struct {
	Name              *string `json:"name,omitempty"`
	PersonalityTraits *string `json:"personality_traits,omitempty"`
	SystemPrompt      *string `json:"system_prompt,omitempty"`
	AvatarURL         *string `json:"avatar_url,omitempty"`
	SpeakingStyle     *string `json:"speaking_style,omitempty"`
	Background        *string `json:"background,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

// Service holds the in-process character registry. Persona definitions
// live in memory; their durable memories live in the vector store.
type Service struct {
	mu         sync.RWMutex
	characters map[uuid.UUID]models.Character
	memories   MemoryStore
	logger     *slog.Logger
	maxActive  int
}

// NewService creates the registry. maxActive caps the number of active
// characters a group conversation can draw from.
func NewService(memories MemoryStore, logger *slog.Logger, maxActive int) *Service {
	return &Service{
		characters: make(map[uuid.UUID]models.Character),
		memories:   memories,
		logger:     logger,
		maxActive:  maxActive,
	}
}

// Create registers a new character and writes its initial personality
// memory. The memory write is best-effort: a degraded vector store must
// not block character creation.
func (s *Service) Create(ctx context.Context, input Input) (models.Character, error) {
	if strings.TrimSpace(input.Name) == "" {
		return models.Character{}, fmt.Errorf("character name must not be empty")
	}

	s.mu.Lock()
	active := 0
	for _, c := range s.characters {
		if c.IsActive {
			active++
		}
	}
	if s.maxActive > 0 && active >= s.maxActive {
		s.mu.Unlock()
		return models.Character{}, fmt.Errorf("%w: limit %d", ErrTooManyCharacters, s.maxActive)
	}

	c := models.Character{
		ID:                uuid.New(),
		Name:              input.Name,
		PersonalityTraits: input.PersonalityTraits,
		SystemPrompt:      input.SystemPrompt,
		AvatarURL:         input.AvatarURL,
		SpeakingStyle:     input.SpeakingStyle,
		Background:        input.Background,
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
	}
	s.characters[c.ID] = c
	s.mu.Unlock()

	s.writePersonalityMemory(ctx, c)

	s.logger.Info("character created", "character_id", c.ID, "name", c.Name)
	return c, nil
}

// Get returns a character by id.
func (s *Service) Get(id uuid.UUID) (models.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.characters[id]
	if !ok {
		return models.Character{}, ErrNotFound
	}
	return c, nil
}

// List returns all characters sorted by creation time.
func (s *Service) List() []models.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Update applies the non-nil fields of upd to a character. When traits
// or system prompt change, the personality memory is rewritten so the
// vector store reflects the new persona.
func (s *Service) Update(ctx context.Context, id uuid.UUID, upd Update) (models.Character, error) {
	s.mu.Lock()
	c, ok := s.characters[id]
	if !ok {
		s.mu.Unlock()
		return models.Character{}, ErrNotFound
	}

	personaChanged := false
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.PersonalityTraits != nil {
		c.PersonalityTraits = *upd.PersonalityTraits
		personaChanged = true
	}
	if upd.SystemPrompt != nil {
		c.SystemPrompt = *upd.SystemPrompt
		personaChanged = true
	}
	if upd.AvatarURL != nil {
		c.AvatarURL = *upd.AvatarURL
	}
	if upd.SpeakingStyle != nil {
		c.SpeakingStyle = *upd.SpeakingStyle
		personaChanged = true
	}
	if upd.Background != nil {
		c.Background = *upd.Background
		personaChanged = true
	}
	if upd.IsActive != nil {
		c.IsActive = *upd.IsActive
	}

	now := time.Now().UTC()
	c.UpdatedAt = &now
	s.characters[id] = c
	s.mu.Unlock()

	if personaChanged {
		s.writePersonalityMemory(ctx, c)
	}
	return c, nil
}

// Delete drops a character from the registry and removes its memories.
// The registry removal always succeeds for a known id; the memory
// deletion result is reported so callers can surface partial cleanup.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (memory.DeleteResult, error) {
	s.mu.Lock()
	if _, ok := s.characters[id]; !ok {
		s.mu.Unlock()
		return memory.DeleteResult{}, ErrNotFound
	}
	delete(s.characters, id)
	s.mu.Unlock()

	result, err := s.memories.DeleteCharacter(ctx, id)
	if err != nil {
		s.logger.Warn("character memories not fully deleted",
			"character_id", id,
			"error", err)
		return result, nil
	}
	s.logger.Info("character deleted", "character_id", id, "memories_deleted", result.Deleted)
	return result, nil
}

// Personality renders the base persona description of a character.
func (s *Service) Personality(id uuid.UUID) (string, error) {
	c, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return personaDescription(c), nil
}

// EnhancePersonality returns the base persona plus the most relevant
// conversation memories for the given context. Memory lookup failures
// degrade to the base persona alone.
func (s *Service) EnhancePersonality(ctx context.Context, id uuid.UUID, conversationContext string) (string, error) {
	c, err := s.Get(id)
	if err != nil {
		return "", err
	}

	base := personaDescription(c)
	convType := models.MemoryConversation
	hits := s.memories.Search(ctx, id, conversationContext, &convType, 5)
	if len(hits) == 0 {
		return base, nil
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nRelevant memories:\n")
	for _, hit := range hits {
		b.WriteString("- ")
		b.WriteString(hit.Memory.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Memories lists a character's stored memories, optionally by type.
func (s *Service) Memories(ctx context.Context, id uuid.UUID, memType *models.MemoryType) ([]models.CharacterMemory, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.memories.List(ctx, id, memType, 50), nil
}

// AddMemory stores a new memory for a character.
func (s *Service) AddMemory(ctx context.Context, id uuid.UUID, content string, memType models.MemoryType, importance float64) (models.CharacterMemory, error) {
	if _, err := s.Get(id); err != nil {
		return models.CharacterMemory{}, err
	}

	m := models.NewCharacterMemory(id, memType, content, importance)
	if _, err := s.memories.StoreMemory(ctx, m); err != nil {
		return models.CharacterMemory{}, err
	}
	return m, nil
}

// Healthy reports whether the registry is serving. The in-memory map
// cannot fail, so this is true once constructed.
func (s *Service) Healthy() bool {
	return s != nil
}

// writePersonalityMemory stores the persona description as the
// character's personality memory with maximum importance.
func (s *Service) writePersonalityMemory(ctx context.Context, c models.Character) {
	m := models.NewCharacterMemory(c.ID, models.MemoryPersonality, personaDescription(c), 1.0)
	if _, err := s.memories.StoreMemory(ctx, m); err != nil {
		s.logger.Warn("personality memory not stored",
			"character_id", c.ID,
			"error", err)
	}
}

// personaDescription flattens a character into the text that seeds its
// personality memory and prompt identity block.
func personaDescription(c models.Character) string {
	var b strings.Builder
	b.WriteString(c.Name)
	if c.PersonalityTraits != "" {
		b.WriteString(" is ")
		b.WriteString(c.PersonalityTraits)
		b.WriteString(".")
	}
	if c.SpeakingStyle != "" {
		b.WriteString(" Speaking style: ")
		b.WriteString(c.SpeakingStyle)
		b.WriteString(".")
	}
	if c.Background != "" {
		b.WriteString(" Background: ")
		b.WriteString(c.Background)
		b.WriteString(".")
	}
	return b.String()
}
