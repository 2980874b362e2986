package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MemoryType tags what kind of fact a character memory records.
type MemoryType string

const (
	MemoryPersonality  MemoryType = "personality"
	MemoryConversation MemoryType = "conversation"
	MemoryRelationship MemoryType = "relationship"
	MemoryPreference   MemoryType = "preference"
	MemoryFact         MemoryType = "fact"
)

// Valid reports whether t is one of the known memory types.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryPersonality, MemoryConversation, MemoryRelationship,
		MemoryPreference, MemoryFact:
		return true
	}
	return false
}

// CharacterMemory is a durable fact about a character, stored in the
// vector index and retrieved by semantic similarity. The ID is a
// generated uuid so concurrent writes for the same character and type
// can never collide on clock granularity; re-storing the same memory
// value overwrites the same record.
type CharacterMemory struct {
	ID              string            `json:"id"`
	CharacterID     uuid.UUID         `json:"character_id"`
	Type            MemoryType        `json:"memory_type"`
	Content         string            `json:"content"`
	ImportanceScore float64           `json:"importance_score"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewCharacterMemory builds a memory with a fresh id and timestamp.
func NewCharacterMemory(characterID uuid.UUID, typ MemoryType, content string, importance float64) CharacterMemory {
	return CharacterMemory{
		ID:              uuid.NewString(),
		CharacterID:     characterID,
		Type:            typ,
		Content:         content,
		ImportanceScore: importance,
		CreatedAt:       time.Now().UTC(),
	}
}

// Validate checks the memory invariants before it reaches the store.
func (m CharacterMemory) Validate() error {
	if m.CharacterID == uuid.Nil {
		return fmt.Errorf("memory requires a character id")
	}
	if m.Content == "" {
		return fmt.Errorf("memory content must not be empty")
	}
	if !m.Type.Valid() {
		return fmt.Errorf("unknown memory type %q", m.Type)
	}
	if m.ImportanceScore < 0 || m.ImportanceScore > 1 {
		return fmt.Errorf("importance score %.2f outside [0,1]", m.ImportanceScore)
	}
	return nil
}

// ConversationSummary is a durable rollup of a group's conversation.
type ConversationSummary struct {
	ID           string      `json:"id"`
	GroupID      uuid.UUID   `json:"group_id"`
	Summary      string      `json:"summary"`
	KeyTopics    []string    `json:"key_topics,omitempty"`
	Participants []uuid.UUID `json:"participants,omitempty"`
	Mood         Mood        `json:"mood"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewConversationSummary builds a summary with a fresh id and timestamps.
func NewConversationSummary(groupID uuid.UUID, text string) ConversationSummary {
	now := time.Now().UTC()
	return ConversationSummary{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Summary:   text,
		Mood:      MoodCasual,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
