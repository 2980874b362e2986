package models

import (
	"time"
)

// Mood describes the tone of an ongoing conversation.
type Mood string

const (
	MoodCasual   Mood = "CASUAL"
	MoodFormal   Mood = "FORMAL"
	MoodHumorous Mood = "HUMOROUS"
	MoodSerious  Mood = "SERIOUS"
	MoodExcited  Mood = "EXCITED"
	MoodCalm     Mood = "CALM"
	MoodDebate   Mood = "DEBATE"
	MoodGossip   Mood = "GOSSIP"
	MoodPlanning Mood = "PLANNING"
)

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	switch m {
	case MoodCasual, MoodFormal, MoodHumorous, MoodSerious, MoodExcited,
		MoodCalm, MoodDebate, MoodGossip, MoodPlanning:
		return true
	}
	return false
}

// ConversationContext is the per-request aggregate handed to the
// orchestrator. It is never persisted; callers construct it fresh for
// every generation request. CurrentCharacter is the one character that
// must speak next.
type ConversationContext struct {
	Group             Group             `json:"group"`
	CurrentCharacter  Character         `json:"current_character"`
	RecentMessages    []Message         `json:"recent_messages,omitempty"`
	ActiveCharacters  []Character       `json:"active_characters,omitempty"`
	AdditionalContext map[string]string `json:"additional_context,omitempty"`
	StartTime         *time.Time        `json:"conversation_start_time,omitempty"`
	CurrentTopic      string            `json:"current_topic,omitempty"`
	Mood              Mood              `json:"mood,omitempty"`
}

// AIResponse is the post-processed reply returned to the chat layer.
type AIResponse struct {
	Content        string         `json:"content"`
	Type           MessageType    `json:"message_type"`
	Confidence     float64        `json:"confidence"`
	ModelUsed      string         `json:"model_used,omitempty"`
	ResponseTimeMs int64          `json:"response_time_ms"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IsInterruption bool           `json:"is_interruption"`
	Reasoning      string         `json:"reasoning,omitempty"`
}
