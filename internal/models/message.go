package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies message content.
type MessageType string

const (
	MessageText     MessageType = "TEXT"
	MessageImage    MessageType = "IMAGE"
	MessageAudio    MessageType = "AUDIO"
	MessageVideo    MessageType = "VIDEO"
	MessageDocument MessageType = "DOCUMENT"
	MessageEmoji    MessageType = "EMOJI"
	MessageSystem   MessageType = "SYSTEM"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageAudio, MessageVideo,
		MessageDocument, MessageEmoji, MessageSystem:
		return true
	}
	return false
}

// Message is a single utterance in a group. Immutable once created.
type Message struct {
	ID            uuid.UUID   `json:"id"`
	GroupID       uuid.UUID   `json:"group_id"`
	CharacterID   uuid.UUID   `json:"character_id"`
	Content       string      `json:"content"`
	Type          MessageType `json:"message_type"`
	Timestamp     time.Time   `json:"timestamp"`
	IsAIGenerated bool        `json:"is_ai_generated"`
}
