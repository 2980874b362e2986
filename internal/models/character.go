// Package models defines the domain types shared across the persona backend.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Character is an AI persona that can speak in group conversations.
type Character struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	PersonalityTraits string     `json:"personality_traits,omitempty"`
	SystemPrompt      string     `json:"system_prompt,omitempty"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
	SpeakingStyle     string     `json:"speaking_style,omitempty"`
	Background        string     `json:"background,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Group is a named conversation container. Messages and participating
// characters reference it; it owns nothing directly.
type Group struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}
