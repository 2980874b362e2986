// Package conversation assembles prompts from conversation state and
// orchestrates response generation with graceful degradation.
package conversation

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/bakchod-ai/persona/internal/llm"
	"github.com/bakchod-ai/persona/internal/models"
)

const (
	defaultMood  = models.MoodCasual
	defaultTopic = "General conversation"

	// transcriptWindow caps how many recent messages enter the prompt.
	transcriptWindow = 10

	defaultConfidence  = 0.8
	fallbackConfidence = 0.1
)

// fallbackReplies are the safe stock responses used when generation
// fails end to end.
var fallbackReplies = []string{
	"Hmm, let me think about that...",
	"That's an interesting point!",
	"I'm not sure what to say about that.",
	"Can you tell me more about that?",
	"That's something to consider...",
	"I see what you mean.",
	"That's a good question!",
	"Let me process that for a moment...",
}

// BuildPrompt renders a ConversationContext into the single prompt
// string handed to the LLM. Pure function; section order is fixed:
// identity, scene, transcript, additional context, instructions.
func BuildPrompt(ctx models.ConversationContext) string {
	c := ctx.CurrentCharacter

	var b strings.Builder

	// Identity block
	fmt.Fprintf(&b, "You are %s, a %s character.\n", c.Name, c.PersonalityTraits)
	if c.SystemPrompt != "" {
		b.WriteString(c.SystemPrompt)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nSpeaking style: %s\nBackground: %s\n", c.SpeakingStyle, c.Background)

	// Scene block
	names := make([]string, 0, len(ctx.ActiveCharacters))
	for _, ch := range ctx.ActiveCharacters {
		names = append(names, ch.Name)
	}
	mood := ctx.Mood
	if mood == "" {
		mood = defaultMood
	}
	topic := ctx.CurrentTopic
	if topic == "" {
		topic = defaultTopic
	}
	fmt.Fprintf(&b, "\nYou are participating in a group chat with the following members:\n%s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "\nCurrent conversation mood: %s\nCurrent topic: %s\n", mood, topic)

	// Transcript: last N messages, oldest first
	if len(ctx.RecentMessages) > 0 {
		msgs := ctx.RecentMessages
		if len(msgs) > transcriptWindow {
			msgs = msgs[len(msgs)-transcriptWindow:]
		}
		b.WriteString("\nRecent conversation:\n")
		for _, msg := range msgs {
			fmt.Fprintf(&b, "%s: %s\n", msg.CharacterID, msg.Content)
		}
	}

	// Additional context, sorted for deterministic output
	if len(ctx.AdditionalContext) > 0 {
		keys := make([]string, 0, len(ctx.AdditionalContext))
		for k := range ctx.AdditionalContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nAdditional context:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, ctx.AdditionalContext[k])
		}
	}

	// Instruction block
	fmt.Fprintf(&b, `
Instructions:
- Respond naturally as %s
- Keep your response conversational and engaging
- Stay in character based on your personality and background
- Respond to the conversation context appropriately
- Keep responses concise but meaningful
- Use your speaking style consistently

Respond now:`, c.Name)

	return strings.TrimSpace(b.String())
}

// ProcessResponse sanitizes a raw generation into an AIResponse: strips
// a leading "Name:" echo, hard-truncates to maxLen, and attaches the
// default confidence plus provider metadata.
func ProcessResponse(resp *llm.Response, ctx models.ConversationContext, maxLen int) models.AIResponse {
	content := strings.TrimSpace(resp.Content)

	prefix := ctx.CurrentCharacter.Name + ":"
	if strings.HasPrefix(content, prefix) {
		content = strings.TrimSpace(strings.TrimPrefix(content, prefix))
	}

	content = truncate(content, maxLen)

	metadata := map[string]any{
		"provider":      resp.Provider,
		"finish_reason": resp.FinishReason,
	}
	if resp.Usage != nil {
		metadata["usage"] = resp.Usage
	}

	return models.AIResponse{
		Content:        content,
		Type:           models.MessageText,
		Confidence:     defaultConfidence,
		ModelUsed:      resp.Model,
		ResponseTimeMs: resp.Latency.Milliseconds(),
		GeneratedAt:    time.Now().UTC(),
		Metadata:       metadata,
		Reasoning:      resp.Reasoning,
	}
}

// truncate caps content at maxLen characters plus an ellipsis marker.
// Counts runes, not bytes, so multi-byte text is never cut mid-rune.
func truncate(content string, maxLen int) string {
	if maxLen <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}

// FallbackResponse returns a random stock reply. Used whenever the
// generation path fails; the caller never sees the failure.
func FallbackResponse() models.AIResponse {
	return models.AIResponse{
		Content:        fallbackReplies[rand.Intn(len(fallbackReplies))],
		Type:           models.MessageText,
		Confidence:     fallbackConfidence,
		ModelUsed:      "fallback",
		ResponseTimeMs: 0,
		GeneratedAt:    time.Now().UTC(),
		Metadata:       map[string]any{"fallback": true},
	}
}
