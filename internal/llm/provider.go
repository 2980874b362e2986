// Package llm provides the uniform LLM provider interface, one adapter
// per backend, and the health-gated failover selector.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrNoProviders means not a single adapter could be constructed at
	// startup. The service must refuse to serve generation requests.
	ErrNoProviders = errors.New("no LLM providers could be initialized")

	// ErrNoHealthyProvider means adapters exist but none reports healthy.
	ErrNoHealthyProvider = errors.New("no healthy LLM provider available")

	// ErrAllProvidersFailed means every healthy adapter was tried for a
	// request and all of them failed.
	ErrAllProvidersFailed = errors.New("all LLM providers failed")
)

// Request carries a prompt and generation parameters. Zero-valued
// parameters are omitted from the backend call.
type Request struct {
	Prompt           string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	StopSequences    []string
}

// Usage holds token counters when the backend reports them.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the uniform result of a generation call.
type Response struct {
	Content      string
	Model        string
	Provider     string
	Usage        *Usage
	FinishReason string
	Latency      time.Duration
	Reasoning    string
}

// Provider is the capability interface every backend adapter implements.
// Healthy must be a cheap local probe with no network round trip; it is
// polled on every selection pass.
type Provider interface {
	Name() string
	Model() string
	Healthy() bool
	Generate(ctx context.Context, req Request) (*Response, error)
}

// GenerationError wraps a backend failure so no backend-specific error
// type escapes the adapter boundary.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// callOptions translates a Request into langchaingo call options.
func callOptions(req Request) []llms.CallOption {
	opts := make([]llms.CallOption, 0, 6)
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(req.TopP))
	}
	if req.FrequencyPenalty != 0 {
		opts = append(opts, llms.WithFrequencyPenalty(req.FrequencyPenalty))
	}
	if req.PresencePenalty != 0 {
		opts = append(opts, llms.WithPresencePenalty(req.PresencePenalty))
	}
	if len(req.StopSequences) > 0 {
		opts = append(opts, llms.WithStopWords(req.StopSequences))
	}
	return opts
}

// complete runs a single-prompt generation against a langchaingo model
// and normalizes the result. Shared by all adapters.
func complete(ctx context.Context, providerName, modelName string, model llms.Model, req Request) (*Response, error) {
	start := time.Now()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
	result, err := model.GenerateContent(ctx, messages, callOptions(req)...)
	if err != nil {
		return nil, &GenerationError{Provider: providerName, Err: err}
	}
	if len(result.Choices) == 0 {
		return nil, &GenerationError{Provider: providerName, Err: errors.New("no response choices")}
	}

	choice := result.Choices[0]
	resp := &Response{
		Content:      choice.Content,
		Model:        modelName,
		Provider:     providerName,
		FinishReason: choice.StopReason,
		Latency:      time.Since(start),
		Usage:        usageFromInfo(choice.GenerationInfo),
	}
	if reasoning, ok := choice.GenerationInfo["ReasoningContent"].(string); ok {
		resp.Reasoning = reasoning
	}
	return resp, nil
}

// usageFromInfo extracts token counters from langchaingo generation
// info. Not every backend reports them; returns nil when absent.
func usageFromInfo(info map[string]any) *Usage {
	if info == nil {
		return nil
	}
	prompt := intFromInfo(info, "PromptTokens")
	completion := intFromInfo(info, "CompletionTokens")
	total := intFromInfo(info, "TotalTokens")
	if prompt == 0 && completion == 0 && total == 0 {
		return nil
	}
	if total == 0 {
		total = prompt + completion
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

func intFromInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
