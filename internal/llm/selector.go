package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bakchod-ai/persona/internal/config"
	"github.com/bakchod-ai/persona/internal/metrics"
)

// Selector routes generation requests to a fixed preference-ordered
// list of providers with health-gated failover. The currently selected
// provider index is a single atomic value; promotion on failover uses
// compare-and-swap so concurrent requests cannot regress the selection.
type Selector struct {
	providers []Provider
	current   atomic.Int32
	logger    *slog.Logger
	collector *metrics.Collector
}

// ProviderInfo describes one configured provider for introspection.
type ProviderInfo struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Healthy bool   `json:"healthy"`
	Current bool   `json:"current"`
}

// NewSelector constructs every provider whose configuration is present,
// in preference order. A constructor failure skips that provider with a
// warning; the local Ollama provider needs no credentials and is always
// attempted. Returns ErrNoProviders when nothing could be built.
func NewSelector(ctx context.Context, cfg config.Config, logger *slog.Logger, collector *metrics.Collector) (*Selector, error) {
	var providers []Provider

	add := func(p Provider, err error) {
		if err != nil {
			logger.Warn("skipping LLM provider", "error", err)
			return
		}
		providers = append(providers, p)
	}

	if cfg.GeminiAPIKey != "" {
		add(NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel))
	}
	if cfg.OpenAIAPIKey != "" {
		add(NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if cfg.AnthropicAPIKey != "" {
		add(NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	}
	add(NewOllamaProvider(cfg.OllamaHost, cfg.OllamaModel))

	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	s := &Selector{
		providers: providers,
		logger:    logger,
		collector: collector,
	}
	s.current.Store(-1)

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	logger.Info("LLM providers initialized", "providers", names)

	return s, nil
}

// attemptOrder returns provider indices starting at the current
// selection, then the remaining providers in preference order. Before
// the first successful generation the order is plain preference order.
func (s *Selector) attemptOrder() []int {
	start := int(s.current.Load())
	if start < 0 {
		start = 0
	}
	order := make([]int, 0, len(s.providers))
	for i := start; i < len(s.providers); i++ {
		order = append(order, i)
	}
	for i := 0; i < start; i++ {
		order = append(order, i)
	}
	return order
}

// Generate tries healthy providers in attempt order until one succeeds.
// Success promotes that provider to current; every later call starts
// there. Unhealthy providers are never attempted. Returns
// ErrNoHealthyProvider when nothing is healthy, or
// ErrAllProvidersFailed wrapping each per-provider error when every
// healthy provider failed.
func (s *Selector) Generate(ctx context.Context, req Request) (*Response, error) {
	if !s.Healthy() {
		return nil, ErrNoHealthyProvider
	}

	var attemptErrs []error
	for _, i := range s.attemptOrder() {
		p := s.providers[i]
		if !p.Healthy() {
			continue
		}

		resp, genErr := p.Generate(ctx, req)
		if genErr != nil {
			s.logger.Warn("provider generation failed",
				"provider", p.Name(),
				"error", genErr)
			attemptErrs = append(attemptErrs, genErr)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		s.promote(int32(i), p.Name())
		var in, out int64
		if resp.Usage != nil {
			in = int64(resp.Usage.PromptTokens)
			out = int64(resp.Usage.CompletionTokens)
		}
		s.collector.RecordLLMUsage(p.Name(), resp.Latency, in, out)
		return resp, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(attemptErrs...))
}

// promote records a successful provider as current. Only moves the
// selection when it actually changed, so the switch counter stays
// accurate under concurrency.
func (s *Selector) promote(idx int32, name string) {
	for {
		prev := s.current.Load()
		if prev == idx {
			return
		}
		if s.current.CompareAndSwap(prev, idx) {
			if prev >= 0 {
				s.logger.Info("switched LLM provider",
					"from", s.providers[prev].Name(),
					"to", name)
				s.collector.RecordProviderSwitch()
			}
			return
		}
	}
}

// Healthy reports whether at least one provider is currently healthy.
func (s *Selector) Healthy() bool {
	for _, p := range s.providers {
		if p.Healthy() {
			return true
		}
	}
	return false
}

// Current returns the name of the currently selected provider, or the
// empty string before the first successful generation.
func (s *Selector) Current() string {
	idx := s.current.Load()
	if idx < 0 {
		return ""
	}
	return s.providers[idx].Name()
}

// Names lists provider names in preference order.
func (s *Selector) Names() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// Providers lists every configured provider in preference order.
func (s *Selector) Providers() []ProviderInfo {
	current := s.current.Load()
	infos := make([]ProviderInfo, len(s.providers))
	for i, p := range s.providers {
		infos[i] = ProviderInfo{
			Name:    p.Name(),
			Model:   p.Model(),
			Healthy: p.Healthy(),
			Current: int32(i) == current,
		}
	}
	return infos
}
