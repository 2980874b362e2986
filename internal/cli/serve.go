package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bakchod-ai/persona/internal/character"
	"github.com/bakchod-ai/persona/internal/config"
	"github.com/bakchod-ai/persona/internal/conversation"
	"github.com/bakchod-ai/persona/internal/embedding"
	"github.com/bakchod-ai/persona/internal/llm"
	"github.com/bakchod-ai/persona/internal/memory"
	"github.com/bakchod-ai/persona/internal/metrics"
	"github.com/bakchod-ai/persona/internal/server"
)

const startupTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serve starts the persona HTTP API: LLM provider selection, character
registry, semantic memory and conversation generation. An unreachable
vector store disables memory paths but the server still comes up;
startup fails only when no LLM provider at all can be built.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := cleanup(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()

	logger.Info("starting persona server", "version", Version, "port", cfg.HTTPPort)

	collector := metrics.NewCollector()

	embedder, err := embedding.New(embedding.Config{
		Provider:     embedding.ProviderType(cfg.EmbedProvider),
		Model:        cfg.EmbedModel,
		Dimension:    cfg.EmbedDimension,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OllamaHost:   cfg.OllamaHost,
	})
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// An unreachable vector store disables memory but never blocks
	// generation: the selector and fallback path keep the API usable.
	store := connectStore(ctx, cfg, embedder.Dimension(), logger)
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error("failed to close vector store", "error", err)
		}
	}()

	memories, err := memory.NewService(embedder, store, logger, collector)
	if err != nil {
		return fmt.Errorf("init memory service: %w", err)
	}

	selector, err := llm.NewSelector(ctx, cfg, logger, collector)
	if err != nil {
		return fmt.Errorf("init LLM providers: %w", err)
	}

	characters := character.NewService(memories, logger, cfg.MaxCharactersPerGroup)
	if seeded, err := characters.SeedFromFile(ctx, cfg.CharacterSeedFile); err != nil {
		return fmt.Errorf("seed characters: %w", err)
	} else if seeded > 0 {
		logger.Info("seeded characters", "count", seeded)
	}

	conversations := conversation.NewService(selector, memories, logger, cfg.MaxResponseLength)

	srv := server.New(logger, Version, conversations, characters, selector, memories, collector, cfg.ResponseTimeout)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// connectStore dials SurrealDB and initializes the schema. On any
// failure it returns a disabled store so the process can still serve
// generation requests.
func connectStore(ctx context.Context, cfg config.Config, dimension int, logger *slog.Logger) memory.Store {
	store, err := memory.NewSurrealStore(ctx, memory.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, dimension, logger)
	if err != nil {
		logger.Error("vector store unreachable, memory disabled",
			"url", cfg.SurrealDBURL,
			"error", err)
		return memory.NewDisabledStore(dimension)
	}

	if err := store.InitSchema(ctx); err != nil {
		logger.Error("vector store schema init failed, memory disabled", "error", err)
		if cerr := store.Close(ctx); cerr != nil {
			logger.Error("failed to close vector store", "error", cerr)
		}
		return memory.NewDisabledStore(dimension)
	}

	return store
}
