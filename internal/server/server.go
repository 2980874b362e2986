// Package server exposes the persona backend over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bakchod-ai/persona/internal/character"
	"github.com/bakchod-ai/persona/internal/llm"
	"github.com/bakchod-ai/persona/internal/memory"
	"github.com/bakchod-ai/persona/internal/metrics"
	"github.com/bakchod-ai/persona/internal/models"
)

const serviceName = "persona-ai"

// Orchestrator is the conversation service surface the API needs.
type Orchestrator interface {
	GenerateResponse(ctx context.Context, convCtx models.ConversationContext) models.AIResponse
	CharacterMemories(ctx context.Context, characterID uuid.UUID, query string, limit int) []memory.Hit
	GroupContext(ctx context.Context, groupID uuid.UUID, query string, limit int) []memory.SummaryHit
	Healthy(ctx context.Context) bool
}

// ProviderDirectory lists configured LLM providers for introspection.
type ProviderDirectory interface {
	Providers() []llm.ProviderInfo
	Current() string
	Healthy() bool
}

// MemoryBackend is the store surface for health and stats reporting.
type MemoryBackend interface {
	Healthy(ctx context.Context) bool
	Stats(ctx context.Context) (memory.Stats, error)
}

// Server wires the HTTP routes to the domain services.
type Server struct {
	engine        *gin.Engine
	logger        *slog.Logger
	version       string
	conversations Orchestrator
	characters    *character.Service
	providers     ProviderDirectory
	memories      MemoryBackend
	collector     *metrics.Collector

	responseTimeout time.Duration
}

// New builds the HTTP server. responseTimeout bounds the generation
// path per request.
func New(
	logger *slog.Logger,
	version string,
	conversations Orchestrator,
	characters *character.Service,
	providers ProviderDirectory,
	memories MemoryBackend,
	collector *metrics.Collector,
	responseTimeout time.Duration,
) *Server {
	s := &Server{
		logger:          logger,
		version:         version,
		conversations:   conversations,
		characters:      characters,
		providers:       providers,
		memories:        memories,
		collector:       collector,
		responseTimeout: responseTimeout,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	s.routes(engine)
	s.engine = engine
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(engine *gin.Engine) {
	engine.GET("/", s.handleRoot)
	engine.GET("/info", s.handleRoot)
	engine.GET("/health", s.handleHealth)
	engine.GET("/stats", s.handleStats)

	api := engine.Group("/api/v1")
	{
		ai := api.Group("/ai")
		{
			ai.POST("/generate-response", s.handleGenerateResponse)
			ai.POST("/enhance-context", s.handleEnhanceContext)
			ai.GET("/models", s.handleModels)
		}

		chars := api.Group("/characters")
		{
			chars.POST("", s.handleCreateCharacter)
			chars.GET("", s.handleListCharacters)
			chars.GET("/:id", s.handleGetCharacter)
			chars.PATCH("/:id", s.handleUpdateCharacter)
			chars.DELETE("/:id", s.handleDeleteCharacter)
			chars.GET("/:id/personality", s.handleGetPersonality)
			chars.POST("/:id/enhance-personality", s.handleEnhancePersonality)
			chars.GET("/:id/memories", s.handleListMemories)
			chars.POST("/:id/memories", s.handleAddMemory)
		}
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": s.version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	checks := gin.H{
		"llm":       s.providers.Healthy(),
		"memory":    s.memories.Healthy(c.Request.Context()),
		"character": s.characters.Healthy(),
	}

	status := http.StatusOK
	label := "healthy"
	for _, ok := range checks {
		if ok != true {
			status = http.StatusServiceUnavailable
			label = "degraded"
			break
		}
	}
	c.JSON(status, gin.H{
		"status": label,
		"checks": checks,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	resp := gin.H{"metrics": s.collector.Snapshot()}
	if stats, err := s.memories.Stats(c.Request.Context()); err == nil {
		resp["memory"] = stats
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGenerateResponse(c *gin.Context) {
	var convCtx models.ConversationContext
	if err := c.ShouldBindJSON(&convCtx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation context: " + err.Error()})
		return
	}
	if convCtx.CurrentCharacter.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "current_character is required"})
		return
	}
	if convCtx.Mood != "" && !convCtx.Mood.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mood"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.responseTimeout)
	defer cancel()

	c.JSON(http.StatusOK, s.conversations.GenerateResponse(ctx, convCtx))
}

type enhanceContextRequest struct {
	CharacterID uuid.UUID `json:"character_id" binding:"required"`
	Query       string    `json:"query" binding:"required"`
	Limit       int       `json:"limit"`
}

func (s *Server) handleEnhanceContext(c *gin.Context) {
	var req enhanceContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}

	personality, err := s.characters.EnhancePersonality(c.Request.Context(), req.CharacterID, req.Query)
	if err != nil {
		if errors.Is(err, character.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context enhancement failed"})
		return
	}

	hits := s.conversations.CharacterMemories(c.Request.Context(), req.CharacterID, req.Query, req.Limit)
	c.JSON(http.StatusOK, gin.H{
		"personality": personality,
		"memories":    hits,
	})
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": s.providers.Providers(),
		"current":   s.providers.Current(),
	})
}

func (s *Server) handleCreateCharacter(c *gin.Context) {
	var input character.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := s.characters.Create(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, character.ErrTooManyCharacters) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListCharacters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"characters": s.characters.List()})
}

func (s *Server) characterID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleGetCharacter(c *gin.Context) {
	id, ok := s.characterID(c)
	if !ok {
		return
	}
	char, err := s.characters.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	c.JSON(http.StatusOK, char)
}

func (s *Server) handleUpdateCharacter(c *gin.Context) {
	id, ok := s.characterID(c)
	if !ok {
		return
	}

	var upd character.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	char, err := s.characters.Update(c.Request.Context(), id, upd)
	if err != nil {
		if errors.Is(err, character.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, char)
}

func (s *Server) handleDeleteCharacter(c *gin.Context) {
	id, ok := s.characterID(c)
	if !ok {
		return
	}

	result, err := s.characters.Delete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, character.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "memories": result})
}

func (s *Server) handleGetPersonality(c *gin.Context) {
	id, ok := s.characterID(c)
	if !ok {
		return
	}

	personality, err := s.characters.Personality(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"character_id": id, "personality": personality})
}

type enhancePersonalityRequest struct {
	Context string `json:"context" binding:"required"`
}

func (s *Server) handleEnhancePersonality(c *gin.Context) {
	id, ok := s.characterID(c)
	if !ok {
		return
	}

	var req enhancePersonalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enhanced, err := s.characters.EnhancePersonality(c.Request.Context(), id, req.Context)
	if err != nil {
		if errors.Is(err, character.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "personality enhancement failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"character_id": id, "personality": enhanced})
}

func (s *Server) handleListMemories(c *gin.Context) {
	id, ok := s.characterID(c)
	if !ok {
		return
	}

	var memType *models.MemoryType
	if raw := c.Query("type"); raw != "" {
		t := models.MemoryType(raw)
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown memory type"})
			return
		}
		memType = &t
	}

	memories, err := s.characters.Memories(c.Request.Context(), id, memType)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"memories": memories})
}

type addMemoryRequest struct {
	Content         string            `json:"content" binding:"required"`
	Type            models.MemoryType `json:"memory_type" binding:"required"`
	ImportanceScore float64           `json:"importance_score"`
}

func (s *Server) handleAddMemory(c *gin.Context) {
	id, ok := s.characterID(c)
	if !ok {
		return
	}

	var req addMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ImportanceScore == 0 {
		req.ImportanceScore = 0.5
	}

	m, err := s.characters.AddMemory(c.Request.Context(), id, req.Content, req.Type, req.ImportanceScore)
	if err != nil {
		if errors.Is(err, character.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, m)
}
