package memory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/bakchod-ai/persona/internal/models"
)

func init() {
	// Force HTTP/1.1 for WSS connections to prevent HTTP/2 ALPN negotiation.
	// WebSocket upgrade requires HTTP/1.1 semantics which fail under HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// SurrealStore implements Store on SurrealDB with an auto-reconnecting
// WebSocket connection and HNSW cosine indexes.
type SurrealStore struct {
	conn      *rews.Connection[*gorillaws.Connection]
	db        *surrealdb.DB
	cfg       Config
	dimension int
	logger    logger.Logger
}

var _ Store = (*SurrealStore)(nil)

// NewSurrealStore connects to SurrealDB and returns a store whose HNSW
// indexes use the given embedding dimension.
func NewSurrealStore(ctx context.Context, cfg Config, dimension int, log *slog.Logger) (*SurrealStore, error) {
	var sdkLogger logger.Logger
	if log != nil {
		sdkLogger = logger.New(log.Handler())
	} else {
		sdkLogger = logger.New(slog.Default().Handler())
	}

	// surrealcbor handles SurrealDB custom CBOR tags
	codec := surrealcbor.New()

	// gorillaws requires the base URL without the /rpc suffix (it adds
	// /rpc internally)
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			ws := gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			})
			return ws, nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if cfg.AuthLevel == "database" {
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Namespace: cfg.Namespace,
			Database:  cfg.Database,
			Username:  cfg.Username,
			Password:  cfg.Password,
		})
	} else {
		// Default to root auth
		_, err = db.SignIn(ctx, surrealdb.Auth{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	sdkLogger.Info("SurrealDB connection established")
	return &SurrealStore{
		conn:      conn,
		db:        db,
		cfg:       cfg,
		dimension: dimension,
		logger:    sdkLogger,
	}, nil
}

// Close closes the SurrealDB connection.
func (s *SurrealStore) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

// Dimension returns the HNSW index dimension.
func (s *SurrealStore) Dimension() int {
	return s.dimension
}

// InitSchema initializes tables and indexes. Idempotent.
func (s *SurrealStore) InitSchema(ctx context.Context) error {
	s.logger.Info("initializing memory schema", "dimension", s.dimension)
	_, err := surrealdb.Query[any](ctx, s.db, schemaSQL(s.dimension), nil)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// memoryRow is the wire shape of a memory record.
type memoryRow struct {
	ID              surrealmodels.RecordID `json:"id"`
	CharacterID     string                 `json:"character_id"`
	MemoryType      string                 `json:"memory_type"`
	Content         string                 `json:"content"`
	ImportanceScore float64                `json:"importance_score"`
	Metadata        map[string]string      `json:"metadata,omitempty"`
	Created         time.Time              `json:"created,omitempty"`
	Score           float64                `json:"score,omitempty"`
}

func (r memoryRow) toMemory() (models.CharacterMemory, error) {
	id, ok := r.ID.ID.(string)
	if !ok {
		return models.CharacterMemory{}, fmt.Errorf("unexpected record id type %T", r.ID.ID)
	}
	charID, err := uuid.Parse(r.CharacterID)
	if err != nil {
		return models.CharacterMemory{}, fmt.Errorf("parse character id: %w", err)
	}
	return models.CharacterMemory{
		ID:              id,
		CharacterID:     charID,
		Type:            models.MemoryType(r.MemoryType),
		Content:         r.Content,
		ImportanceScore: r.ImportanceScore,
		Metadata:        r.Metadata,
		CreatedAt:       r.Created,
	}, nil
}

// summaryRow is the wire shape of a summary record.
type summaryRow struct {
	ID           surrealmodels.RecordID `json:"id"`
	GroupID      string                 `json:"group_id"`
	Summary      string                 `json:"summary"`
	KeyTopics    []string               `json:"key_topics,omitempty"`
	Participants []string               `json:"participants,omitempty"`
	Mood         string                 `json:"mood"`
	Created      time.Time              `json:"created,omitempty"`
	Updated      time.Time              `json:"updated,omitempty"`
	Score        float64                `json:"score,omitempty"`
}

func (r summaryRow) toSummary() (models.ConversationSummary, error) {
	id, ok := r.ID.ID.(string)
	if !ok {
		return models.ConversationSummary{}, fmt.Errorf("unexpected record id type %T", r.ID.ID)
	}
	groupID, err := uuid.Parse(r.GroupID)
	if err != nil {
		return models.ConversationSummary{}, fmt.Errorf("parse group id: %w", err)
	}
	participants := make([]uuid.UUID, 0, len(r.Participants))
	for _, p := range r.Participants {
		pid, err := uuid.Parse(p)
		if err != nil {
			return models.ConversationSummary{}, fmt.Errorf("parse participant id: %w", err)
		}
		participants = append(participants, pid)
	}
	return models.ConversationSummary{
		ID:           id,
		GroupID:      groupID,
		Summary:      r.Summary,
		KeyTopics:    r.KeyTopics,
		Participants: participants,
		Mood:         models.Mood(r.Mood),
		CreatedAt:    r.Created,
		UpdatedAt:    r.Updated,
	}, nil
}

// UpsertMemory creates or overwrites a memory record keyed by its id.
func (s *SurrealStore) UpsertMemory(ctx context.Context, m models.CharacterMemory, embedding []float32) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if len(embedding) != s.dimension {
		return "", fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dimension)
	}

	metadata := m.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	sql := `
		UPSERT type::record("memory", $id) SET
			character_id = $character_id,
			memory_type = $memory_type,
			content = $content,
			embedding = $embedding,
			importance_score = $importance,
			metadata = $metadata,
			created = IF created THEN created ELSE time::now() END
		RETURN AFTER
	`
	results, err := surrealdb.Query[[]memoryRow](ctx, s.db, sql, map[string]any{
		"id":           m.ID,
		"character_id": m.CharacterID.String(),
		"memory_type":  string(m.Type),
		"content":      m.Content,
		"embedding":    embedding,
		"importance":   m.ImportanceScore,
		"metadata":     metadata,
	})
	if err != nil {
		return "", fmt.Errorf("upsert memory: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("upsert memory: no result returned")
	}
	return m.ID, nil
}

// SearchMemories runs a KNN query over a character's memories.
func (s *SurrealStore) SearchMemories(
	ctx context.Context,
	characterID uuid.UUID,
	vector []float32,
	memType *models.MemoryType,
	topK int,
) ([]Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dimension)
	}

	typeClause := ""
	if memType != nil {
		typeClause = "AND memory_type = $memory_type"
	}

	// HNSW KNN with ef=40 for better recall
	sql := fmt.Sprintf(`
		SELECT id, character_id, memory_type, content, importance_score, metadata, created,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM memory
		WHERE embedding <|%d,40|> $emb
			AND character_id = $character_id
			%s
		ORDER BY score DESC
		LIMIT $limit
	`, topK, typeClause)

	vars := map[string]any{
		"emb":          vector,
		"character_id": characterID.String(),
		"limit":        topK,
	}
	if memType != nil {
		vars["memory_type"] = string(*memType)
	}

	results, err := surrealdb.Query[[]memoryRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []Hit{}, nil
	}
	rows := (*results)[0].Result
	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		m, err := row.toMemory()
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Memory: m, Score: row.Score})
	}
	return hits, nil
}

// ListMemories returns a character's memories ordered by importance.
func (s *SurrealStore) ListMemories(
	ctx context.Context,
	characterID uuid.UUID,
	memType *models.MemoryType,
	limit int,
) ([]models.CharacterMemory, error) {
	typeClause := ""
	if memType != nil {
		typeClause = "AND memory_type = $memory_type"
	}

	sql := fmt.Sprintf(`
		SELECT id, character_id, memory_type, content, importance_score, metadata, created
		FROM memory
		WHERE character_id = $character_id %s
		ORDER BY importance_score DESC
		LIMIT $limit
	`, typeClause)

	vars := map[string]any{
		"character_id": characterID.String(),
		"limit":        limit,
	}
	if memType != nil {
		vars["memory_type"] = string(*memType)
	}

	results, err := surrealdb.Query[[]memoryRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.CharacterMemory{}, nil
	}
	rows := (*results)[0].Result
	memories := make([]models.CharacterMemory, 0, len(rows))
	for _, row := range rows {
		m, err := row.toMemory()
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// DeleteCharacterMemories removes every memory of a character. SurrealDB
// supports filtered deletion, so the result always carries the real
// count with Supported=true.
func (s *SurrealStore) DeleteCharacterMemories(ctx context.Context, characterID uuid.UUID) (DeleteResult, error) {
	sql := `DELETE memory WHERE character_id = $character_id RETURN BEFORE`

	results, err := surrealdb.Query[[]memoryRow](ctx, s.db, sql, map[string]any{
		"character_id": characterID.String(),
	})
	if err != nil {
		return DeleteResult{Supported: true}, fmt.Errorf("delete character memories: %w", err)
	}

	deleted := 0
	if results != nil && len(*results) > 0 {
		deleted = len((*results)[0].Result)
	}
	return DeleteResult{Supported: true, Deleted: deleted}, nil
}

// UpsertSummary creates or overwrites a conversation summary record.
func (s *SurrealStore) UpsertSummary(ctx context.Context, summary models.ConversationSummary, embedding []float32) (string, error) {
	if len(embedding) != s.dimension {
		return "", fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dimension)
	}

	participants := make([]string, 0, len(summary.Participants))
	for _, p := range summary.Participants {
		participants = append(participants, p.String())
	}
	topics := summary.KeyTopics
	if topics == nil {
		topics = []string{}
	}

	sql := `
		UPSERT type::record("summary", $id) SET
			group_id = $group_id,
			summary = $summary,
			key_topics = $key_topics,
			participants = $participants,
			mood = $mood,
			embedding = $embedding,
			updated = time::now(),
			created = IF created THEN created ELSE time::now() END
		RETURN AFTER
	`
	results, err := surrealdb.Query[[]summaryRow](ctx, s.db, sql, map[string]any{
		"id":           summary.ID,
		"group_id":     summary.GroupID.String(),
		"summary":      summary.Summary,
		"key_topics":   topics,
		"participants": participants,
		"mood":         string(summary.Mood),
		"embedding":    embedding,
	})
	if err != nil {
		return "", fmt.Errorf("upsert summary: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("upsert summary: no result returned")
	}
	return summary.ID, nil
}

// SearchSummaries runs a KNN query over a group's summaries.
func (s *SurrealStore) SearchSummaries(ctx context.Context, groupID uuid.UUID, vector []float32, topK int) ([]SummaryHit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), s.dimension)
	}

	sql := fmt.Sprintf(`
		SELECT id, group_id, summary, key_topics, participants, mood, created, updated,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM summary
		WHERE embedding <|%d,40|> $emb
			AND group_id = $group_id
		ORDER BY score DESC
		LIMIT $limit
	`, topK)

	results, err := surrealdb.Query[[]summaryRow](ctx, s.db, sql, map[string]any{
		"emb":      vector,
		"group_id": groupID.String(),
		"limit":    topK,
	})
	if err != nil {
		return nil, fmt.Errorf("search summaries: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []SummaryHit{}, nil
	}
	rows := (*results)[0].Result
	hits := make([]SummaryHit, 0, len(rows))
	for _, row := range rows {
		sum, err := row.toSummary()
		if err != nil {
			return nil, err
		}
		hits = append(hits, SummaryHit{Summary: sum, Score: row.Score})
	}
	return hits, nil
}

// Healthy runs a trivial query to verify the connection is usable.
func (s *SurrealStore) Healthy(ctx context.Context) bool {
	_, err := surrealdb.Query[any](ctx, s.db, "RETURN 1", nil)
	return err == nil
}

// Stats returns record counts and the index dimension.
func (s *SurrealStore) Stats(ctx context.Context) (Stats, error) {
	type countRow struct {
		Count int `json:"count"`
	}

	memResults, err := surrealdb.Query[[]countRow](ctx, s.db,
		`SELECT count() AS count FROM memory GROUP ALL`, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("count memories: %w", err)
	}
	sumResults, err := surrealdb.Query[[]countRow](ctx, s.db,
		`SELECT count() AS count FROM summary GROUP ALL`, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("count summaries: %w", err)
	}

	stats := Stats{Dimension: s.dimension}
	if memResults != nil && len(*memResults) > 0 && len((*memResults)[0].Result) > 0 {
		stats.MemoryCount = (*memResults)[0].Result[0].Count
	}
	if sumResults != nil && len(*sumResults) > 0 && len((*sumResults)[0].Result) > 0 {
		stats.SummaryCount = (*sumResults)[0].Result[0].Count
	}
	return stats, nil
}
