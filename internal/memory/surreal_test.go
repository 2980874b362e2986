// Integration tests for the SurrealDB memory store.
package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bakchod-ai/persona/internal/embedding"
	"github.com/bakchod-ai/persona/internal/models"
)

const testDimension = 384

var testStore *SurrealStore
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	if os.Getenv("PERSONA_INTEGRATION") == "" {
		// Unit tests in this package run without the container.
		os.Exit(m.Run())
	}

	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testStore, err = NewSurrealStore(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, testDimension, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testStore.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testStore.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func requireIntegration(t *testing.T) {
	if testStore == nil {
		t.Skip("set PERSONA_INTEGRATION=1 to run SurrealDB integration tests")
	}
}

// testEmbed produces a deterministic vector for integration tests.
func testEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := embedding.NewLocalEmbedder(testDimension).Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	return vec
}

func TestUpsertAndListMemories(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	charID := uuid.New()

	m := models.NewCharacterMemory(charID, models.MemoryPersonality, "sarcastic, loves cricket banter", 1.0)
	id, err := testStore.UpsertMemory(ctx, m, testEmbed(t, m.Content))
	if err != nil {
		t.Fatalf("UpsertMemory failed: %v", err)
	}
	if id != m.ID {
		t.Errorf("Expected id %q, got %q", m.ID, id)
	}
	defer func() {
		_, _ = testStore.DeleteCharacterMemories(ctx, charID)
	}()

	memories, err := testStore.ListMemories(ctx, charID, nil, 10)
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("Expected 1 memory, got %d", len(memories))
	}
	if memories[0].Content != m.Content {
		t.Errorf("Content mismatch: got %q", memories[0].Content)
	}
	if memories[0].Type != models.MemoryPersonality {
		t.Errorf("Type mismatch: got %q", memories[0].Type)
	}
	if memories[0].ImportanceScore != 1.0 {
		t.Errorf("Importance mismatch: got %f", memories[0].ImportanceScore)
	}
}

func TestUpsertMemoryOverwritesSameID(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	charID := uuid.New()
	defer func() {
		_, _ = testStore.DeleteCharacterMemories(ctx, charID)
	}()

	m := models.NewCharacterMemory(charID, models.MemoryFact, "original fact", 0.5)
	if _, err := testStore.UpsertMemory(ctx, m, testEmbed(t, m.Content)); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	m.Content = "corrected fact"
	if _, err := testStore.UpsertMemory(ctx, m, testEmbed(t, m.Content)); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	memories, err := testStore.ListMemories(ctx, charID, nil, 10)
	if err != nil {
		t.Fatalf("ListMemories failed: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("Expected 1 memory after overwrite, got %d", len(memories))
	}
	if memories[0].Content != "corrected fact" {
		t.Errorf("Expected overwritten content, got %q", memories[0].Content)
	}
}

func TestSearchMemoriesRanksExactMatchFirst(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	charID := uuid.New()
	defer func() {
		_, _ = testStore.DeleteCharacterMemories(ctx, charID)
	}()

	contents := []string{
		"supports Mumbai Indians in the IPL",
		"orders extra spicy biryani",
		"commutes by local train",
	}
	var stored []models.CharacterMemory
	for _, content := range contents {
		m := models.NewCharacterMemory(charID, models.MemoryFact, content, 0.5)
		if _, err := testStore.UpsertMemory(ctx, m, testEmbed(t, content)); err != nil {
			t.Fatalf("UpsertMemory failed: %v", err)
		}
		stored = append(stored, m)
	}

	hits, err := testStore.SearchMemories(ctx, charID, testEmbed(t, contents[1]), nil, 3)
	if err != nil {
		t.Fatalf("SearchMemories failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("Expected search hits")
	}
	if hits[0].Memory.ID != stored[1].ID {
		t.Errorf("Expected exact match ranked first, got %q", hits[0].Memory.Content)
	}
	if hits[0].Score < 0.99 {
		t.Errorf("Expected near-1.0 score for exact match, got %f", hits[0].Score)
	}
}

func TestSearchMemoriesTypeFilter(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	charID := uuid.New()
	defer func() {
		_, _ = testStore.DeleteCharacterMemories(ctx, charID)
	}()

	fact := models.NewCharacterMemory(charID, models.MemoryFact, "works at a startup", 0.5)
	pref := models.NewCharacterMemory(charID, models.MemoryPreference, "prefers filter coffee", 0.5)
	for _, m := range []models.CharacterMemory{fact, pref} {
		if _, err := testStore.UpsertMemory(ctx, m, testEmbed(t, m.Content)); err != nil {
			t.Fatalf("UpsertMemory failed: %v", err)
		}
	}

	prefType := models.MemoryPreference
	hits, err := testStore.SearchMemories(ctx, charID, testEmbed(t, "coffee"), &prefType, 10)
	if err != nil {
		t.Fatalf("SearchMemories with type filter failed: %v", err)
	}
	for _, hit := range hits {
		if hit.Memory.Type != models.MemoryPreference {
			t.Errorf("Type filter leaked %q", hit.Memory.Type)
		}
	}
}

func TestDeleteCharacterMemoriesCount(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	charID := uuid.New()

	for i := 0; i < 3; i++ {
		m := models.NewCharacterMemory(charID, models.MemoryFact, fmt.Sprintf("fact %d", i), 0.5)
		if _, err := testStore.UpsertMemory(ctx, m, testEmbed(t, m.Content)); err != nil {
			t.Fatalf("UpsertMemory failed: %v", err)
		}
	}

	result, err := testStore.DeleteCharacterMemories(ctx, charID)
	if err != nil {
		t.Fatalf("DeleteCharacterMemories failed: %v", err)
	}
	if !result.Supported {
		t.Error("SurrealDB delete should report Supported=true")
	}
	if result.Deleted != 3 {
		t.Errorf("Expected 3 deleted, got %d", result.Deleted)
	}

	// Idempotent on repeat
	result, err = testStore.DeleteCharacterMemories(ctx, charID)
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if result.Deleted != 0 {
		t.Errorf("Expected 0 deleted on repeat, got %d", result.Deleted)
	}
}

func TestDimensionMismatchRejected(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	m := models.NewCharacterMemory(uuid.New(), models.MemoryFact, "wrong vector size", 0.5)
	_, err := testStore.UpsertMemory(ctx, m, make([]float32, testDimension+1))
	if err == nil {
		t.Fatal("Expected dimension mismatch error")
	}
}

func TestSummaryUpsertAndSearch(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	groupID := uuid.New()

	summary := models.NewConversationSummary(groupID, "Planning a weekend trek to Lonavala.")
	summary.KeyTopics = []string{"travel", "trek"}
	summary.Participants = []uuid.UUID{uuid.New(), uuid.New()}

	if _, err := testStore.UpsertSummary(ctx, summary, testEmbed(t, summary.Summary)); err != nil {
		t.Fatalf("UpsertSummary failed: %v", err)
	}

	hits, err := testStore.SearchSummaries(ctx, groupID, testEmbed(t, summary.Summary), 5)
	if err != nil {
		t.Fatalf("SearchSummaries failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("Expected summary hits")
	}
	if hits[0].Summary.ID != summary.ID {
		t.Errorf("Expected stored summary first, got %q", hits[0].Summary.ID)
	}
	if len(hits[0].Summary.Participants) != 2 {
		t.Errorf("Expected 2 participants, got %d", len(hits[0].Summary.Participants))
	}
}

func TestStatsAndHealth(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	if !testStore.Healthy(ctx) {
		t.Error("Store should be healthy with running container")
	}

	stats, err := testStore.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Dimension != testDimension {
		t.Errorf("Expected dimension %d, got %d", testDimension, stats.Dimension)
	}
}
