package memory

import "fmt"

// schemaSQL returns the schema initialization SQL with the HNSW index
// dimension injected. The dimension must match the embedder output;
// DEFINE INDEX cannot be parameterized so it is formatted in.
func schemaSQL(dimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- MEMORY TABLE (character memories)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS memory SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS character_id ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS memory_type ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON memory TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON memory TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS importance_score ON memory TYPE float DEFAULT 0.5;
    DEFINE FIELD IF NOT EXISTS metadata ON memory TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created ON memory TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS memory_character ON memory FIELDS character_id;
    DEFINE INDEX IF NOT EXISTS memory_type_idx ON memory FIELDS memory_type;
    DEFINE INDEX IF NOT EXISTS memory_embedding ON memory FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- SUMMARY TABLE (group conversation rollups)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS summary SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS group_id ON summary TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON summary TYPE string;
    DEFINE FIELD IF NOT EXISTS key_topics ON summary TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS participants ON summary TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS mood ON summary TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON summary TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON summary TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON summary TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS summary_group ON summary FIELDS group_id;
    DEFINE INDEX IF NOT EXISTS summary_embedding ON summary FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`, dimension, dimension)
}
