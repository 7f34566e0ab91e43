// ABOUTME: SQLite database schema for the embedding cache
// ABOUTME: One row per (model, text) hash with the vector stored as a BLOB
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
CREATE TABLE IF NOT EXISTS embedding_cache (
    key TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    dim INTEGER NOT NULL,
    vector BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_embedding_cache_model ON embedding_cache(model);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
