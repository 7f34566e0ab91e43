// ABOUTME: Embedding cache operations for SQLite
// ABOUTME: Stores paragraph vectors as little-endian float64 BLOBs keyed by content hash
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// EmbeddingCache persists vectors keyed by a caller-supplied hash
type EmbeddingCache struct {
	db *DB
}

// NewEmbeddingCache creates a cache on top of an open database
func NewEmbeddingCache(db *DB) *EmbeddingCache {
	return &EmbeddingCache{db: db}
}

// Get returns the cached vector for key. A miss is (nil, false, nil).
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	var (
		dim  int
		blob []byte
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT dim, vector FROM embedding_cache WHERE key = ?`, key).Scan(&dim, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached embedding: %w", err)
	}

	vector := blobToVector(blob)
	if len(vector) != dim {
		return nil, false, fmt.Errorf("corrupt cached embedding %s: dimension %d, stored %d", key, len(vector), dim)
	}
	return vector, true, nil
}

// Put stores or replaces the vector for key
func (c *EmbeddingCache) Put(ctx context.Context, key, model string, vector []float64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (key, model, dim, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			model = excluded.model,
			dim = excluded.dim,
			vector = excluded.vector
	`, key, model, len(vector), vectorToBlob(vector), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors for model, or all models when model is empty
func (c *EmbeddingCache) Count(ctx context.Context, model string) (int, error) {
	var n int
	var err error
	if model == "" {
		err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache`).Scan(&n)
	} else {
		err = c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache WHERE model = ?`, model).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count cached embeddings: %w", err)
	}
	return n, nil
}

// Close closes the underlying database
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

// vectorToBlob converts a float64 slice to binary blob
func vectorToBlob(vector []float64) []byte {
	blob := make([]byte, len(vector)*8)
	for i, v := range vector {
		binary.LittleEndian.PutUint64(blob[i*8:], math.Float64bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to float64 slice
func blobToVector(blob []byte) []float64 {
	count := len(blob) / 8
	vector := make([]float64, count)
	for i := range count {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vector
}
