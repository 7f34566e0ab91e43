// ABOUTME: Embedding cache decorator and backend selection
// ABOUTME: Wraps an embedder so repeated paragraphs skip the embedding service
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/charm"
	"github.com/harper/chapterize/internal/storage/sqlite"
)

// Backend names accepted by Open
const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
)

// VectorStore is a key/value store for embedding vectors
type VectorStore interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Put(ctx context.Context, key, model string, vector []float64) error
	Close() error
}

// Embedder is the capability being cached
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// Options selects and configures a cache backend
type Options struct {
	Backend string
	Path    string
	Charm   *charm.Config
}

// Open returns the store named by opts.Backend. BackendNone (or empty) returns a nil store.
func Open(opts Options) (VectorStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			path = sqlite.DefaultDBPath()
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		return sqlite.NewEmbeddingCache(db), nil
	case BackendCharm:
		client, err := charm.NewClient(opts.Charm)
		if err != nil {
			return nil, fmt.Errorf("failed to open charm cache: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedding cache backend %q (want none, sqlite or charm)", opts.Backend)
	}
}

// CacheKey derives the store key for text embedded with model
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// CachedEmbedder serves vectors from a store and forwards misses to the wrapped embedder.
// Store failures are logged and treated as misses.
type CachedEmbedder struct {
	next   Embedder
	store  VectorStore
	model  string
	logger *log.Logger
}

// NewCachedEmbedder wraps next with store. Keys include model so switching models never reuses vectors.
func NewCachedEmbedder(next Embedder, store VectorStore, model string, logger *log.Logger) *CachedEmbedder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &CachedEmbedder{
		next:   next,
		store:  store,
		model:  model,
		logger: logger,
	}
}

// EmbedTexts returns one vector per text in input order
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if c.store == nil {
		return c.next.EmbedTexts(ctx, texts)
	}

	vectors := make([][]float64, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		keys[i] = CacheKey(c.model, text)
		vector, ok, err := c.store.Get(ctx, keys[i])
		if err != nil {
			c.logger.Warn("embedding cache read failed", "error", err)
		}
		if ok && len(vector) > 0 {
			vectors[i] = vector
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	c.logger.Debug("embedding cache lookup", "hits", len(texts)-len(missIdx), "misses", len(missIdx))
	if len(missIdx) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
	}

	for j, i := range missIdx {
		vectors[i] = fresh[j]
		if err := c.store.Put(ctx, keys[i], c.model, fresh[j]); err != nil {
			c.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return vectors, nil
}

// Close releases the underlying store
func (c *CachedEmbedder) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
