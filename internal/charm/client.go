// ABOUTME: Charm KV client wrapper used as a cloud-synced embedding cache
// ABOUTME: Vectors live under the embedding: prefix and sync with SSH key auth
package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

// EmbeddingPrefix namespaces cached vectors inside the KV database
const EmbeddingPrefix = "embedding:"

// DefaultHost is the charm server used when CHARM_HOST is unset
const DefaultHost = "charm.2389.dev"

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// DefaultConfig returns default configuration for charm client
func DefaultConfig() *Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = DefaultHost
	}
	return &Config{
		Host:     host,
		DBName:   "chapterize",
		AutoSync: true,
	}
}

// cachedVector is the JSON value stored per key
type cachedVector struct {
	Model  string    `json:"model"`
	Vector []float64 `json:"vector"`
}

// Client wraps charm KV for embedding cache operations
type Client struct {
	kv     *kv.KV
	config *Config
	mu     sync.Mutex
	dirty  bool
}

// NewClient opens the KV database named in cfg and pulls remote data when AutoSync is set
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	// charm reads its server from the environment
	if err := os.Setenv("CHARM_HOST", cfg.Host); err != nil {
		return nil, fmt.Errorf("failed to set CHARM_HOST: %w", err)
	}

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	if cfg.AutoSync {
		_ = db.Sync()
	}

	return &Client{kv: db, config: cfg}, nil
}

// Close pushes pending writes when AutoSync is set, then closes the KV database
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return nil
	}
	if c.config.AutoSync && c.dirty {
		_ = c.kv.Sync()
	}
	err := c.kv.Close()
	c.kv = nil
	return err
}

// Get returns the cached vector for key. A missing key is a miss, not an error.
func (c *Client) Get(_ context.Context, key string) ([]float64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return nil, false, errors.New("charm kv is closed")
	}

	data, err := c.kv.Get([]byte(EmbeddingKey(key)))
	if errors.Is(err, badger.ErrKeyNotFound) || (err == nil && data == nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	var cv cachedVector
	if err := json.Unmarshal(data, &cv); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached embedding %s: %w", key, err)
	}
	return cv.Vector, true, nil
}

// Put stores the vector for key. Sync is deferred to Close so a run pushes once.
func (c *Client) Put(_ context.Context, key, model string, vector []float64) error {
	data, err := json.Marshal(cachedVector{Model: model, Vector: vector})
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return errors.New("charm kv is closed")
	}
	if err := c.kv.Set([]byte(EmbeddingKey(key)), data); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	c.dirty = true
	return nil
}

// Count returns the number of cached embeddings in the local replica
func (c *Client) Count() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return 0, errors.New("charm kv is closed")
	}
	keys, err := c.kv.Keys()
	if err != nil {
		return 0, fmt.Errorf("failed to list keys: %w", err)
	}

	n := 0
	for _, key := range keys {
		if strings.HasPrefix(string(key), EmbeddingPrefix) {
			n++
		}
	}
	return n, nil
}

// Sync manually triggers a sync with the cloud
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return errors.New("charm kv is closed")
	}
	if err := c.kv.Sync(); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// EmbeddingKey generates the KV key for a cache hash
func EmbeddingKey(hash string) string {
	return EmbeddingPrefix + hash
}
