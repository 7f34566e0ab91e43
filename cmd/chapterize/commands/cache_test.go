// ABOUTME: Tests for the cache command group
// ABOUTME: Uses the sqlite backend in a temp directory

package commands

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/chapterize/internal/storage/sqlite"
)

func TestCacheStatus_Disabled(t *testing.T) {
	isolateEnv(t)

	stdout, _, err := executeRoot(t, "cache", "status")
	if err != nil {
		t.Fatalf("cache status error = %v", err)
	}
	if !strings.Contains(stdout, "disabled") {
		t.Errorf("output = %q, want disabled notice", stdout)
	}
}

func TestCacheStatus_SQLite(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "embeddings.db")
	t.Setenv("EMBEDDING_CACHE", "sqlite")
	t.Setenv("EMBEDDING_CACHE_PATH", path)
	t.Setenv("EMBEDDING_MODEL", "m")

	db, err := sqlite.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	cache := sqlite.NewEmbeddingCache(db)
	_ = cache.Put(context.Background(), "a", "m", []float64{1})
	_ = cache.Put(context.Background(), "b", "m", []float64{2})
	_ = cache.Put(context.Background(), "c", "other", []float64{3})
	_ = cache.Close()

	stdout, _, err := executeRoot(t, "cache", "status")
	if err != nil {
		t.Fatalf("cache status error = %v", err)
	}
	for _, want := range []string{"Backend: sqlite", "Entries: 2", path} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCacheSync_RequiresCharm(t *testing.T) {
	isolateEnv(t)
	t.Setenv("EMBEDDING_CACHE", "sqlite")

	_, _, err := executeRoot(t, "cache", "sync")
	if err == nil || !strings.Contains(err.Error(), "EMBEDDING_CACHE=charm") {
		t.Errorf("error = %v, want charm requirement", err)
	}
}
