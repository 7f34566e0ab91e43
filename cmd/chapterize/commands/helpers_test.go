// ABOUTME: Shared fixtures for command tests
// ABOUTME: Fake OpenAI-compatible server, transcript files and env isolation
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

var chapterizeEnv = []string{
	"PROVIDER", "LLM_BASE_URL", "OPENAI_API_KEY", "CHAT_MODEL", "EMBEDDING_MODEL",
	"LLM_TIMEOUT", "LLM_MAX_RETRIES", "TITLE_TIMEOUT", "TITLE_MAX_TOKENS",
	"EMBED_BATCH_SIZE", "EMBED_CONCURRENCY", "EMBED_MAX_RETRIES", "EMBED_RETRY_DELAY",
	"TITLE_CONCURRENCY", "CHUNK_MAX_TOKENS", "CHUNK_OVERLAP_TOKENS",
	"MERGE_GAP_TOLERANCE_SECONDS", "PARAGRAPH_MIN_WORDS", "PARAGRAPH_MAX_WORDS",
	"TOKENIZER_PATH", "SIMILARITY_THRESHOLD", "WINDOW_SECONDS", "STRIDE_SECONDS",
	"MIN_CHAPTER_DURATION_SECONDS", "MERGE_POLICY", "HEURISTIC_TERMS", "TITLE_PROMPT_CHARS",
	"EMBEDDING_CACHE", "EMBEDDING_CACHE_PATH", "CHARM_HOST", "CHARM_DB", "CHARM_AUTO_SYNC",
}

// isolateEnv blanks every variable config.Load reads; empty counts as unset
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range chapterizeEnv {
		t.Setenv(k, "")
	}
}

// fakeLLM serves /v1/embeddings and /v1/chat/completions. Texts mentioning
// alpha embed along one axis, everything else along another.
type fakeLLM struct {
	server     *httptest.Server
	embedCalls atomic.Int32
	chatCalls  atomic.Int32
	failEmbed  bool
}

func newFakeLLM(t *testing.T) *fakeLLM {
	t.Helper()
	f := &fakeLLM{}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	t.Setenv("LLM_BASE_URL", f.server.URL+"/v1")
	t.Setenv("EMBED_RETRY_DELAY", "1ms")
	return f
}

func (f *fakeLLM) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/embeddings"):
		f.embedCalls.Add(1)
		if f.failEmbed {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "model not loaded", "type": "invalid_request_error"},
			})
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			vec := []float64{0, 0.05, 1}
			if strings.Contains(text, "alpha") {
				vec = []float64{1, 0.05, 0}
			}
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": req.Model, "data": data})

	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		f.chatCalls.Add(1)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		title := "The Omega Topic"
		if n := len(req.Messages); n > 0 && strings.Contains(req.Messages[n-1].Content, "alpha") {
			title = "The Alpha Topic"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   "test",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": title}, "finish_reason": "stop"}},
		})

	default:
		http.NotFound(w, r)
	}
}

// writeTwoTopicTranscript writes ten fragments, the first five about alpha
func writeTwoTopicTranscript(t *testing.T) string {
	t.Helper()
	fragments := make([]map[string]any, 10)
	for i := range fragments {
		topic := "alpha"
		if i >= 5 {
			topic = "omega"
		}
		fragments[i] = map[string]any{
			"text":     fmt.Sprintf("Um, the %s topic continues in sentence %d.", topic, i),
			"start":    float64(i * 10),
			"duration": 8.0,
		}
	}
	data, err := json.Marshal(fragments)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "talk.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// executeRoot runs the root command with args and returns stdout, stderr and the error
func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// smallTalkFlags scales windows and chunk limits to the ten-fragment transcript
var smallTalkFlags = []string{
	"--threshold", "0.8",
	"--window", "20",
	"--stride", "10",
	"--min-chapter", "20",
	"--max-tokens", "40",
	"--overlap", "10",
}
