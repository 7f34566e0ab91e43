// ABOUTME: Tests for EmbeddingAdapter batching, retries and failure reporting
// ABOUTME: Uses stub backends to simulate transient, permanent and malformed responses
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harper/chapterize/internal/models"
	"github.com/harper/chapterize/internal/util"
)

// stubEmbedder returns [len(text), 1] for each text unless fail says otherwise
type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  func(call int, texts []string) error
	dims  func(text string) int
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.fail != nil {
		if err := s.fail(call, texts); err != nil {
			return nil, err
		}
	}

	out := make([][]float64, len(texts))
	for i, t := range texts {
		dim := 2
		if s.dims != nil {
			dim = s.dims(t)
		}
		v := make([]float64, dim)
		if dim == 0 {
			out[i] = v
			continue
		}
		v[0] = float64(len(t))
		for j := 1; j < dim; j++ {
			v[j] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func textParagraphs(n int) []models.Paragraph {
	paragraphs := make([]models.Paragraph, n)
	for i := range paragraphs {
		paragraphs[i] = models.Paragraph{
			Index: i,
			Text:  fmt.Sprintf("%0*d", i+1, 0),
			Start: float64(i * 10),
			End:   float64(i*10 + 10),
		}
	}
	return paragraphs
}

func fastEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		BatchSize:   2,
		Concurrency: 3,
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		Timeout:     time.Second,
	}
}

func TestEmbed_PreservesOrder(t *testing.T) {
	stub := &stubEmbedder{}
	adapter := NewEmbeddingAdapter(stub, fastEmbeddingConfig(), nil)
	paragraphs := textParagraphs(7)

	embeddings, err := adapter.Embed(context.Background(), paragraphs)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(embeddings) != 7 {
		t.Fatalf("got %d embeddings, want 7", len(embeddings))
	}
	for i, e := range embeddings {
		if e.ParagraphIndex != i {
			t.Errorf("embedding %d has paragraph index %d", i, e.ParagraphIndex)
		}
		if e.Vector[0] != float64(i+1) {
			t.Errorf("embedding %d vector = %v, want first component %d", i, e.Vector, i+1)
		}
	}
	if got := stub.callCount(); got != 4 {
		t.Errorf("backend called %d times, want 4 batches", got)
	}
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	stub := &stubEmbedder{
		fail: func(call int, _ []string) error {
			if call <= 2 {
				return util.MarkTransient(errors.New("503 service unavailable"))
			}
			return nil
		},
	}
	cfg := fastEmbeddingConfig()
	cfg.BatchSize = 10
	adapter := NewEmbeddingAdapter(stub, cfg, nil)

	embeddings, err := adapter.Embed(context.Background(), textParagraphs(3))
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(embeddings) != 3 {
		t.Errorf("got %d embeddings, want 3", len(embeddings))
	}
	if got := stub.callCount(); got != 3 {
		t.Errorf("backend called %d times, want 3", got)
	}
}

func TestEmbed_PermanentFailureStopsImmediately(t *testing.T) {
	stub := &stubEmbedder{
		fail: func(_ int, texts []string) error {
			if texts[0] == "000" {
				return errors.New("401 unauthorized")
			}
			return nil
		},
	}
	cfg := fastEmbeddingConfig()
	cfg.Concurrency = 1
	adapter := NewEmbeddingAdapter(stub, cfg, nil)

	embeddings, err := adapter.Embed(context.Background(), textParagraphs(6))
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("Embed() error = %v, want ErrEmbeddingUnavailable", err)
	}
	if embeddings != nil {
		t.Error("expected nil embeddings on failure")
	}

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("error %T is not a *StageError", err)
	}
	if se.Stage != "embed" || se.FirstIndex != 2 || se.LastIndex != 3 {
		t.Errorf("StageError = %+v, want embed paragraphs 2-3", se)
	}
	if se.Start != 20 || se.End != 40 {
		t.Errorf("StageError time range = %v-%v, want 20-40", se.Start, se.End)
	}
	if got := stub.callCount(); got != 2 {
		t.Errorf("backend called %d times, want 2 (no retries for permanent errors)", got)
	}
}

func TestEmbed_TimeoutExhaustsRetries(t *testing.T) {
	stub := &stubEmbedder{
		fail: func(_ int, _ []string) error {
			time.Sleep(50 * time.Millisecond)
			return errors.New("request aborted")
		},
	}
	cfg := fastEmbeddingConfig()
	cfg.BatchSize = 10
	cfg.MaxRetries = 1
	cfg.Timeout = 5 * time.Millisecond
	adapter := NewEmbeddingAdapter(stub, cfg, nil)

	_, err := adapter.Embed(context.Background(), textParagraphs(2))
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("Embed() error = %v, want ErrEmbeddingUnavailable", err)
	}
	if got := stub.callCount(); got != 2 {
		t.Errorf("backend called %d times, want 2", got)
	}
}

func TestEmbed_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		stub *stubEmbedder
	}{
		{"empty vector", &stubEmbedder{dims: func(string) int { return 0 }}},
		{"dimension differs across batches", &stubEmbedder{dims: func(text string) int {
			if len(text) > 4 {
				return 3
			}
			return 2
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := NewEmbeddingAdapter(tt.stub, fastEmbeddingConfig(), nil)
			_, err := adapter.Embed(context.Background(), textParagraphs(6))
			if !errors.Is(err, ErrEmbeddingUnavailable) {
				t.Errorf("Embed() error = %v, want ErrEmbeddingUnavailable", err)
			}
		})
	}
}

type countingEmbedder struct{ n int }

func (c countingEmbedder) EmbedTexts(_ context.Context, _ []string) ([][]float64, error) {
	out := make([][]float64, c.n)
	for i := range out {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

func TestEmbed_WrongVectorCountIsPermanent(t *testing.T) {
	adapter := NewEmbeddingAdapter(countingEmbedder{n: 1}, fastEmbeddingConfig(), nil)
	_, err := adapter.Embed(context.Background(), textParagraphs(4))
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("Embed() error = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestEmbed_NoBackend(t *testing.T) {
	adapter := NewEmbeddingAdapter(nil, fastEmbeddingConfig(), nil)
	_, err := adapter.Embed(context.Background(), textParagraphs(2))
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Errorf("Embed() error = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestEmbed_Empty(t *testing.T) {
	adapter := NewEmbeddingAdapter(&stubEmbedder{}, fastEmbeddingConfig(), nil)
	if _, err := adapter.Embed(context.Background(), nil); !errors.Is(err, ErrEmptyTranscript) {
		t.Errorf("Embed(nil) error = %v, want ErrEmptyTranscript", err)
	}
}
