// ABOUTME: EmbeddingAdapter turns paragraphs into vectors through a pluggable backend
// ABOUTME: Batches run concurrently with per-attempt timeouts and transient retries
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/models"
	"github.com/harper/chapterize/internal/util"
	"golang.org/x/sync/errgroup"
)

// TextEmbedder maps texts to fixed-dimension vectors, one per input, in order
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbeddingConfig holds batching and retry knobs for the adapter
type EmbeddingConfig struct {
	BatchSize   int
	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

// EmbeddingAdapter embeds paragraphs in batches
type EmbeddingAdapter struct {
	embedder TextEmbedder
	cfg      EmbeddingConfig
	logger   *log.Logger
}

// NewEmbeddingAdapter creates an adapter over embedder
func NewEmbeddingAdapter(embedder TextEmbedder, cfg EmbeddingConfig, logger *log.Logger) *EmbeddingAdapter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &EmbeddingAdapter{embedder: embedder, cfg: cfg, logger: orDiscard(logger)}
}

// Embed returns one embedding per paragraph in paragraph order. Any batch
// that cannot be embedded fails the whole call with ErrEmbeddingUnavailable.
func (a *EmbeddingAdapter) Embed(ctx context.Context, paragraphs []models.Paragraph) ([]models.ParagraphEmbedding, error) {
	if len(paragraphs) == 0 {
		return nil, ErrEmptyTranscript
	}
	if a.embedder == nil {
		return nil, paragraphSpanError("embed", paragraphs,
			fmt.Errorf("%w: no embedding backend configured", ErrEmbeddingUnavailable))
	}

	results := make([]models.ParagraphEmbedding, len(paragraphs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)

	for start := 0; start < len(paragraphs); start += a.cfg.BatchSize {
		end := min(start+a.cfg.BatchSize, len(paragraphs))
		batch := paragraphs[start:end]
		offset := start

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts := make([]string, len(batch))
			for i, p := range batch {
				texts[i] = p.Text
			}

			vectors, err := a.embedBatch(gctx, texts)
			if err != nil {
				a.logger.Error("embedding batch failed",
					"first", batch[0].Index, "last", batch[len(batch)-1].Index, "error", err)
				return paragraphSpanError("embed", batch, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err))
			}

			for i, v := range vectors {
				results[offset+i] = models.ParagraphEmbedding{ParagraphIndex: batch[i].Index, Vector: v}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var se *StageError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, paragraphSpanError("embed", paragraphs, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err))
	}

	// Dimensions must agree across batches, not only within one
	dim := len(results[0].Vector)
	for i, e := range results {
		if err := e.ValidateDimension(dim); err != nil {
			return nil, paragraphSpanError("embed", paragraphs[i:i+1], fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err))
		}
	}

	a.logger.Debug("embedded paragraphs", "paragraphs", len(paragraphs), "dimension", dim)
	return results, nil
}

func (a *EmbeddingAdapter) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error

	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(a.cfg.RetryDelay, attempt)); err != nil {
				return nil, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}

		vectors, err := a.callOnce(ctx, texts)
		if err == nil {
			if err := checkBatch(vectors, len(texts)); err != nil {
				return nil, err
			}
			return vectors, nil
		}

		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if ctx.Err() != nil || !util.IsTransient(err) {
			return nil, lastErr
		}
		a.logger.Warn("embedding attempt failed", "attempt", attempt+1, "texts", len(texts), "error", err)
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", a.cfg.MaxRetries+1, lastErr)
}

func (a *EmbeddingAdapter) callOnce(ctx context.Context, texts []string) ([][]float64, error) {
	if a.cfg.Timeout <= 0 {
		return a.embedder.EmbedTexts(ctx, texts)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	vectors, err := a.embedder.EmbedTexts(attemptCtx, texts)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		// Backends do not always surface the deadline in their own error
		return nil, fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return vectors, err
}

func checkBatch(vectors [][]float64, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("backend returned %d vectors for %d texts", len(vectors), want)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("vector %d is empty", i)
		}
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}
