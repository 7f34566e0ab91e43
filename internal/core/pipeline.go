// ABOUTME: Pipeline wires normalization, chunking, embedding, detection and titling
// ABOUTME: Settings are validated once at construction; each Run owns its own data
package core

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/harper/chapterize/internal/models"
	"github.com/harper/chapterize/internal/tokens"
)

// Settings are the numeric knobs of a pipeline
type Settings struct {
	MaxTokens                 int
	OverlapTokens             int
	MergeGapToleranceSeconds  float64
	ParagraphMinWords         int
	ParagraphMaxWords         int
	SimilarityThreshold       float64
	WindowSeconds             float64
	StrideSeconds             float64
	MinChapterDurationSeconds float64
	MergePolicy               MergePolicy
	Embedding                 EmbeddingConfig
	Titles                    TitleConfig
}

// DefaultSettings returns the tuned defaults
func DefaultSettings() Settings {
	return Settings{
		MaxTokens:                 1800,
		OverlapTokens:             200,
		MergeGapToleranceSeconds:  1.5,
		ParagraphMinWords:         30,
		ParagraphMaxWords:         250,
		SimilarityThreshold:       0.72,
		WindowSeconds:             180,
		StrideSeconds:             30,
		MinChapterDurationSeconds: 60,
		MergePolicy:               MergeMaxChapters,
		Embedding: EmbeddingConfig{
			BatchSize:   32,
			Concurrency: 4,
			MaxRetries:  3,
			RetryDelay:  2 * time.Second,
			Timeout:     60 * time.Second,
		},
		Titles: TitleConfig{
			Timeout:        60 * time.Second,
			Concurrency:    4,
			PromptChars:    4000,
			HeuristicTerms: 3,
		},
	}
}

// Validate checks every knob and reports the first invalid one
func (s Settings) Validate() error {
	if err := validateChunkLimits(s.MaxTokens, s.OverlapTokens); err != nil {
		return err
	}
	switch {
	case !(s.MergeGapToleranceSeconds >= 0) || math.IsInf(s.MergeGapToleranceSeconds, 0):
		return invalidConfig("merge gap tolerance must be a non-negative number, got %v", s.MergeGapToleranceSeconds)
	case s.ParagraphMinWords < 0:
		return invalidConfig("paragraph min words must not be negative, got %d", s.ParagraphMinWords)
	case s.ParagraphMaxWords < 0:
		return invalidConfig("paragraph max words must not be negative, got %d", s.ParagraphMaxWords)
	case s.Embedding.BatchSize <= 0:
		return invalidConfig("embedding batch size must be positive, got %d", s.Embedding.BatchSize)
	case s.Embedding.Concurrency <= 0:
		return invalidConfig("embedding concurrency must be positive, got %d", s.Embedding.Concurrency)
	case s.Embedding.MaxRetries < 0:
		return invalidConfig("embedding retries must not be negative, got %d", s.Embedding.MaxRetries)
	case s.Embedding.Timeout < 0 || s.Titles.Timeout < 0:
		return invalidConfig("timeouts must not be negative")
	case s.Titles.Concurrency <= 0:
		return invalidConfig("title concurrency must be positive, got %d", s.Titles.Concurrency)
	case s.Titles.PromptChars <= 0:
		return invalidConfig("title prompt chars must be positive, got %d", s.Titles.PromptChars)
	case s.Titles.HeuristicTerms <= 0:
		return invalidConfig("heuristic terms must be positive, got %d", s.Titles.HeuristicTerms)
	}
	return s.DetectParams().Validate()
}

// DetectParams extracts the boundary detector knobs
func (s Settings) DetectParams() DetectParams {
	return DetectParams{
		SimilarityThreshold:       s.SimilarityThreshold,
		WindowSeconds:             s.WindowSeconds,
		StrideSeconds:             s.StrideSeconds,
		MinChapterDurationSeconds: s.MinChapterDurationSeconds,
		MergePolicy:               s.MergePolicy,
	}
}

// TranscriptSource supplies the fragments of one transcript
type TranscriptSource interface {
	Fragments(ctx context.Context) ([]models.Fragment, error)
}

// Dependencies are the external capabilities a pipeline calls
type Dependencies struct {
	Embedder TextEmbedder
	Titler   TitleCapability // nil means heuristic titles only
	Tokens   tokens.Counter  // nil means the byte estimate
	Logger   *log.Logger
}

// Result is everything one run produces
type Result struct {
	RunID      string             `json:"run_id" yaml:"run_id"`
	Paragraphs []models.Paragraph `json:"paragraphs" yaml:"paragraphs"`
	Chunks     []models.Chunk     `json:"chunks" yaml:"chunks"`
	Chapters   []models.Chapter   `json:"chapters" yaml:"chapters"`
}

// Pipeline runs the chaptering engine end to end
type Pipeline struct {
	settings   Settings
	normalizer *Normalizer
	chunker    *ChunkEngine
	embedder   *EmbeddingAdapter
	detector   *BoundaryDetector
	titles     *TitleGenerator
	logger     *log.Logger
}

// NewPipeline validates settings and assembles the components
func NewPipeline(settings Settings, deps Dependencies) (*Pipeline, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.MergePolicy == "" {
		settings.MergePolicy = MergeMaxChapters
	}
	logger := orDiscard(deps.Logger)

	return &Pipeline{
		settings: settings,
		normalizer: NewNormalizer(NormalizerConfig{
			MergeGapToleranceSeconds: settings.MergeGapToleranceSeconds,
			ParagraphMinWords:        settings.ParagraphMinWords,
			ParagraphMaxWords:        settings.ParagraphMaxWords,
		}, logger),
		chunker:  NewChunkEngine(deps.Tokens, logger),
		embedder: NewEmbeddingAdapter(deps.Embedder, settings.Embedding, logger),
		detector: NewBoundaryDetector(logger),
		titles:   NewTitleGenerator(deps.Titler, settings.Titles, logger),
		logger:   logger,
	}, nil
}

// Settings returns the validated settings
func (p *Pipeline) Settings() Settings {
	return p.settings
}

// RunSource reads fragments from src and runs the pipeline. Errors from the
// source are returned unchanged.
func (p *Pipeline) RunSource(ctx context.Context, src TranscriptSource) (*Result, error) {
	fragments, err := src.Fragments(ctx)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, fragments)
}

// Segment normalizes and chunks fragments without calling any external capability
func (p *Pipeline) Segment(fragments []models.Fragment) (*Result, error) {
	runID := uuid.NewString()
	return p.segment(p.logger.With("run_id", runID), runID, fragments)
}

func (p *Pipeline) segment(logger *log.Logger, runID string, fragments []models.Fragment) (*Result, error) {
	paragraphs, err := p.normalizer.Normalize(fragments)
	if err != nil {
		logger.Error("normalization failed", "error", err)
		return nil, err
	}

	chunks, err := p.chunker.Chunk(paragraphs, p.settings.MaxTokens, p.settings.OverlapTokens)
	if err != nil {
		logger.Error("chunking failed", "error", err)
		return nil, err
	}

	logger.Info("segmented transcript", "fragments", len(fragments), "paragraphs", len(paragraphs), "chunks", len(chunks))
	return &Result{RunID: runID, Paragraphs: paragraphs, Chunks: chunks}, nil
}

// Run segments and chapters fragments. When embeddings are unavailable the
// result still carries paragraphs and chunks, alongside the error.
func (p *Pipeline) Run(ctx context.Context, fragments []models.Fragment) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	started := time.Now()

	result, err := p.segment(logger, runID, fragments)
	if err != nil {
		return nil, err
	}
	paragraphs := result.Paragraphs

	embeddings, err := p.embedder.Embed(ctx, paragraphs)
	if err != nil {
		logger.Error("chaptering skipped", "error", err)
		return result, err
	}

	chapters, err := p.detector.Detect(paragraphs, embeddings, p.settings.DetectParams())
	if err != nil {
		logger.Error("boundary detection failed", "error", err)
		return result, err
	}
	if err := models.VerifyCoverage(chapters, len(paragraphs)); err != nil {
		logger.Error("chapter coverage violated", "error", err)
		return result, err
	}

	result.Chapters = p.titles.AssignTitles(ctx, chapters, paragraphs)
	logger.Info("chaptered transcript", "chapters", len(result.Chapters), "elapsed", time.Since(started))
	return result, nil
}
