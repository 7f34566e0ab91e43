// ABOUTME: CLI command that chapters a transcript file
// ABOUTME: Flags override config file and environment values for one run
package commands

import (
	"fmt"

	"github.com/harper/chapterize/internal/config"
	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/tokens"
	"github.com/harper/chapterize/internal/transcript"
	"github.com/spf13/cobra"
)

type runOptions struct {
	transcriptFormat string
	segmentOnly      bool
	noTitles         bool
	cache            string
	threshold        float64
	window           float64
	stride           float64
	minChapter       float64
	maxTokens        int
	overlap          int
	mergePolicy      string
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <transcript>",
		Short: "Chapter a transcript file",
		Long: `Chapter a .json or .srt transcript.

JSON transcripts are arrays of {"text", "start", "duration"} objects with
times in seconds. SRT files are read cue by cue.

When the embedding service fails, paragraphs and chunks are still printed
and the command exits with an error.

Examples:
  chapterize run talk.srt
  chapterize run talk.json --format json
  chapterize run talk.srt --threshold 0.65 --min-chapter 120
  chapterize run talk.srt --segment-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChapterize(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.transcriptFormat, "transcript-format", "", "Transcript format: json or srt (default: by extension)")
	flags.BoolVar(&opts.segmentOnly, "segment-only", false, "Only clean and chunk; skip embeddings and titles")
	flags.BoolVar(&opts.noTitles, "no-titles", false, "Use keyword titles instead of calling the title model")
	flags.StringVar(&opts.cache, "cache", "", "Embedding cache: none, sqlite or charm")
	flags.Float64Var(&opts.threshold, "threshold", 0, "Similarity threshold between -1 and 1")
	flags.Float64Var(&opts.window, "window", 0, "Window width in seconds")
	flags.Float64Var(&opts.stride, "stride", 0, "Window stride in seconds")
	flags.Float64Var(&opts.minChapter, "min-chapter", 0, "Minimum chapter duration in seconds")
	flags.IntVar(&opts.maxTokens, "max-tokens", 0, "Maximum tokens per chunk")
	flags.IntVar(&opts.overlap, "overlap", 0, "Overlap tokens between chunks")
	flags.StringVar(&opts.mergePolicy, "merge-policy", "", "max_chapters or strongest_first")

	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration
func (o *runOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("cache") {
		cfg.EmbeddingCache = o.cache
	}
	if flags.Changed("threshold") {
		cfg.SimilarityThreshold = o.threshold
	}
	if flags.Changed("window") {
		cfg.WindowSeconds = o.window
	}
	if flags.Changed("stride") {
		cfg.StrideSeconds = o.stride
	}
	if flags.Changed("min-chapter") {
		cfg.MinChapterDurationSeconds = o.minChapter
	}
	if flags.Changed("max-tokens") {
		cfg.ChunkMaxTokens = o.maxTokens
	}
	if flags.Changed("overlap") {
		cfg.ChunkOverlapTokens = o.overlap
	}
	if flags.Changed("merge-policy") {
		cfg.MergePolicy = o.mergePolicy
	}
}

func runChapterize(cmd *cobra.Command, path string, opts *runOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	format, err := transcript.ParseFormat(opts.transcriptFormat)
	if err != nil {
		return err
	}
	source := transcript.FileSource{Path: path, Format: format}

	logger := newLogger(cmd.ErrOrStderr())
	counter, err := tokens.Load(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("loading tokenizer: %w", err)
	}

	deps := core.Dependencies{Tokens: counter, Logger: logger}
	if !opts.segmentOnly {
		var closeFn func()
		deps, closeFn, err = buildCapabilities(cfg, deps, !opts.noTitles)
		if err != nil {
			return err
		}
		defer closeFn()
	}

	pipeline, err := core.NewPipeline(settings, deps)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var result *core.Result
	if opts.segmentOnly {
		fragments, ferr := source.Fragments(ctx)
		if ferr != nil {
			return ferr
		}
		result, err = pipeline.Segment(fragments)
	} else {
		result, err = pipeline.RunSource(ctx, source)
	}

	if result != nil {
		if werr := writeResult(cmd.OutOrStdout(), result, outputFormat); werr != nil {
			return werr
		}
	}
	return err
}
