// ABOUTME: Shared helpers for CLI commands
// ABOUTME: Config loading, logger setup, capability wiring and result rendering
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/config"
	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/llm"
	"github.com/harper/chapterize/internal/storage"
	"gopkg.in/yaml.v3"
)

// loadConfig reads --config (if set) and the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger honoring --verbose and --quiet
func newLogger(w io.Writer) *log.Logger {
	level := log.InfoLevel
	switch {
	case verbose:
		level = log.DebugLevel
	case quiet:
		level = log.ErrorLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "chapterize",
	})
}

// buildCapabilities attaches the embedder (behind the optional cache) and the
// title generator to deps. The returned close func releases the cache.
func buildCapabilities(cfg *config.Config, deps core.Dependencies, titles bool) (core.Dependencies, func(), error) {
	backends, err := llm.NewBackends(cfg.Provider, cfg.ClientConfig())
	if err != nil {
		return deps, nil, fmt.Errorf("initializing %s backend: %w", cfg.Provider, err)
	}

	store, err := storage.Open(cfg.CacheOptions())
	if err != nil {
		return deps, nil, err
	}

	embedder := storage.NewCachedEmbedder(backends.Embeddings, store, backends.Embeddings.EmbeddingModel(), deps.Logger)
	deps.Embedder = embedder
	if titles {
		deps.Titler = backends.Titles
	}

	closeFn := func() {
		if err := embedder.Close(); err != nil && deps.Logger != nil {
			deps.Logger.Warn("closing embedding cache", "error", err)
		}
	}
	return deps, closeFn, nil
}

// writeResult renders a pipeline result in the selected --format
func writeResult(w io.Writer, result *core.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	default:
		return writeText(w, result)
	}
}

func writeText(w io.Writer, result *core.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(result.Chapters) > 0 {
		fmt.Fprintf(tw, "START\tEND\tPARAGRAPHS\tTITLE\n")
		fmt.Fprintf(tw, "-----\t---\t----------\t-----\n")
		for _, ch := range result.Chapters {
			fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%s\n",
				formatTimestamp(ch.Start),
				formatTimestamp(ch.End),
				ch.StartParagraph, ch.EndParagraph,
				truncate(ch.Title, 60))
		}
	} else {
		fmt.Fprintf(tw, "CHUNK\tSTART\tEND\tTOKENS\tPARAGRAPHS\n")
		fmt.Fprintf(tw, "-----\t-----\t---\t------\t----------\n")
		for _, c := range result.Chunks {
			tokens := fmt.Sprintf("%d", c.TokenCount)
			if c.Oversized {
				tokens += "!"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				c.Index,
				formatTimestamp(c.Start),
				formatTimestamp(c.End),
				tokens,
				paragraphRange(c.ParagraphIndices))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !quiet {
		fmt.Fprintf(w, "\n%d paragraph(s), %d chunk(s), %d chapter(s)\n",
			len(result.Paragraphs), len(result.Chunks), len(result.Chapters))
	}
	return nil
}

func paragraphRange(indices []int) string {
	if len(indices) == 0 {
		return "-"
	}
	return fmt.Sprintf("%d-%d", indices[0], indices[len(indices)-1])
}

// formatTimestamp renders seconds as HH:MM:SS
func formatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
