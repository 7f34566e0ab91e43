// ABOUTME: TitleGenerator names chapters via an external capability with a heuristic fallback
// ABOUTME: Calls fan out with bounded concurrency and never fail the run
package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/models"
	"golang.org/x/sync/errgroup"
)

// TitlePrompt is sent ahead of the chapter text
const TitlePrompt = "Provide a 3-6 word title capturing the main idea of the following transcript paragraphs."

const maxTitleRunes = 80

// TitleCapability produces text for a prompt, typically an LLM
type TitleCapability interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TitleConfig holds title generation knobs
type TitleConfig struct {
	Timeout        time.Duration
	Concurrency    int
	PromptChars    int
	HeuristicTerms int
}

// TitleGenerator assigns a title to every chapter
type TitleGenerator struct {
	capability TitleCapability
	cfg        TitleConfig
	logger     *log.Logger
}

// NewTitleGenerator creates a generator. A nil capability means every
// chapter gets a heuristic title.
func NewTitleGenerator(capability TitleCapability, cfg TitleConfig, logger *log.Logger) *TitleGenerator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PromptChars <= 0 {
		cfg.PromptChars = 4000
	}
	if cfg.HeuristicTerms <= 0 {
		cfg.HeuristicTerms = 3
	}
	return &TitleGenerator{capability: capability, cfg: cfg, logger: orDiscard(logger)}
}

// AssignTitles returns a copy of chapters with Title and TitleSource set.
// Capability failures fall back to the heuristic for that chapter only.
func (g *TitleGenerator) AssignTitles(ctx context.Context, chapters []models.Chapter, paragraphs []models.Paragraph) []models.Chapter {
	out := slices.Clone(chapters)
	if len(out) == 0 {
		return out
	}

	corpus := newTermStats()
	for _, p := range paragraphs {
		corpus.add(p.Text)
	}

	var eg errgroup.Group
	eg.SetLimit(g.cfg.Concurrency)

	for i := range out {
		eg.Go(func() error {
			title, source := g.titleFor(ctx, out[i], paragraphs, corpus)
			out[i].Title = title
			out[i].TitleSource = source
			return nil
		})
	}
	_ = eg.Wait()

	return out
}

func (g *TitleGenerator) titleFor(ctx context.Context, ch models.Chapter, paragraphs []models.Paragraph, corpus termStats) (string, models.TitleSource) {
	text := chapterText(ch, paragraphs)

	if g.capability != nil {
		title, err := g.callCapability(ctx, text)
		if err == nil {
			return title, models.TitleFromCapability
		}
		g.logger.Warn("title capability failed, using heuristic",
			"chapter", ch.Index, "start", ch.Start, "end", ch.End,
			"error", fmt.Errorf("%w: %w", ErrTitleCapability, err))
	}

	return g.heuristicTitle(ch, text, corpus), models.TitleFromHeuristic
}

func (g *TitleGenerator) callCapability(ctx context.Context, text string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	prompt := TitlePrompt + "\n---\n" + truncateRunes(text, g.cfg.PromptChars)

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := g.capability.Generate(ctx, prompt)
		done <- result{raw, err}
	}()

	// A capability that ignores ctx must not stall the chapter
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		title := CleanTitle(r.text)
		if title == "" {
			return "", errors.New("empty title")
		}
		return title, nil
	}
}

func (g *TitleGenerator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.Timeout)
}

func (g *TitleGenerator) heuristicTitle(ch models.Chapter, text string, corpus termStats) string {
	local := newTermStats()
	local.add(text)

	terms := salientTerms(local, corpus, g.cfg.HeuristicTerms)
	if len(terms) == 0 {
		return fmt.Sprintf("Chapter %d", ch.Index+1)
	}
	return titleCase(terms)
}

func chapterText(ch models.Chapter, paragraphs []models.Paragraph) string {
	start := max(ch.StartParagraph, 0)
	end := min(ch.EndParagraph, len(paragraphs)-1)
	if start > end {
		return ""
	}
	texts := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		texts = append(texts, paragraphs[i].Text)
	}
	return strings.Join(texts, "\n\n")
}

// CleanTitle reduces a model response to a single bare title line
func CleanTitle(raw string) string {
	var line string
	for _, l := range strings.Split(raw, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.TrimLeft(line, "# ")
	if len(line) >= 6 && strings.EqualFold(line[:6], "title:") {
		line = strings.TrimSpace(line[6:])
	}
	line = strings.Trim(line, "\"'*`“”‘’ ")
	line = strings.TrimRight(line, ". ")
	line = strings.Trim(line, "\"'*`“”‘’ ")

	if utf8.RuneCountInString(line) > maxTitleRunes {
		line = strings.TrimSpace(truncateRunes(line, maxTitleRunes))
	}
	return line
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
