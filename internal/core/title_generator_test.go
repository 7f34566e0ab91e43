// ABOUTME: Tests for TitleGenerator capability calls and heuristic fallback
// ABOUTME: Covers per-chapter timeouts, response cleanup and salient-term titles
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harper/chapterize/internal/models"
)

type stubTitler struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, prompt string) (string, error)
}

func (s *stubTitler) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.respond(ctx, prompt)
}

func threeChapterFixture() ([]models.Chapter, []models.Paragraph) {
	paragraphs := []models.Paragraph{
		{Index: 0, Text: "alpha particles and radiation", Start: 0, End: 10},
		{Index: 1, Text: "beta decay of neutrons", Start: 10, End: 20},
		{Index: 2, Text: "gamma rays from nuclei", Start: 20, End: 30},
	}
	chapters := []models.Chapter{
		{Index: 0, StartParagraph: 0, EndParagraph: 0, Start: 0, End: 10},
		{Index: 1, StartParagraph: 1, EndParagraph: 1, Start: 10, End: 20},
		{Index: 2, StartParagraph: 2, EndParagraph: 2, Start: 20, End: 30},
	}
	return chapters, paragraphs
}

func TestAssignTitles_TimeoutOnOneChapter(t *testing.T) {
	chapters, paragraphs := threeChapterFixture()
	titler := &stubTitler{respond: func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "beta") {
			<-ctx.Done()
			return "", ctx.Err()
		}
		if strings.Contains(prompt, "alpha") {
			return "Alpha Radiation Basics", nil
		}
		return "Gamma Ray Sources", nil
	}}

	gen := NewTitleGenerator(titler, TitleConfig{Timeout: 20 * time.Millisecond, Concurrency: 3}, nil)
	titled := gen.AssignTitles(context.Background(), chapters, paragraphs)

	if len(titled) != 3 {
		t.Fatalf("got %d chapters, want 3", len(titled))
	}
	if titled[0].Title != "Alpha Radiation Basics" || titled[0].TitleSource != models.TitleFromCapability {
		t.Errorf("chapter 0 = %q (%s)", titled[0].Title, titled[0].TitleSource)
	}
	if titled[2].Title != "Gamma Ray Sources" || titled[2].TitleSource != models.TitleFromCapability {
		t.Errorf("chapter 2 = %q (%s)", titled[2].Title, titled[2].TitleSource)
	}
	if titled[1].TitleSource != models.TitleFromHeuristic {
		t.Errorf("chapter 1 source = %s, want heuristic", titled[1].TitleSource)
	}
	if titled[1].Title != "Beta Decay Neutrons" {
		t.Errorf("chapter 1 title = %q, want %q", titled[1].Title, "Beta Decay Neutrons")
	}
}

func TestAssignTitles_CapabilityIgnoringContext(t *testing.T) {
	chapters, paragraphs := threeChapterFixture()
	release := make(chan struct{})
	defer close(release)

	titler := &stubTitler{respond: func(_ context.Context, _ string) (string, error) {
		<-release
		return "too late", nil
	}}

	gen := NewTitleGenerator(titler, TitleConfig{Timeout: 10 * time.Millisecond, Concurrency: 3}, nil)
	titled := gen.AssignTitles(context.Background(), chapters, paragraphs)

	for _, ch := range titled {
		if ch.TitleSource != models.TitleFromHeuristic {
			t.Errorf("chapter %d source = %s, want heuristic", ch.Index, ch.TitleSource)
		}
	}
}

func TestAssignTitles_FailuresFallBack(t *testing.T) {
	tests := []struct {
		name    string
		respond func(context.Context, string) (string, error)
	}{
		{"error", func(context.Context, string) (string, error) { return "", errors.New("connection refused") }},
		{"empty response", func(context.Context, string) (string, error) { return "  \n\n ", nil }},
		{"only decoration", func(context.Context, string) (string, error) { return "**\"\"**", nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chapters, paragraphs := threeChapterFixture()
			gen := NewTitleGenerator(&stubTitler{respond: tt.respond}, TitleConfig{Timeout: time.Second}, nil)

			for _, ch := range gen.AssignTitles(context.Background(), chapters, paragraphs) {
				if ch.TitleSource != models.TitleFromHeuristic || ch.Title == "" {
					t.Errorf("chapter %d = %q (%s), want heuristic title", ch.Index, ch.Title, ch.TitleSource)
				}
			}
		})
	}
}

func TestAssignTitles_NilCapability(t *testing.T) {
	chapters, paragraphs := threeChapterFixture()
	gen := NewTitleGenerator(nil, TitleConfig{}, nil)

	titled := gen.AssignTitles(context.Background(), chapters, paragraphs)
	want := []string{"Alpha Particles Radiation", "Beta Decay Neutrons", "Gamma Nuclei Rays"}
	for i, ch := range titled {
		if ch.Title != want[i] {
			t.Errorf("chapter %d title = %q, want %q", i, ch.Title, want[i])
		}
		if ch.TitleSource != models.TitleFromHeuristic {
			t.Errorf("chapter %d source = %s", i, ch.TitleSource)
		}
	}
}

func TestAssignTitles_DoesNotMutateInput(t *testing.T) {
	chapters, paragraphs := threeChapterFixture()
	gen := NewTitleGenerator(nil, TitleConfig{}, nil)

	_ = gen.AssignTitles(context.Background(), chapters, paragraphs)
	for i, ch := range chapters {
		if ch.Title != "" || ch.TitleSource != "" {
			t.Errorf("input chapter %d was modified: %+v", i, ch)
		}
	}
}

func TestAssignTitles_PromptTruncated(t *testing.T) {
	paragraphs := []models.Paragraph{{Index: 0, Text: strings.Repeat("lecture ", 2000), Start: 0, End: 600}}
	chapters := []models.Chapter{{Index: 0, StartParagraph: 0, EndParagraph: 0, Start: 0, End: 600}}
	titler := &stubTitler{respond: func(context.Context, string) (string, error) { return "Long Lecture", nil }}

	gen := NewTitleGenerator(titler, TitleConfig{PromptChars: 100, Timeout: time.Second}, nil)
	_ = gen.AssignTitles(context.Background(), chapters, paragraphs)

	if len(titler.prompts) != 1 {
		t.Fatalf("capability called %d times, want 1", len(titler.prompts))
	}
	prompt := titler.prompts[0]
	if !strings.HasPrefix(prompt, TitlePrompt+"\n---\n") {
		t.Errorf("prompt does not start with the title instruction: %q", prompt[:40])
	}
	if body := strings.TrimPrefix(prompt, TitlePrompt+"\n---\n"); len(body) != 100 {
		t.Errorf("prompt body has %d chars, want 100", len(body))
	}
}

func TestAssignTitles_AllStopwords(t *testing.T) {
	paragraphs := []models.Paragraph{{Index: 0, Text: "so and the of it is", Start: 0, End: 5}}
	chapters := []models.Chapter{{Index: 0, StartParagraph: 0, EndParagraph: 0, Start: 0, End: 5}}

	titled := NewTitleGenerator(nil, TitleConfig{}, nil).AssignTitles(context.Background(), chapters, paragraphs)
	if titled[0].Title != "Chapter 1" {
		t.Errorf("title = %q, want %q", titled[0].Title, "Chapter 1")
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Graph Search Basics", "Graph Search Basics"},
		{"first non-empty line", "\n\nIntro to Trees\nMore text", "Intro to Trees"},
		{"markdown heading", "## Dynamic Programming", "Dynamic Programming"},
		{"title prefix", "Title: Hash Tables", "Hash Tables"},
		{"quoted with period", "\"Sorting in Practice.\"", "Sorting in Practice"},
		{"bold", "**Greedy Choices**", "Greedy Choices"},
		{"empty", "   ", ""},
		{"capped length", strings.Repeat("x", 100), strings.Repeat("x", 80)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTitle(tt.raw); got != tt.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSalientTerms(t *testing.T) {
	chapter := newTermStats()
	chapter.add("Graphs connect vertices. Graphs have edges between vertices. graphs")
	corpus := newTermStats()
	corpus.add("Graphs connect vertices. Graphs have edges between vertices. graphs")
	corpus.add("Trees have roots and leaves. Trees grow.")

	got := salientTerms(chapter, corpus, 3)
	want := []string{"graphs", "vertices", "connect"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("salientTerms() = %v, want %v", got, want)
	}
	if title := titleCase(got); title != "Graphs Vertices Connect" {
		t.Errorf("titleCase() = %q", title)
	}
}
