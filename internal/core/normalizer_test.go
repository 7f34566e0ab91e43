// ABOUTME: Tests for the Normalizer cleaning and merge rules
// ABOUTME: Covers empty input, malformed times, gap merging and sentence boundaries
package core

import (
	"errors"
	"math"
	"testing"

	"github.com/harper/chapterize/internal/models"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Graphs have vertices and edges.", "Graphs have vertices and edges."},
		{"collapses whitespace", "  graphs \t have\n edges ", "graphs have edges"},
		{"strips fillers", "Um, so we, uh, start here", "so we, start here"},
		{"keeps words containing fillers", "the umbrella was erratic", "the umbrella was erratic"},
		{"strips bracketed annotation", "[Music] welcome back [Applause]", "welcome back"},
		{"strips paren annotation", "that was funny (laughs) anyway", "that was funny anyway"},
		{"keeps other parentheses", "the root (or source) node", "the root (or source) node"},
		{"strips bracketed timecode", "[00:12] first point", "first point"},
		{"strips dashed timecode", "01:02:03 - second point", "second point"},
		{"keeps decimals", "pi is 3.14 roughly", "pi is 3.14 roughly"},
		{"space before punctuation", "hello , world !", "hello, world!"},
		{"repeated commas", "so,, um, then", "so, then"},
		{"only filler", "uh um hmm", ""},
		{"long hum is filler", "mmm, okay then", "okay then"},
		{"keeps unit mm", "use a 5 mm drill bit and a 10 mm socket", "use a 5 mm drill bit and a 10 mm socket"},
		{"keeps er and ah words", "the Er ion and the ah ha moment", "the Er ion and the ah ha moment"},
		{"keeps index brackets", "index a[0] then b[i]", "index a[0] then b[i]"},
		{"strips annotation mid sentence", "and then [crosstalk] we stopped", "and then we stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5}, nil)

	tests := []struct {
		name      string
		fragments []models.Fragment
	}{
		{"nil input", nil},
		{"only noise", []models.Fragment{
			{Text: "[Music]", Start: 0, Duration: 2},
			{Text: "um", Start: 2, Duration: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.fragments)
			if !errors.Is(err, ErrEmptyTranscript) {
				t.Errorf("Normalize() error = %v, want ErrEmptyTranscript", err)
			}
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5}, nil)

	tests := []struct {
		name      string
		fragments []models.Fragment
		wantIndex int
	}{
		{"NaN start", []models.Fragment{{Text: "a", Start: math.NaN(), Duration: 1}}, 0},
		{"negative duration", []models.Fragment{{Text: "a", Start: 0, Duration: 1}, {Text: "b", Start: 1, Duration: -1}}, 1},
		{"negative start", []models.Fragment{{Text: "a", Start: -2, Duration: 1}}, 0},
		{"decreasing start", []models.Fragment{
			{Text: "a", Start: 5, Duration: 1},
			{Text: "b", Start: 6, Duration: 1},
			{Text: "c", Start: 4, Duration: 1},
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.fragments)
			if !errors.Is(err, ErrInvalidTranscript) {
				t.Fatalf("Normalize() error = %v, want ErrInvalidTranscript", err)
			}
			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("Normalize() error = %T, want *StageError", err)
			}
			if se.FirstIndex != tt.wantIndex {
				t.Errorf("StageError index = %d, want %d", se.FirstIndex, tt.wantIndex)
			}
		})
	}
}

func TestNormalize_MergesUntilSentenceBoundary(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5, ParagraphMinWords: 5}, nil)

	fragments := []models.Fragment{
		{Text: "so today we talk", Start: 0, Duration: 2},
		{Text: "about graphs.", Start: 2, Duration: 2},
		{Text: "Next topic is trees.", Start: 4.2, Duration: 2},
	}

	paragraphs, err := n.Normalize(fragments)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(paragraphs) != 2 {
		t.Fatalf("got %d paragraphs, want 2: %+v", len(paragraphs), paragraphs)
	}
	if paragraphs[0].Text != "so today we talk about graphs." {
		t.Errorf("paragraph 0 text = %q", paragraphs[0].Text)
	}
	if paragraphs[0].FragmentStart != 0 || paragraphs[0].FragmentEnd != 2 {
		t.Errorf("paragraph 0 fragments = [%d,%d), want [0,2)", paragraphs[0].FragmentStart, paragraphs[0].FragmentEnd)
	}
	if paragraphs[1].Index != 1 || paragraphs[1].Start != 4.2 {
		t.Errorf("paragraph 1 = %+v", paragraphs[1])
	}
}

func TestNormalize_ShortSentenceKeepsMerging(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5, ParagraphMinWords: 10}, nil)

	fragments := []models.Fragment{
		{Text: "Okay.", Start: 0, Duration: 1},
		{Text: "Let's begin.", Start: 1, Duration: 1},
	}

	paragraphs, err := n.Normalize(fragments)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(paragraphs) != 1 {
		t.Fatalf("got %d paragraphs, want 1", len(paragraphs))
	}
	if paragraphs[0].Text != "Okay. Let's begin." {
		t.Errorf("text = %q", paragraphs[0].Text)
	}
}

func TestNormalize_GapSplits(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5, ParagraphMinWords: 100}, nil)

	fragments := []models.Fragment{
		{Text: "first thought", Start: 0, Duration: 2},
		{Text: "still first", Start: 3, Duration: 2},
		{Text: "after a pause", Start: 6.5, Duration: 2},
	}

	paragraphs, err := n.Normalize(fragments)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(paragraphs) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paragraphs))
	}
	if paragraphs[0].End != 5 || paragraphs[1].Start != 6.5 {
		t.Errorf("paragraph times = %v-%v / %v-%v", paragraphs[0].Start, paragraphs[0].End, paragraphs[1].Start, paragraphs[1].End)
	}
}

func TestNormalize_MaxWordsForcesBoundary(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5, ParagraphMinWords: 100, ParagraphMaxWords: 4}, nil)

	fragments := []models.Fragment{
		{Text: "one two", Start: 0, Duration: 1},
		{Text: "three four", Start: 1, Duration: 1},
		{Text: "five six", Start: 2, Duration: 1},
	}

	paragraphs, err := n.Normalize(fragments)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(paragraphs) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paragraphs))
	}
	if paragraphs[0].Text != "one two three four" {
		t.Errorf("paragraph 0 text = %q", paragraphs[0].Text)
	}
}

func TestNormalize_TimesNeverOverlap(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5}, nil)

	fragments := []models.Fragment{
		{Text: "First sentence here.", Start: 0, Duration: 5},
		{Text: "Second one.", Start: 4, Duration: 3},
		{Text: "Instant.", Start: 10, Duration: 0},
	}

	paragraphs, err := n.Normalize(fragments)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(paragraphs) != 3 {
		t.Fatalf("got %d paragraphs, want 3", len(paragraphs))
	}
	if paragraphs[1].Start != 5 {
		t.Errorf("paragraph 1 start = %v, want clamped to 5", paragraphs[1].Start)
	}
	for i, p := range paragraphs {
		if p.End <= p.Start {
			t.Errorf("paragraph %d: end %v <= start %v", i, p.End, p.Start)
		}
		if p.Index != i {
			t.Errorf("paragraph %d has index %d", i, p.Index)
		}
		if i > 0 && p.Start < paragraphs[i-1].End {
			t.Errorf("paragraph %d overlaps previous", i)
		}
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{MergeGapToleranceSeconds: 1.5, ParagraphMinWords: 3}, nil)
	fragments := []models.Fragment{
		{Text: "a b c.", Start: 0, Duration: 1},
		{Text: "d e", Start: 1, Duration: 1},
		{Text: "f.", Start: 2, Duration: 1},
	}

	first, err := n.Normalize(fragments)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, _ := n.Normalize(fragments)
	if len(first) != len(second) {
		t.Fatalf("runs disagree: %d vs %d paragraphs", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("paragraph %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
