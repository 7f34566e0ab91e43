// ABOUTME: Chapter is a contiguous, titled range of paragraphs
// ABOUTME: Includes the coverage check every chapter list must satisfy
package models

import (
	"errors"
	"fmt"
)

// ErrCoverage is returned when chapters or chunks do not partition the paragraphs
var ErrCoverage = errors.New("coverage violated")

// TitleSource records where a chapter title came from
type TitleSource string

const (
	TitleFromCapability TitleSource = "capability"
	TitleFromHeuristic  TitleSource = "heuristic"
)

// IsValid reports whether the source is one of the known title sources
func (s TitleSource) IsValid() bool {
	switch s {
	case TitleFromCapability, TitleFromHeuristic:
		return true
	default:
		return false
	}
}

// Chapter is one topical segment of the transcript. StartParagraph and
// EndParagraph are both inclusive.
type Chapter struct {
	Index          int         `json:"index" yaml:"index"`
	StartParagraph int         `json:"start_paragraph" yaml:"start_paragraph"`
	EndParagraph   int         `json:"end_paragraph" yaml:"end_paragraph"`
	Start          float64     `json:"start" yaml:"start"`
	End            float64     `json:"end" yaml:"end"`
	Title          string      `json:"title,omitempty" yaml:"title,omitempty"`
	TitleSource    TitleSource `json:"title_source,omitempty" yaml:"title_source,omitempty"`
}

// Len returns the number of paragraphs in the chapter
func (c Chapter) Len() int {
	return c.EndParagraph - c.StartParagraph + 1
}

// Contains reports whether paragraph index i belongs to the chapter
func (c Chapter) Contains(i int) bool {
	return i >= c.StartParagraph && i <= c.EndParagraph
}

// VerifyCoverage checks that chapters are ordered, contiguous, non-overlapping
// and jointly cover paragraphs 0..paragraphCount-1 exactly once.
func VerifyCoverage(chapters []Chapter, paragraphCount int) error {
	if paragraphCount == 0 {
		if len(chapters) != 0 {
			return fmt.Errorf("%w: %d chapters for an empty transcript", ErrCoverage, len(chapters))
		}
		return nil
	}
	if len(chapters) == 0 {
		return fmt.Errorf("%w: no chapters for %d paragraphs", ErrCoverage, paragraphCount)
	}

	next := 0
	for i, ch := range chapters {
		if ch.Index != i {
			return fmt.Errorf("%w: chapter at position %d has index %d", ErrCoverage, i, ch.Index)
		}
		if ch.StartParagraph != next {
			if ch.StartParagraph > next {
				return fmt.Errorf("%w: gap before chapter %d (paragraphs %d-%d unassigned)",
					ErrCoverage, i, next, ch.StartParagraph-1)
			}
			return fmt.Errorf("%w: chapter %d overlaps previous chapter at paragraph %d",
				ErrCoverage, i, ch.StartParagraph)
		}
		if ch.EndParagraph < ch.StartParagraph {
			return fmt.Errorf("%w: chapter %d is empty (%d-%d)", ErrCoverage, i, ch.StartParagraph, ch.EndParagraph)
		}
		next = ch.EndParagraph + 1
	}
	if next != paragraphCount {
		return fmt.Errorf("%w: chapters end at paragraph %d, transcript has %d",
			ErrCoverage, next-1, paragraphCount)
	}
	return nil
}
