// ABOUTME: Chunk represents a token-bounded group of paragraphs for drafting
// ABOUTME: Consecutive chunks may share leading/trailing paragraphs as overlap
package models

import "fmt"

// Chunk is a group of consecutive paragraphs sized for one LLM call
type Chunk struct {
	Index            int     `json:"index" yaml:"index"`
	ParagraphIndices []int   `json:"paragraph_indices" yaml:"paragraph_indices"`
	Text             string  `json:"text" yaml:"text"`
	TokenCount       int     `json:"token_count" yaml:"token_count"`
	Start            float64 `json:"start" yaml:"start"`
	End              float64 `json:"end" yaml:"end"`

	// Overlap is how many leading paragraphs are shared with the previous chunk
	Overlap int `json:"overlap" yaml:"overlap"`

	// Oversized is set when a single paragraph alone exceeds the token limit
	Oversized bool `json:"oversized,omitempty" yaml:"oversized,omitempty"`
}

// NewParagraphs returns the paragraph indices not shared with the previous chunk
func (c Chunk) NewParagraphs() []int {
	if c.Overlap >= len(c.ParagraphIndices) {
		return nil
	}
	return c.ParagraphIndices[c.Overlap:]
}

// VerifyChunkCoverage checks that the non-overlapping part of every chunk,
// read in order, is exactly 0..paragraphCount-1.
func VerifyChunkCoverage(chunks []Chunk, paragraphCount int) error {
	next := 0
	for _, c := range chunks {
		for _, idx := range c.NewParagraphs() {
			if idx != next {
				return fmt.Errorf("%w: chunk %d holds paragraph %d, want %d", ErrCoverage, c.Index, idx, next)
			}
			next++
		}
	}
	if next != paragraphCount {
		return fmt.Errorf("%w: chunks cover %d of %d paragraphs", ErrCoverage, next, paragraphCount)
	}
	return nil
}
