// ABOUTME: ParagraphEmbedding ties one embedding vector to its paragraph
// ABOUTME: Lives only for the duration of a single pipeline run
package models

import "fmt"

// ParagraphEmbedding is the vector computed for one paragraph
type ParagraphEmbedding struct {
	ParagraphIndex int       `json:"paragraph_index"`
	Vector         []float64 `json:"vector"`
}

// ValidateDimension checks the vector is non-empty and has the expected length
func (e ParagraphEmbedding) ValidateDimension(expected int) error {
	if len(e.Vector) == 0 {
		return fmt.Errorf("embedding for paragraph %d: vector cannot be empty", e.ParagraphIndex)
	}
	if len(e.Vector) != expected {
		return fmt.Errorf("embedding for paragraph %d: dimension mismatch: expected %d, got %d",
			e.ParagraphIndex, expected, len(e.Vector))
	}
	return nil
}
