// ABOUTME: Error kinds shared by every stage of the chaptering pipeline
// ABOUTME: StageError locates a failure by paragraph index and time range
package core

import (
	"errors"
	"fmt"

	"github.com/harper/chapterize/internal/models"
)

var (
	// ErrEmptyTranscript is returned when there is nothing to segment
	ErrEmptyTranscript = errors.New("empty transcript")
	// ErrInvalidTranscript is returned for malformed fragment input
	ErrInvalidTranscript = errors.New("invalid transcript")
	// ErrInvalidConfiguration is returned for out-of-range settings or mismatched inputs
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrEmbeddingUnavailable is returned when embeddings cannot be obtained
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrTitleCapability marks a failed title call; it is recovered locally
	ErrTitleCapability = errors.New("title capability failed")
	// ErrCoverage is re-exported for callers that only import core
	ErrCoverage = models.ErrCoverage
)

// StageError ties a failure to the stage and the transcript span it affected
type StageError struct {
	Stage      string
	FirstIndex int
	LastIndex  int
	Start      float64
	End        float64
	Err        error
}

func (e *StageError) Error() string {
	if e.FirstIndex == e.LastIndex {
		return fmt.Sprintf("%s: item %d (%.2fs-%.2fs): %v", e.Stage, e.FirstIndex, e.Start, e.End, e.Err)
	}
	return fmt.Sprintf("%s: items %d-%d (%.2fs-%.2fs): %v",
		e.Stage, e.FirstIndex, e.LastIndex, e.Start, e.End, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func paragraphSpanError(stage string, paragraphs []models.Paragraph, err error) *StageError {
	se := &StageError{Stage: stage, Err: err}
	if len(paragraphs) == 0 {
		return se
	}
	first, last := paragraphs[0], paragraphs[len(paragraphs)-1]
	se.FirstIndex, se.LastIndex = first.Index, last.Index
	se.Start, se.End = first.Start, last.End
	return se
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
