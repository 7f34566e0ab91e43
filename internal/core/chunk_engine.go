// ABOUTME: ChunkEngine groups paragraphs into token-bounded chunks for drafting
// ABOUTME: Consecutive chunks share a sliding window of trailing paragraphs
package core

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/models"
	"github.com/harper/chapterize/internal/tokens"
)

// ChunkEngine handles paragraph chunking
type ChunkEngine struct {
	counter tokens.Counter
	logger  *log.Logger
}

// NewChunkEngine creates a new ChunkEngine. A nil counter uses the byte estimate.
func NewChunkEngine(counter tokens.Counter, logger *log.Logger) *ChunkEngine {
	if counter == nil {
		counter = tokens.Estimator{}
	}
	return &ChunkEngine{counter: counter, logger: orDiscard(logger)}
}

// Chunk splits paragraphs into chunks of at most maxTokens, carrying up to
// overlapTokens worth of trailing paragraphs into the next chunk
func (ce *ChunkEngine) Chunk(paragraphs []models.Paragraph, maxTokens, overlapTokens int) ([]models.Chunk, error) {
	if err := validateChunkLimits(maxTokens, overlapTokens); err != nil {
		return nil, err
	}
	if len(paragraphs) == 0 {
		return nil, ErrEmptyTranscript
	}

	costs := make([]int, len(paragraphs))
	for i, p := range paragraphs {
		costs[i] = ce.counter.Count(p.Text)
	}

	var chunks []models.Chunk
	var current []int
	currentTokens := 0
	carried := 0

	emit := func(indices []int, overlap int, oversized bool) {
		chunks = append(chunks, buildChunk(len(chunks), paragraphs, costs, indices, overlap, oversized))
	}

	for i := range paragraphs {
		cost := costs[i]

		// A paragraph too large for any chunk stands alone
		if cost > maxTokens {
			if len(current) > carried {
				emit(current, carried, false)
			}
			emit([]int{i}, 0, true)
			ce.logger.Warn("paragraph exceeds chunk limit", "paragraph", i, "tokens", cost, "max_tokens", maxTokens)
			current, currentTokens, carried = nil, 0, 0
			continue
		}

		if currentTokens+cost > maxTokens {
			emit(current, carried, false)
			current, currentTokens = carryTail(current, costs, cost, maxTokens, overlapTokens)
			carried = len(current)
		}

		current = append(current, i)
		currentTokens += cost
	}
	if len(current) > carried {
		emit(current, carried, false)
	}

	ce.logger.Debug("chunked transcript", "paragraphs", len(paragraphs), "chunks", len(chunks))
	return chunks, nil
}

func validateChunkLimits(maxTokens, overlapTokens int) error {
	switch {
	case maxTokens <= 0:
		return invalidConfig("max tokens must be positive, got %d", maxTokens)
	case overlapTokens < 0:
		return invalidConfig("overlap tokens must not be negative, got %d", overlapTokens)
	case overlapTokens >= maxTokens:
		return invalidConfig("overlap tokens (%d) must be below max tokens (%d)", overlapTokens, maxTokens)
	}
	return nil
}

// carryTail picks the longest run of trailing paragraphs from a closed chunk
// that fits the overlap budget and still leaves room for the incoming paragraph
func carryTail(closed []int, costs []int, incoming, maxTokens, overlapTokens int) ([]int, int) {
	sum, k := 0, 0
	for j := len(closed) - 1; j >= 0; j-- {
		c := costs[closed[j]]
		if sum+c > overlapTokens || sum+c+incoming > maxTokens {
			break
		}
		sum += c
		k++
	}
	tail := make([]int, k, k+1)
	copy(tail, closed[len(closed)-k:])
	return tail, sum
}

func buildChunk(index int, paragraphs []models.Paragraph, costs []int, indices []int, overlap int, oversized bool) models.Chunk {
	texts := make([]string, len(indices))
	total := 0
	for n, idx := range indices {
		texts[n] = paragraphs[idx].Text
		total += costs[idx]
	}
	owned := make([]int, len(indices))
	copy(owned, indices)

	return models.Chunk{
		Index:            index,
		ParagraphIndices: owned,
		Text:             strings.Join(texts, "\n\n"),
		TokenCount:       total,
		Start:            paragraphs[indices[0]].Start,
		End:              paragraphs[indices[len(indices)-1]].End,
		Overlap:          overlap,
		Oversized:        oversized,
	}
}
