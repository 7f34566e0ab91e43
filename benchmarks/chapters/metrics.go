// ABOUTME: Boundary and title metrics for chapter benchmarks
// ABOUTME: Tolerance-matched precision and recall plus title term recall

package chapters

import (
	"fmt"
	"math"
	"strings"

	"github.com/harper/chapterize/internal/models"
)

// DefaultTolerance is how far (seconds) a predicted boundary may sit from the true one
const DefaultTolerance = 60.0

// PassF1 is the boundary F1 a scenario needs to pass
const PassF1 = 0.66

// BoundaryScore holds precision, recall and F1 for predicted boundaries
type BoundaryScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Matched   int     `json:"matched"`
}

// ScoreBoundaries matches each expected boundary to the nearest unused
// predicted boundary within tolerance. An empty side scores 1 for the
// ratio that would divide by it.
func ScoreBoundaries(predicted, expected []float64, tolerance float64) BoundaryScore {
	used := make([]bool, len(predicted))
	matched := 0
	for _, want := range expected {
		best := -1
		bestDist := math.Inf(1)
		for i, got := range predicted {
			if used[i] {
				continue
			}
			if d := math.Abs(got - want); d <= tolerance && d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			used[best] = true
			matched++
		}
	}

	score := BoundaryScore{Precision: 1, Recall: 1, Matched: matched}
	if len(predicted) > 0 {
		score.Precision = float64(matched) / float64(len(predicted))
	}
	if len(expected) > 0 {
		score.Recall = float64(matched) / float64(len(expected))
	}
	if score.Precision+score.Recall > 0 {
		score.F1 = 2 * score.Precision * score.Recall / (score.Precision + score.Recall)
	}
	return score
}

// PredictedBoundaries returns the start of every chapter after the first
func PredictedBoundaries(chapters []models.Chapter) []float64 {
	if len(chapters) < 2 {
		return nil
	}
	out := make([]float64, 0, len(chapters)-1)
	for _, ch := range chapters[1:] {
		out = append(out, ch.Start)
	}
	return out
}

// TitleTermRecall is the fraction of segments whose terms appear in some chapter title
func TitleTermRecall(chapters []models.Chapter, segments []Segment) (float64, string) {
	var missing []string
	counted := 0
	for _, seg := range segments {
		if len(seg.TitleTerms) == 0 {
			continue
		}
		counted++
		if !anyTitleMentions(chapters, seg.TitleTerms) {
			missing = append(missing, seg.Topic)
		}
	}
	if counted == 0 {
		return 1, "no title expectations"
	}
	recall := float64(counted-len(missing)) / float64(counted)
	if len(missing) == 0 {
		return recall, "every topic named in a chapter title"
	}
	return recall, fmt.Sprintf("topics missing from titles: %v", missing)
}

func anyTitleMentions(chapters []models.Chapter, terms []string) bool {
	for _, ch := range chapters {
		title := strings.ToLower(ch.Title)
		for _, term := range terms {
			if strings.Contains(title, strings.ToLower(term)) {
				return true
			}
		}
	}
	return false
}
