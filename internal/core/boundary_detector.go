// ABOUTME: BoundaryDetector partitions paragraphs into chapters from embedding drift
// ABOUTME: Slides time windows, compares centroids, then selects well-spaced breaks
package core

import (
	"math"
	"slices"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/models"
)

// MergePolicy decides which candidate boundaries survive the minimum
// chapter duration constraint
type MergePolicy string

const (
	// MergeMaxChapters keeps as many boundaries as the spacing allows,
	// preferring the lowest total similarity among equally large sets
	MergeMaxChapters MergePolicy = "max_chapters"
	// MergeStrongestFirst accepts boundaries greedily from the lowest
	// similarity upwards
	MergeStrongestFirst MergePolicy = "strongest_first"
)

const splitTieEpsilon = 1e-9

// ParseMergePolicy validates a policy name. Empty selects MergeMaxChapters.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(s) {
	case "", MergeMaxChapters:
		return MergeMaxChapters, nil
	case MergeStrongestFirst:
		return MergeStrongestFirst, nil
	default:
		return "", invalidConfig("unknown merge policy %q", s)
	}
}

// DetectParams are the knobs of one detection run
type DetectParams struct {
	SimilarityThreshold       float64
	WindowSeconds             float64
	StrideSeconds             float64
	MinChapterDurationSeconds float64
	MergePolicy               MergePolicy
}

// Validate reports the first out-of-range parameter
func (p DetectParams) Validate() error {
	switch {
	case !(p.WindowSeconds > 0) || math.IsInf(p.WindowSeconds, 0):
		return invalidConfig("window seconds must be positive, got %v", p.WindowSeconds)
	case !(p.StrideSeconds > 0) || math.IsInf(p.StrideSeconds, 0):
		return invalidConfig("stride seconds must be positive, got %v", p.StrideSeconds)
	case !(p.SimilarityThreshold >= -1 && p.SimilarityThreshold <= 1):
		return invalidConfig("similarity threshold must be within [-1, 1], got %v", p.SimilarityThreshold)
	case !(p.MinChapterDurationSeconds >= 0) || math.IsInf(p.MinChapterDurationSeconds, 0):
		return invalidConfig("min chapter duration must not be negative, got %v", p.MinChapterDurationSeconds)
	}
	_, err := ParseMergePolicy(string(p.MergePolicy))
	return err
}

// BoundaryDetector discovers chapter boundaries. It holds no per-run state.
type BoundaryDetector struct {
	logger *log.Logger
}

// NewBoundaryDetector creates a detector. A nil logger discards output.
func NewBoundaryDetector(logger *log.Logger) *BoundaryDetector {
	return &BoundaryDetector{logger: orDiscard(logger)}
}

type timeWindow struct {
	start    float64
	end      float64
	lo, hi   int // member paragraphs [lo, hi)
	centroid []float64
}

type boundaryCandidate struct {
	index int
	time  float64
	score float64
}

// detection carries the inputs of one Detect call
type detection struct {
	paragraphs []models.Paragraph
	vectors    [][]float64 // nil where the embedding is unusable
	dim        int
}

// Detect returns chapters covering every paragraph exactly once, in order
func (d *BoundaryDetector) Detect(paragraphs []models.Paragraph, embeddings []models.ParagraphEmbedding, params DetectParams) ([]models.Chapter, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := len(paragraphs)
	if n == 0 {
		return nil, ErrEmptyTranscript
	}
	if len(embeddings) != n {
		return nil, invalidConfig("got %d embeddings for %d paragraphs", len(embeddings), n)
	}
	for i := range embeddings {
		if embeddings[i].ParagraphIndex != paragraphs[i].Index {
			return nil, invalidConfig("embedding %d belongs to paragraph %d, expected %d",
				i, embeddings[i].ParagraphIndex, paragraphs[i].Index)
		}
	}

	run := newDetection(paragraphs, embeddings)
	t0, tEnd := paragraphs[0].Start, paragraphs[n-1].End

	if n < 2 || tEnd-t0 < params.WindowSeconds {
		d.logger.Debug("transcript shorter than one window", "duration", tEnd-t0, "window", params.WindowSeconds)
		return chaptersFromBoundaries(paragraphs, nil), nil
	}
	if run.degenerate() {
		d.logger.Debug("degenerate embeddings, emitting a single chapter")
		return chaptersFromBoundaries(paragraphs, nil), nil
	}

	windows := run.windows(t0, tEnd, params.WindowSeconds, params.StrideSeconds)
	if len(windows) < 2 {
		d.logger.Debug("fewer than two usable windows", "windows", len(windows))
		return chaptersFromBoundaries(paragraphs, nil), nil
	}

	candidates := run.candidates(windows, params.SimilarityThreshold)
	boundaries := selectBoundaries(candidates, t0, tEnd, params)

	d.logger.Debug("detected boundaries",
		"windows", len(windows), "candidates", len(candidates), "boundaries", len(boundaries),
		"policy", params.MergePolicy)
	return chaptersFromBoundaries(paragraphs, boundaries), nil
}

func newDetection(paragraphs []models.Paragraph, embeddings []models.ParagraphEmbedding) *detection {
	run := &detection{paragraphs: paragraphs, vectors: make([][]float64, len(embeddings))}
	for _, e := range embeddings {
		if finiteVector(e.Vector) {
			run.dim = len(e.Vector)
			break
		}
	}
	for i, e := range embeddings {
		if run.dim > 0 && len(e.Vector) == run.dim && finiteVector(e.Vector) {
			run.vectors[i] = e.Vector
		}
	}
	return run
}

// degenerate is true when no vector is usable or all usable vectors are equal
func (r *detection) degenerate() bool {
	var first []float64
	for _, v := range r.vectors {
		if v == nil {
			continue
		}
		if first == nil {
			first = v
			continue
		}
		if !slices.Equal(first, v) {
			return false
		}
	}
	return true
}

func (r *detection) windows(t0, tEnd, width, stride float64) []timeWindow {
	mids := make([]float64, len(r.paragraphs))
	for i, p := range r.paragraphs {
		mids[i] = p.Midpoint()
	}

	var out []timeWindow
	for k := 0; ; k++ {
		start := t0 + float64(k)*stride
		if start >= tEnd {
			break
		}
		end := start + width
		lo := sort.SearchFloat64s(mids, start)
		hi := sort.SearchFloat64s(mids, end)

		sum := newVectorSum(r.dim)
		for i := lo; i < hi; i++ {
			if r.vectors[i] != nil {
				sum.add(r.vectors[i])
			}
		}
		if sum.count == 0 {
			continue
		}
		out = append(out, timeWindow{start: start, end: end, lo: lo, hi: hi, centroid: sum.mean()})
	}
	return out
}

// candidates compares consecutive windows and places a boundary for every
// pair whose similarity falls below threshold
func (r *detection) candidates(windows []timeWindow, threshold float64) []boundaryCandidate {
	best := make(map[int]boundaryCandidate)

	for w := 1; w < len(windows); w++ {
		a, b := windows[w-1], windows[w]
		sim, ok := CosineSimilarity(a.centroid, b.centroid)
		if !ok || sim >= threshold {
			continue
		}

		transition := (b.start + a.end) / 2
		idx, found := r.bestSplit(a.lo, max(a.hi, b.hi), transition)
		if !found {
			continue
		}
		if prev, seen := best[idx]; !seen || sim < prev.score {
			best[idx] = boundaryCandidate{index: idx, time: r.paragraphs[idx].Start, score: sim}
		}
	}

	out := make([]boundaryCandidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// bestSplit finds k in (lo, hi) where the mean vector of [lo,k) is least
// similar to the mean of [k,hi). Ties go to the split nearest transition,
// then to the lower index.
func (r *detection) bestSplit(lo, hi int, transition float64) (int, bool) {
	if hi-lo < 2 {
		return 0, false
	}

	left, right := newVectorSum(r.dim), newVectorSum(r.dim)
	for i := lo; i < hi; i++ {
		if r.vectors[i] != nil {
			right.add(r.vectors[i])
		}
	}

	bestK := -1
	var bestScore, bestDist float64
	for k := lo + 1; k < hi; k++ {
		if v := r.vectors[k-1]; v != nil {
			left.add(v)
			right.sub(v)
		}
		if left.count == 0 || right.count == 0 {
			continue
		}
		score, ok := CosineSimilarity(left.mean(), right.mean())
		if !ok {
			continue
		}
		dist := math.Abs(r.paragraphs[k].Start - transition)
		better := bestK < 0 || score < bestScore-splitTieEpsilon ||
			(math.Abs(score-bestScore) <= splitTieEpsilon && dist < bestDist)
		if better {
			bestK, bestScore, bestDist = k, score, dist
		}
	}
	return bestK, bestK > 0
}

// selectBoundaries applies the minimum chapter duration and merge policy and
// returns retained boundary indices in ascending order
func selectBoundaries(candidates []boundaryCandidate, t0, tEnd float64, params DetectParams) []int {
	minDur := params.MinChapterDurationSeconds

	var eligible []boundaryCandidate
	for _, c := range candidates {
		if c.time-t0 >= minDur && tEnd-c.time >= minDur {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	var kept []boundaryCandidate
	if params.MergePolicy == MergeStrongestFirst {
		kept = strongestFirst(eligible, minDur)
	} else {
		kept = maxChapters(eligible, minDur)
	}

	out := make([]int, len(kept))
	for i, c := range kept {
		out[i] = c.index
	}
	sort.Ints(out)
	return out
}

// maxChapters picks the largest spacing-feasible subset; among subsets of
// equal size the lowest total similarity wins. Input is sorted by index.
func maxChapters(eligible []boundaryCandidate, minDur float64) []boundaryCandidate {
	m := len(eligible)
	count := make([]int, m)
	total := make([]float64, m)
	prev := make([]int, m)

	for i := range eligible {
		count[i], total[i], prev[i] = 1, eligible[i].score, -1
		for j := 0; j < i; j++ {
			if eligible[i].time-eligible[j].time < minDur {
				continue
			}
			c, s := count[j]+1, total[j]+eligible[i].score
			if c > count[i] || (c == count[i] && s < total[i]) {
				count[i], total[i], prev[i] = c, s, j
			}
		}
	}

	best := 0
	for i := 1; i < m; i++ {
		if count[i] > count[best] || (count[i] == count[best] && total[i] < total[best]) {
			best = i
		}
	}

	kept := make([]boundaryCandidate, 0, count[best])
	for i := best; i >= 0; i = prev[i] {
		kept = append(kept, eligible[i])
	}
	slices.Reverse(kept)
	return kept
}

func strongestFirst(eligible []boundaryCandidate, minDur float64) []boundaryCandidate {
	order := slices.Clone(eligible)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score < order[j].score
		}
		return order[i].index < order[j].index
	})

	var kept []boundaryCandidate
	for _, c := range order {
		fits := true
		for _, k := range kept {
			if math.Abs(c.time-k.time) < minDur {
				fits = false
				break
			}
		}
		if fits {
			kept = append(kept, c)
		}
	}
	return kept
}

// chaptersFromBoundaries emits the ranges between boundaries; the first
// chapter starts at paragraph 0 and the last ends at the final paragraph
func chaptersFromBoundaries(paragraphs []models.Paragraph, boundaries []int) []models.Chapter {
	n := len(paragraphs)
	tEnd := paragraphs[n-1].End
	starts := append([]int{0}, boundaries...)

	chapters := make([]models.Chapter, len(starts))
	for c, s := range starts {
		e := n - 1
		if c+1 < len(starts) {
			e = starts[c+1] - 1
		}
		chapters[c] = models.Chapter{
			Index:          c,
			StartParagraph: s,
			EndParagraph:   e,
			Start:          paragraphs[s].Start,
			End:            math.Min(paragraphs[e].End, tEnd),
		}
	}
	return chapters
}
