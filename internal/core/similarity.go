// ABOUTME: Vector helpers for windowed similarity: cosine, centroids, usability checks
// ABOUTME: Non-finite or zero-norm inputs are reported instead of producing NaN
package core

import "math"

// CosineSimilarity returns the cosine of the angle between a and b. ok is
// false when the vectors differ in length, either has zero norm, or the
// result is not finite.
func CosineSimilarity(a, b []float64) (sim float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	sim = dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	// Rounding can push the ratio slightly outside [-1, 1]
	return math.Max(-1, math.Min(1, sim)), true
}

// finiteVector reports whether v is non-empty and holds only finite values
func finiteVector(v []float64) bool {
	if len(v) == 0 {
		return false
	}
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// vectorSum accumulates vectors of one dimension
type vectorSum struct {
	sum   []float64
	count int
}

func newVectorSum(dim int) *vectorSum {
	return &vectorSum{sum: make([]float64, dim)}
}

func (s *vectorSum) add(v []float64) {
	for i, x := range v {
		s.sum[i] += x
	}
	s.count++
}

func (s *vectorSum) sub(v []float64) {
	for i, x := range v {
		s.sum[i] -= x
	}
	s.count--
}

// mean returns the centroid, or nil when nothing was added
func (s *vectorSum) mean() []float64 {
	if s.count == 0 {
		return nil
	}
	out := make([]float64, len(s.sum))
	for i, x := range s.sum {
		out[i] = x / float64(s.count)
	}
	return out
}
