// ABOUTME: Fragment represents one raw timestamped piece of a transcript
// ABOUTME: Produced by the transcript reader, consumed by the Normalizer
package models

// Fragment is a single caption line as delivered by a transcript source.
// Fragments arrive ordered by Start and are never modified after reading.
type Fragment struct {
	Text     string  `json:"text" yaml:"text"`
	Start    float64 `json:"start" yaml:"start"`
	Duration float64 `json:"duration" yaml:"duration"`
}

// End returns the time at which the fragment stops being spoken
func (f Fragment) End() float64 {
	return f.Start + f.Duration
}
