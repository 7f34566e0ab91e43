// ABOUTME: Paragraph is a normalized, merged unit of transcript text
// ABOUTME: Paragraphs partition the transcript timeline without overlap
package models

// Paragraph is one or more fragments merged and cleaned by the Normalizer.
type Paragraph struct {
	Index int     `json:"index" yaml:"index"`
	Text  string  `json:"text" yaml:"text"`
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`

	// FragmentStart and FragmentEnd are the half-open range of source
	// fragments merged into this paragraph.
	FragmentStart int `json:"fragment_start" yaml:"fragment_start"`
	FragmentEnd   int `json:"fragment_end" yaml:"fragment_end"`
}

// Midpoint returns the timestamp halfway through the paragraph
func (p Paragraph) Midpoint() float64 {
	return p.Start + (p.End-p.Start)/2
}

// Duration returns the paragraph length in seconds
func (p Paragraph) Duration() float64 {
	return p.End - p.Start
}
