// ABOUTME: Normalizer turns raw timed transcript fragments into paragraphs
// ABOUTME: Cleans filler and timecodes, then merges fragments across small gaps
package core

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/models"
)

// NormalizerConfig controls how fragments are merged into paragraphs
type NormalizerConfig struct {
	MergeGapToleranceSeconds float64
	ParagraphMinWords        int
	ParagraphMaxWords        int // 0 means unlimited
}

// Normalizer cleans and merges transcript fragments
type Normalizer struct {
	cfg    NormalizerConfig
	logger *log.Logger
}

// NewNormalizer creates a Normalizer. A nil logger discards output.
func NewNormalizer(cfg NormalizerConfig, logger *log.Logger) *Normalizer {
	return &Normalizer{cfg: cfg, logger: orDiscard(logger)}
}

var (
	bracketedTimecode = regexp.MustCompile(`[\[(]\s*(?:\d{1,2}:){1,2}\d{2}(?:\.\d{1,3})?\s*[)\]]`)
	colonedTimecode   = regexp.MustCompile(`\b(?:\d{1,2}:){1,2}\d{2}(?:\.\d{1,3})?\b(?:\s*-\s)?`)
	unitTimecode      = regexp.MustCompile(`\b\d+h\d+m\d+s\b|\b\d+m\d+s\b`)
	// a bracketed span only counts when it starts a word, so a[0] survives
	soundAnnotation   = regexp.MustCompile(`(?:^|\s)\[[^\]]*\]|(?i)\((?:laughs?|laughter|music|applause|inaudible|crosstalk|silence|cheering|coughs?|sighs?)\)`)
	// only forms that are never words; er, ah and mm are left alone
	fillerToken       = regexp.MustCompile(`(?i)\b(?:um+|uh+|uhm|erm|hmm+|m{3,}|mhm)\b,?`)
	spaceRun          = regexp.MustCompile(`\s+`)
	spaceBeforePunct  = regexp.MustCompile(`\s+([,.!?;:])`)
	commaRun          = regexp.MustCompile(`,(?:\s*,)+`)
	sentenceEnd       = regexp.MustCompile(`[.!?]["')\]]*$`)
)

// CleanText strips timecodes, sound annotations and filler tokens and
// normalizes whitespace and punctuation spacing
func CleanText(text string) string {
	s := bracketedTimecode.ReplaceAllString(text, " ")
	s = colonedTimecode.ReplaceAllString(s, " ")
	s = unitTimecode.ReplaceAllString(s, " ")
	s = soundAnnotation.ReplaceAllString(s, " ")
	s = fillerToken.ReplaceAllString(s, " ")
	s = spaceRun.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = commaRun.ReplaceAllString(s, ",")
	return strings.Trim(s, " ,")
}

// Normalize converts fragments into ordered, non-overlapping paragraphs
func (n *Normalizer) Normalize(fragments []models.Fragment) ([]models.Paragraph, error) {
	if len(fragments) == 0 {
		return nil, ErrEmptyTranscript
	}
	if err := validateFragments(fragments); err != nil {
		return nil, err
	}

	var paragraphs []models.Paragraph
	var current *paragraphBuilder

	flush := func() {
		if current == nil {
			return
		}
		p := current.build(len(paragraphs))
		if len(paragraphs) > 0 {
			prevEnd := paragraphs[len(paragraphs)-1].End
			if p.Start < prevEnd {
				p.Start = prevEnd
			}
		}
		if p.End <= p.Start {
			p.End = p.Start + 0.001
		}
		paragraphs = append(paragraphs, p)
		current = nil
	}

	for i, f := range fragments {
		text := CleanText(f.Text)
		if text == "" {
			continue
		}

		if current != nil && n.canMerge(current, f) {
			current.add(i, text, f)
			continue
		}

		flush()
		current = newParagraphBuilder(i, text, f)
	}
	flush()

	if len(paragraphs) == 0 {
		return nil, ErrEmptyTranscript
	}

	n.logger.Debug("normalized transcript", "fragments", len(fragments), "paragraphs", len(paragraphs))
	return paragraphs, nil
}

func (n *Normalizer) canMerge(b *paragraphBuilder, next models.Fragment) bool {
	gap := next.Start - b.end
	if gap < 0 {
		gap = 0
	}
	if gap >= n.cfg.MergeGapToleranceSeconds {
		return false
	}
	return !n.atNaturalBoundary(b)
}

func (n *Normalizer) atNaturalBoundary(b *paragraphBuilder) bool {
	if n.cfg.ParagraphMaxWords > 0 && b.words >= n.cfg.ParagraphMaxWords {
		return true
	}
	if b.words < n.cfg.ParagraphMinWords {
		return false
	}
	return sentenceEnd.MatchString(b.text.String())
}

func validateFragments(fragments []models.Fragment) error {
	prevStart := math.Inf(-1)
	for i, f := range fragments {
		var problem string
		switch {
		case math.IsNaN(f.Start) || math.IsInf(f.Start, 0):
			problem = "start is not a finite number"
		case math.IsNaN(f.Duration) || math.IsInf(f.Duration, 0):
			problem = "duration is not a finite number"
		case f.Start < 0:
			problem = "negative start"
		case f.Duration < 0:
			problem = "negative duration"
		case f.Start < prevStart:
			problem = fmt.Sprintf("start %.3f precedes previous start %.3f", f.Start, prevStart)
		}
		if problem != "" {
			return &StageError{
				Stage:      "normalize",
				FirstIndex: i,
				LastIndex:  i,
				Start:      f.Start,
				End:        f.End(),
				Err:        fmt.Errorf("%w: fragment %d: %s", ErrInvalidTranscript, i, problem),
			}
		}
		prevStart = f.Start
	}
	return nil
}

type paragraphBuilder struct {
	text      strings.Builder
	words     int
	start     float64
	end       float64
	firstFrag int
	lastFrag  int
}

func newParagraphBuilder(idx int, text string, f models.Fragment) *paragraphBuilder {
	b := &paragraphBuilder{start: f.Start, end: f.End(), firstFrag: idx, lastFrag: idx}
	b.text.WriteString(text)
	b.words = len(strings.Fields(text))
	return b
}

func (b *paragraphBuilder) add(idx int, text string, f models.Fragment) {
	b.text.WriteByte(' ')
	b.text.WriteString(text)
	b.words += len(strings.Fields(text))
	if f.End() > b.end {
		b.end = f.End()
	}
	b.lastFrag = idx
}

func (b *paragraphBuilder) build(index int) models.Paragraph {
	return models.Paragraph{
		Index:         index,
		Text:          b.text.String(),
		Start:         b.start,
		End:           b.end,
		FragmentStart: b.firstFrag,
		FragmentEnd:   b.lastFrag + 1,
	}
}
