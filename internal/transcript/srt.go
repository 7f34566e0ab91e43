// ABOUTME: SRT subtitle parsing into transcript fragments
// ABOUTME: One fragment per cue, multi-line cue text joined with spaces
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadSRT parses SubRip cues:
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
func ReadSRT(r io.Reader) ([]models.Fragment, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		fragments []models.Fragment
		lines     []string
		start     float64
		end       float64
		inCue     bool
		lineNo    int
	)

	flush := func() {
		if inCue && len(lines) > 0 {
			fragments = append(fragments, models.Fragment{
				Text:     strings.Join(lines, " "),
				Start:    start,
				Duration: max(end-start, 0),
			})
		}
		lines = lines[:0]
		inCue = false
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, string(utf8BOM))
		}

		switch {
		case line == "":
			flush()
		case strings.Contains(line, "-->"):
			flush()
			s, e, err := parseTiming(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", core.ErrInvalidTranscript, lineNo, err)
			}
			start, end, inCue = s, e, true
		case !inCue && isDigitOnly(line):
			// sequence number
		case inCue:
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidTranscript, err)
	}
	flush()

	return fragments, nil
}

// parseTiming reads "HH:MM:SS,mmm --> HH:MM:SS,mmm", ignoring trailing cue settings
func parseTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("missing end time in %q", line)
	}
	end, err := parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp accepts HH:MM:SS,mmm, HH:MM:SS.mmm or MM:SS,mmm
func parseTimestamp(s string) (float64, error) {
	clock, frac, _ := strings.Cut(strings.Replace(s, ",", ".", 1), ".")
	fields := strings.Split(clock, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}

	var seconds float64
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		seconds = seconds*60 + float64(n)
	}

	if frac != "" {
		ms, err := strconv.ParseFloat("0."+frac, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		seconds += ms
	}
	return seconds, nil
}

func isDigitOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
