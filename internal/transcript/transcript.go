// ABOUTME: Transcript readers for JSON fragment arrays and SRT subtitle files
// ABOUTME: FileSource adapts a file on disk to the pipeline's TranscriptSource
package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/models"
)

// ErrTranscriptUnavailable means the transcript could not be read at all
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

// Format names a transcript encoding
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
)

// ParseFormat accepts json, srt, or empty for auto-detection
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatJSON, FormatSRT:
		return f, nil
	default:
		return "", fmt.Errorf("unknown transcript format %q (want json or srt)", s)
	}
}

// FileSource reads fragments from a file when the pipeline asks for them
type FileSource struct {
	Path   string
	Format Format
}

// Fragments reads and parses the file
func (s FileSource) Fragments(ctx context.Context) ([]models.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptUnavailable, err)
	}

	format := s.Format
	if format == FormatAuto {
		format = detectFormat(s.Path, data)
	}
	return Parse(data, format)
}

// Parse decodes data in the given format
func Parse(data []byte, format Format) ([]models.Fragment, error) {
	switch format {
	case FormatJSON:
		return ReadJSON(bytes.NewReader(data))
	case FormatSRT:
		return ReadSRT(bytes.NewReader(data))
	default:
		return Parse(data, detectFormat("", data))
	}
}

// ReadJSON decodes an array of {text, start, duration} objects
func ReadJSON(r io.Reader) ([]models.Fragment, error) {
	var fragments []models.Fragment
	dec := json.NewDecoder(r)
	if err := dec.Decode(&fragments); err != nil {
		return nil, fmt.Errorf("%w: decode json: %w", core.ErrInvalidTranscript, err)
	}
	return fragments, nil
}

func detectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".srt":
		return FormatSRT
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return FormatJSON
	}
	return FormatSRT
}
