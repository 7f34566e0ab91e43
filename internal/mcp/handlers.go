// ABOUTME: MCP tool handler implementations for the chapterize server
// ABOUTME: Tool failures come back as error results, never as Go errors
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/models"
	"github.com/harper/chapterize/internal/transcript"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	settings core.Settings
	deps     core.Dependencies
	logger   *log.Logger
}

// NewHandlers creates handlers that build a pipeline per call from settings
func NewHandlers(settings core.Settings, deps core.Dependencies) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handlers{settings: settings, deps: deps, logger: logger}
}

type chapterizeResponse struct {
	RunID          string             `json:"run_id"`
	ParagraphCount int                `json:"paragraph_count"`
	ChunkCount     int                `json:"chunk_count"`
	Chapters       []models.Chapter   `json:"chapters,omitempty"`
	Paragraphs     []models.Paragraph `json:"paragraphs,omitempty"`
	Chunks         []models.Chunk     `json:"chunks,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// ChapterizeTranscript handles the chapterize_transcript tool
func (h *Handlers) ChapterizeTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pipeline, fragments, errResult := h.prepare(ctx, request, true)
	if errResult != nil {
		return errResult, nil
	}

	result, err := pipeline.Run(ctx, fragments)
	if err != nil {
		h.logger.Warn("chapterize_transcript failed", "error", err)
		if result == nil {
			return mcp.NewToolResultError(fmt.Sprintf("chaptering failed: %v", err)), nil
		}
		return h.respondPartial(result, err)
	}

	return h.respond(request, result)
}

// respondPartial returns the chunking branch of a run whose chaptering failed
func (h *Handlers) respondPartial(result *core.Result, runErr error) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(chapterizeResponse{
		RunID:          result.RunID,
		ParagraphCount: len(result.Paragraphs),
		ChunkCount:     len(result.Chunks),
		Chunks:         result.Chunks,
		Error:          fmt.Sprintf("chaptering failed: %v", runErr),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	partial := mcp.NewToolResultText(string(responseJSON))
	partial.IsError = true
	return partial, nil
}

// SegmentTranscript handles the segment_transcript tool
func (h *Handlers) SegmentTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pipeline, fragments, errResult := h.prepare(ctx, request, false)
	if errResult != nil {
		return errResult, nil
	}

	result, err := pipeline.Segment(fragments)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("segmentation failed: %v", err)), nil
	}

	return h.respond(request, result)
}

// CleanText handles the clean_text tool
func (h *Handlers) CleanText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	responseJSON, err := json.Marshal(map[string]string{"text": core.CleanText(text)})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// prepare reads the transcript and builds a pipeline with per-call overrides
func (h *Handlers) prepare(ctx context.Context, request mcp.CallToolRequest, chaptering bool) (*core.Pipeline, []models.Fragment, *mcp.CallToolResult) {
	args := request.GetArguments()

	fragments, err := readFragments(ctx, args)
	if err != nil {
		return nil, nil, mcp.NewToolResultError(err.Error())
	}

	settings := h.settings
	if v, ok := intArg(args, "max_tokens"); ok {
		settings.MaxTokens = v
	}
	if v, ok := intArg(args, "overlap_tokens"); ok {
		settings.OverlapTokens = v
	}
	if chaptering {
		if v, ok := floatArg(args, "similarity_threshold"); ok {
			settings.SimilarityThreshold = v
		}
		if v, ok := floatArg(args, "window_seconds"); ok {
			settings.WindowSeconds = v
		}
		if v, ok := floatArg(args, "stride_seconds"); ok {
			settings.StrideSeconds = v
		}
		if v, ok := floatArg(args, "min_chapter_duration_seconds"); ok {
			settings.MinChapterDurationSeconds = v
		}
		if s := request.GetString("merge_policy", ""); s != "" {
			policy, err := core.ParseMergePolicy(s)
			if err != nil {
				return nil, nil, mcp.NewToolResultError(err.Error())
			}
			settings.MergePolicy = policy
		}
	}

	pipeline, err := core.NewPipeline(settings, h.deps)
	if err != nil {
		return nil, nil, mcp.NewToolResultError(err.Error())
	}
	return pipeline, fragments, nil
}

func (h *Handlers) respond(request mcp.CallToolRequest, result *core.Result) (*mcp.CallToolResult, error) {
	response := chapterizeResponse{
		RunID:          result.RunID,
		ParagraphCount: len(result.Paragraphs),
		ChunkCount:     len(result.Chunks),
		Chapters:       result.Chapters,
	}
	if request.GetBool("include_paragraphs", false) {
		response.Paragraphs = result.Paragraphs
	}
	if request.GetBool("include_chunks", false) {
		response.Chunks = result.Chunks
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}

// readFragments takes inline fragments, or a path with an optional format
func readFragments(ctx context.Context, args map[string]any) ([]models.Fragment, error) {
	if raw, ok := args["fragments"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("fragments: %w", err)
		}
		return transcript.Parse(data, transcript.FormatJSON)
	}

	path, _ := args["path"].(string)
	if path == "" {
		return nil, errors.New("either path or fragments is required")
	}
	formatName, _ := args["format"].(string)
	format, err := transcript.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	return transcript.FileSource{Path: path, Format: format}.Fragments(ctx)
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func intArg(args map[string]any, key string) (int, bool) {
	f, ok := floatArg(args, key)
	return int(f), ok
}
