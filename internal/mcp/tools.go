// ABOUTME: MCP tool definitions and registration for the chapterize server
// ABOUTME: Exposes chaptering, segmentation and text cleaning to LLM agents
package mcp

import (
	"github.com/harper/chapterize/internal/core"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// transcriptInputs are the properties shared by tools that take a transcript
func transcriptInputs() map[string]any {
	return map[string]any{
		"path": map[string]any{
			"type":        "string",
			"description": "Path to a .json or .srt transcript file on the server",
		},
		"fragments": map[string]any{
			"type":        "array",
			"description": "Inline transcript: objects with text, start and duration (seconds)",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":     map[string]any{"type": "string"},
					"start":    map[string]any{"type": "number"},
					"duration": map[string]any{"type": "number"},
				},
				"required": []string{"text", "start", "duration"},
			},
		},
		"format": map[string]any{
			"type":        "string",
			"description": "Transcript format for path: json or srt (default: by extension)",
			"enum":        []string{"json", "srt"},
		},
		"max_tokens": map[string]any{
			"type":        "number",
			"description": "Maximum tokens per chunk",
		},
		"overlap_tokens": map[string]any{
			"type":        "number",
			"description": "Tokens carried from one chunk into the next",
		},
		"include_paragraphs": map[string]any{
			"type":        "boolean",
			"description": "Include cleaned paragraphs in the response (default: false)",
			"default":     false,
		},
		"include_chunks": map[string]any{
			"type":        "boolean",
			"description": "Include chunks in the response (default: false)",
			"default":     false,
		},
	}
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, settings core.Settings, deps core.Dependencies) *Handlers {
	handlers := NewHandlers(settings, deps)

	// 1. chapterize_transcript - full pipeline including titles
	chapterProps := transcriptInputs()
	chapterProps["similarity_threshold"] = map[string]any{
		"type":        "number",
		"description": "Cosine similarity below which adjacent windows start a new chapter (-1 to 1)",
	}
	chapterProps["window_seconds"] = map[string]any{
		"type":        "number",
		"description": "Width of each similarity window in seconds",
	}
	chapterProps["stride_seconds"] = map[string]any{
		"type":        "number",
		"description": "Distance between window starts in seconds",
	}
	chapterProps["min_chapter_duration_seconds"] = map[string]any{
		"type":        "number",
		"description": "Shortest chapter allowed in seconds",
	}
	chapterProps["merge_policy"] = map[string]any{
		"type":        "string",
		"description": "How to drop boundaries that make chapters too short",
		"enum":        []string{string(core.MergeMaxChapters), string(core.MergeStrongestFirst)},
	}
	server.AddTool(mcp.Tool{
		Name:        "chapterize_transcript",
		Description: "Split a timestamped transcript into titled chapters. Provide either path or fragments.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: chapterProps,
		},
	}, handlers.ChapterizeTranscript)

	// 2. segment_transcript - paragraphs and chunks only, no model calls
	server.AddTool(mcp.Tool{
		Name:        "segment_transcript",
		Description: "Clean a transcript into paragraphs and token-bounded chunks without embeddings or titles.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: transcriptInputs(),
		},
	}, handlers.SegmentTranscript)

	// 3. clean_text - strip timecodes, annotations and fillers
	server.AddTool(mcp.Tool{
		Name:        "clean_text",
		Description: "Remove timecodes, bracketed annotations and filler words from a piece of caption text.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Raw caption text",
				},
			},
			Required: []string{"text"},
		},
	}, handlers.CleanText)

	handlers.logger.Debug("registered mcp tools", "count", 3)
	return handlers
}
