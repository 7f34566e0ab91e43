// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Exposes transcript chaptering to LLM agents via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/mcp"
	"github.com/harper/chapterize/internal/tokens"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs chapterize as an MCP (Model Context Protocol) server over stdio,
offering chapterize_transcript, segment_transcript and clean_text tools.
Logs go to stderr so they never mix with protocol traffic.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  chapterize mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "chapterize": {
  #       "command": "chapterize",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr())
	counter, err := tokens.Load(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("loading tokenizer: %w", err)
	}

	deps, closeFn, err := buildCapabilities(cfg, core.Dependencies{Tokens: counter, Logger: logger}, true)
	if err != nil {
		return err
	}
	defer closeFn()

	server := mcpserver.NewMCPServer("chapterize", versionInfo.Version)
	mcp.RegisterTools(server, settings, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("MCP server starting on stdio", "provider", cfg.Provider, "cache", cfg.EmbeddingCache)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
