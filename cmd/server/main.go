// ABOUTME: Standalone chapterize MCP server with stdio transport
// ABOUTME: For MCP hosts that launch a dedicated binary instead of the CLI
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/config"
	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/llm"
	"github.com/harper/chapterize/internal/mcp"
	"github.com/harper/chapterize/internal/storage"
	"github.com/harper/chapterize/internal/tokens"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func main() {
	// stdout carries protocol traffic
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "chapterize-server", ReportTimestamp: true})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", "error", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		logger.Fatal("invalid settings", "error", err)
	}

	backends, err := llm.NewBackends(cfg.Provider, cfg.ClientConfig())
	if err != nil {
		logger.Fatal("initializing backend", "provider", cfg.Provider, "error", err)
	}
	counter, err := tokens.Load(cfg.TokenizerPath)
	if err != nil {
		logger.Fatal("loading tokenizer", "error", err)
	}

	store, err := storage.Open(cfg.CacheOptions())
	if err != nil {
		logger.Fatal("opening embedding cache", "error", err)
	}
	embedder := storage.NewCachedEmbedder(backends.Embeddings, store, backends.Embeddings.EmbeddingModel(), logger)
	defer embedder.Close()

	server := mcpserver.NewMCPServer("chapterize", "0.1.0")
	mcp.RegisterTools(server, settings, core.Dependencies{
		Embedder: embedder,
		Titler:   backends.Titles,
		Tokens:   counter,
		Logger:   logger,
	})

	logger.Info("MCP server starting on stdio", "provider", cfg.Provider)
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
