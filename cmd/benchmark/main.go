// ABOUTME: Command-line runner for chapter boundary benchmarks
// ABOUTME: Chapters the built-in scenarios with the configured backend and exports JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/benchmarks/chapters"
	"github.com/harper/chapterize/internal/config"
	"github.com/harper/chapterize/internal/core"
	"github.com/harper/chapterize/internal/llm"
	"github.com/harper/chapterize/internal/storage"
	"github.com/harper/chapterize/internal/tokens"
	"github.com/joho/godotenv"
)

func main() {
	scenarioID := flag.String("scenario", "", "Run one scenario (lecture, interview, monologue). If empty, runs all.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	tolerance := flag.Float64("tolerance", chapters.DefaultTolerance, "Seconds a predicted boundary may be off by")
	noTitles := flag.Bool("no-titles", false, "Use heuristic titles instead of the chat model")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "benchmark"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

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

	deps := core.Dependencies{Embedder: embedder, Tokens: counter, Logger: logger}
	if !*noTitles {
		deps.Titler = backends.Titles
	}

	runner, err := chapters.NewRunner(settings, deps, *tolerance)
	if err != nil {
		logger.Fatal("creating benchmark runner", "error", err)
	}

	scenarios := chapters.GetAllScenarios()
	if *scenarioID != "" {
		scenario, ok := chapters.GetScenario(*scenarioID)
		if !ok {
			logger.Fatal("unknown scenario", "id", *scenarioID, "valid", "lecture, interview, monologue")
		}
		scenarios = []chapters.Scenario{scenario}
	}

	fmt.Println("========================================")
	fmt.Println("Chapter Boundary Benchmarks")
	fmt.Println("========================================")
	fmt.Printf("Provider: %s  Embedding model: %s\n", cfg.Provider, cfg.EmbeddingModel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := runner.RunAll(ctx, scenarios)
	if err != nil {
		logger.Error("benchmark interrupted", "error", err)
	}

	fmt.Println("\n========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")
	for _, result := range results {
		fmt.Printf("\n%s: %s\n", result.ScenarioID, result.ScenarioName)
		fmt.Printf("  Expected:  %v\n", result.Expected)
		fmt.Printf("  Predicted: %v\n", result.Predicted)
		fmt.Printf("  Precision: %.2f  Recall: %.2f  F1: %.2f\n",
			result.Boundaries.Precision, result.Boundaries.Recall, result.Boundaries.F1)
		fmt.Printf("  Title recall: %.2f\n", result.TitleRecall)
		if result.ErrorMessage != "" {
			fmt.Printf("  Error: %s\n", result.ErrorMessage)
		}
		fmt.Printf("  Status: %s\n", result.Status)
	}

	passed, failed := chapters.Summary(results)
	fmt.Println("\n========================================")
	fmt.Printf("Total Scenarios: %d\n", len(results))
	fmt.Printf("Passed: %d\n", passed)
	fmt.Printf("Failed: %d\n", failed)
	fmt.Println("========================================")

	if err := chapters.ExportResults(results, *outputPath); err != nil {
		logger.Fatal("exporting results", "error", err)
	}
	fmt.Printf("✓ Results exported to: %s\n", *outputPath)

	if failed > 0 {
		os.Exit(1)
	}
}
