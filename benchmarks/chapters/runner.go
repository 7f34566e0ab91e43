// ABOUTME: Benchmark runner that chapters each scenario and scores the result
// ABOUTME: Collects per-scenario results and exports them as JSON

package chapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/chapterize/internal/core"
)

// Result is the outcome of one benchmark scenario
type Result struct {
	ScenarioID      string         `json:"scenario_id"`
	ScenarioName    string         `json:"scenario_name"`
	Expected        []float64      `json:"expected_boundaries"`
	Predicted       []float64      `json:"predicted_boundaries"`
	Boundaries      BoundaryScore  `json:"boundaries"`
	TitleRecall     float64        `json:"title_recall"`
	Titles          []string       `json:"titles"`
	Status          string         `json:"status"` // "PASS" or "FAIL"
	Details         map[string]any `json:"details,omitempty"`
	ErrorMessage    string         `json:"error,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// Runner executes chapter benchmarks against one pipeline configuration
type Runner struct {
	pipeline  *core.Pipeline
	tolerance float64
	logger    *log.Logger
}

// NewRunner builds the pipeline the scenarios run through
func NewRunner(settings core.Settings, deps core.Dependencies, tolerance float64) (*Runner, error) {
	pipeline, err := core.NewPipeline(settings, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{pipeline: pipeline, tolerance: tolerance, logger: logger}, nil
}

// RunScenario chapters one scenario. Pipeline failures become a FAIL result.
func (r *Runner) RunScenario(ctx context.Context, scenario Scenario) Result {
	started := time.Now()
	result := Result{
		ScenarioID:   scenario.ID,
		ScenarioName: scenario.Name,
		Expected:     scenario.Boundaries(),
		Status:       "FAIL",
	}

	r.logger.Debug("running scenario", "id", scenario.ID, "segments", len(scenario.Segments))
	out, err := r.pipeline.Run(ctx, scenario.Fragments())
	result.DurationSeconds = time.Since(started).Seconds()
	if err != nil {
		result.ErrorMessage = err.Error()
		r.logger.Warn("scenario failed", "id", scenario.ID, "error", err)
		return result
	}

	result.Predicted = PredictedBoundaries(out.Chapters)
	result.Boundaries = ScoreBoundaries(result.Predicted, result.Expected, r.tolerance)
	for _, ch := range out.Chapters {
		result.Titles = append(result.Titles, ch.Title)
	}
	recall, detail := TitleTermRecall(out.Chapters, scenario.Segments)
	result.TitleRecall = recall
	result.Details = map[string]any{
		"title_detail": detail,
		"paragraphs":   len(out.Paragraphs),
		"chapters":     len(out.Chapters),
		"tolerance":    r.tolerance,
	}

	if result.Boundaries.F1 >= PassF1 {
		result.Status = "PASS"
	}
	return result
}

// RunAll executes every scenario in order, stopping early only on cancellation
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(scenarios))
	for _, scenario := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.RunScenario(ctx, scenario))
	}
	return results, nil
}

// Summary counts passing and failing results
func Summary(results []Result) (passed, failed int) {
	for _, result := range results {
		if result.Status == "PASS" {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// ExportResults writes results and a pass/fail summary to a JSON file
func ExportResults(results []Result, outputPath string) error {
	passed, failed := Summary(results)
	summary := map[string]any{
		"timestamp":       time.Now().Format(time.RFC3339),
		"total_scenarios": len(results),
		"passed":          passed,
		"failed":          failed,
		"results":         results,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
