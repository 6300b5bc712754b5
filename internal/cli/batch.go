package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/pipeline"
	"github.com/psokolov/verdex/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	// noCache, llmProvider, llmModel are defined in check.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify multiple texts from a file in parallel",
	Long: `Batch verifies multiple inputs concurrently:
- Read inputs from a file (one text per line, # comments skipped)
- Run checks in parallel with a configurable worker count
- Each check runs the full extract/retrieve/verify/judge pipeline
- Write one JSON report per input

Example:
  verdex batch claims.txt
  verdex batch claims.txt --concurrency 8 --output-dir ./reports
  verdex batch claims.txt --check-timeout 3m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent checks")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./verdex-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 15*time.Minute, "total timeout for batch processing")

	// Inherit flags from the check command
	batchCmd.Flags().DurationVar(&checkTimeout, "check-timeout", 2*time.Minute, "timeout for individual checks")
	batchCmd.Flags().IntVar(&maxClaims, "max-claims", 10, "maximum claims verified per check")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh retrieval)")
	batchCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to persist checks")
	batchCmd.Flags().BoolVar(&noArchive, "no-archive", false, "do not submit cited URLs for archival")

	// LLM flags
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Verdex Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Concurrency.ClaimWorkers = 2 // Checks already run in parallel

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, cleanup, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Create batch processor
	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Reading inputs from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Loaded %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Verifying with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	renderer := pipeline.NewRenderer(verbose)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", truncate(result.Input, 60), result.Error)
			continue
		}

		successCount++

		jsonPath := filepath.Join(outputDir, result.Check.ID+".json")
		if err := renderer.RenderJSON(result.Check, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Check.ID, err)
			continue
		}

		counts := result.Check.VerdictCounts()
		fmt.Fprintf(os.Stderr, "✓ %s (%d claims, %d contradicted)\n",
			truncate(result.Input, 60), len(result.Check.Claims), counts[model.VerdictContradicted])
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d inputs\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
