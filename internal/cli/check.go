package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	inputFile    string
	sourceURL    string
	outJSON      string
	checkTimeout time.Duration
	noCache      bool
	maxClaims    int
	dbPath       string
	llmProvider  string
	llmModel     string
	searchURL    string
	nliURL       string
	noArchive    bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Verify the factual claims in a piece of text",
	Long: `Check extracts the factual claims from the given text and verifies
each one against retrieved evidence:
- Extract and classify claims (factual, opinion, prediction, personal)
- Retrieve, deduplicate and rank evidence per claim
- Score claim/evidence entailment
- Assign a verdict with calibrated confidence and a rationale

Text is read from the argument, from --file, or from stdin.

Example:
  verdex check "GDP grew 3 percent in the second quarter."
  verdex check --file article.txt --json report.json
  cat article.txt | verdex check`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Input/output flags
	checkCmd.Flags().StringVar(&inputFile, "file", "", "read content from a file instead of the argument")
	checkCmd.Flags().StringVar(&sourceURL, "source", "", "URL the content came from, recorded with the check")
	checkCmd.Flags().StringVar(&outJSON, "json", "", "write the full check as JSON to this path ('-' for stdout)")

	// Pipeline flags
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall check timeout")
	checkCmd.Flags().IntVar(&maxClaims, "max-claims", 10, "maximum claims verified per check")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh retrieval)")
	checkCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to persist the check (default: no persistence)")
	checkCmd.Flags().BoolVar(&noArchive, "no-archive", false, "do not submit cited URLs for archival")

	// Service flags
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	checkCmd.Flags().StringVar(&searchURL, "search-url", "", "search API base URL (or VERDEX_SEARCH_URL)")
	checkCmd.Flags().StringVar(&nliURL, "nli-url", "", "NLI service base URL (or VERDEX_NLI_URL)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	content, err := readContent(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("no content to check: pass text, --file, or pipe to stdin")
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking %d bytes of content\n", len(content))
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", checkTimeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	p, cleanup, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	check := p.Run(ctx, content, sourceURL)

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Extracted %d claims\n", len(check.Claims))
		fmt.Fprintf(os.Stderr, "✓ Retrieved evidence for %d claims\n", len(check.Evidence))
		fmt.Fprintf(os.Stderr, "✓ Transparency: %.2f\n", check.Transparency)
		fmt.Fprintln(os.Stderr)
	}

	renderer := pipeline.NewRenderer(verbose)
	renderer.RenderSummary(os.Stdout, check)

	if outJSON != "" {
		if err := renderer.RenderJSON(check, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
	}
	return nil
}

// buildConfig assembles pipeline configuration from defaults, flags and
// environment. API keys come from the environment only, never flags.
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	cfg.Output.Verbose = verbose
	cfg.Cache.Enabled = !noCache
	cfg.Pipeline.MaxClaims = maxClaims
	cfg.Pipeline.CheckTimeout = checkTimeout
	cfg.Pipeline.DatabasePath = dbPath
	if noArchive {
		cfg.Features.ArchiveCitations = false
	}

	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	switch llmProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "":
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", llmProvider)
	}
	if cfg.LLM.FallbackProvider == "anthropic" {
		cfg.LLM.FallbackAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")

	if searchURL != "" {
		cfg.Search.BaseURL = searchURL
	} else if env := os.Getenv("VERDEX_SEARCH_URL"); env != "" {
		cfg.Search.BaseURL = env
	}
	cfg.Search.APIKey = os.Getenv("VERDEX_SEARCH_KEY")

	if nliURL != "" {
		cfg.NLI.BaseURL = nliURL
	} else if env := os.Getenv("VERDEX_NLI_URL"); env != "" {
		cfg.NLI.BaseURL = env
	}
	cfg.NLI.APIKey = os.Getenv("VERDEX_NLI_KEY")

	if env := os.Getenv("VERDEX_FACTCHECK_URL"); env != "" {
		cfg.FactCheck.BaseURL = env
		cfg.FactCheck.APIKey = os.Getenv("VERDEX_FACTCHECK_KEY")
	}

	return cfg, nil
}

func readContent(args []string) (string, error) {
	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}

	// Fall back to stdin when piped
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}
