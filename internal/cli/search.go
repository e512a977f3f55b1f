package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deedscope/deedscope/internal/cache"
	"github.com/deedscope/deedscope/internal/pipeline"
)

var (
	outJSON       string
	searchTimeout time.Duration
	demoMode      bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <address>",
	Short: "Run a full title analysis for one property address",
	Long: `Search resolves the address to its recording jurisdiction, gathers
county records and deeds from public sources, extracts the chain of
title and liens, scores confidence, and assembles the ALTA-style
commitment schedules.

Example:
  deedscope search "123 Main St, Houston, TX 77002"
  deedscope search "123 Main St, Houston, TX 77002" --json report.json
  deedscope search "123 Main St, Houston, TX 77002" --demo`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&outJSON, "json", "", "write the report to this path instead of stdout")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 10*time.Minute, "overall analysis timeout")
	searchCmd.Flags().BoolVar(&demoMode, "demo", false, "use deterministic demonstration data (no network)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	address := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if demoMode {
		cfg.Demo = true
	}

	logger := newLogger()
	p, err := pipeline.New(cfg, cache.NewHealthCache(time.Hour), logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	report, err := p.Analyze(ctx, address)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Chain transfers:  %d\n", len(report.OwnershipChain))
		fmt.Fprintf(os.Stderr, "Liens:            %d\n", len(report.Liens))
		fmt.Fprintf(os.Stderr, "Exceptions:       %d\n", len(report.Exceptions))
		fmt.Fprintf(os.Stderr, "Confidence:       %s (%d/100)\n",
			report.OverallConfidence.Level, report.OverallConfidence.Score)
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if outJSON != "" {
		if err := os.WriteFile(outJSON, encoded, 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outJSON)
		return nil
	}

	fmt.Println(string(encoded))
	return nil
}
