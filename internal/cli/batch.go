package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deedscope/deedscope/internal/cache"
	"github.com/deedscope/deedscope/internal/pipeline"
	"github.com/deedscope/deedscope/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple addresses from a file in parallel",
	Long: `Batch reads property addresses from a file (one per line, # for
comments) and runs a full title analysis for each, writing one JSON
report per address.

Example:
  deedscope batch addresses.txt
  deedscope batch addresses.txt --concurrency 2 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent analyses (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./deedscope-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&demoMode, "demo", false, "use deterministic demonstration data (no network)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if demoMode {
		cfg.Demo = true
	}
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.BatchWorkers
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logger := newLogger()
	p, err := pipeline.New(cfg, cache.NewHealthCache(time.Hour), logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "Reading addresses from %s\n", file)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Analyzing %d address(es) with %d worker(s)\n\n", len(results), concurrency)

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", result.Address, result.Err)
			continue
		}
		successCount++

		path := filepath.Join(outputDir, addressSlug(result.Address)+".json")
		encoded, err := json.MarshalIndent(result.Report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: encode report: %v\n", result.Address, err)
			continue
		}
		if err := os.WriteFile(path, encoded, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: write report: %v\n", result.Address, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "OK   %s (confidence %s, %d/100)\n",
			result.Address, result.Report.OverallConfidence.Level, result.Report.OverallConfidence.Score)
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d  Output: %s\n",
		len(results), successCount, failureCount, outputDir)
	return nil
}

// addressSlug sanitizes an address for use as a filename.
func addressSlug(address string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(address) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == ',' || r == '/':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if len(slug) > 100 {
		slug = slug[:100]
	}
	if slug == "" {
		slug = "report"
	}
	return slug
}
