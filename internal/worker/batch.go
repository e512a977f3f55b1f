package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/deedscope/deedscope/internal/model"
)

// Analyzer runs one full title analysis for an address.
type Analyzer interface {
	Analyze(ctx context.Context, address string) (*model.Report, error)
}

// BatchResult is the outcome of analyzing one address
type BatchResult struct {
	Address string
	Report  *model.Report
	Err     error
}

// BatchProcessor analyzes multiple addresses concurrently with a bounded
// worker count. Individual failures never stop the batch.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// Process analyzes the addresses and returns one result per address,
// in input order.
func (b *BatchProcessor) Process(ctx context.Context, addresses []string) []BatchResult {
	results := make([]BatchResult, len(addresses))
	if len(addresses) == 0 {
		return results
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for i, address := range addresses {
		wg.Add(1)
		go func(i int, address string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = BatchResult{Address: address, Err: ctx.Err()}
				return
			}
			report, err := b.analyzer.Analyze(ctx, address)
			results[i] = BatchResult{Address: address, Report: report, Err: err}
		}(i, address)
	}

	wg.Wait()
	return results
}

// ProcessFile reads addresses from a file and analyzes them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]BatchResult, error) {
	addresses, err := ReadAddressesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read addresses: %w", err)
	}

	return b.Process(ctx, addresses), nil
}

// ReadAddressesFromFile reads addresses from a file (one per line).
// Blank lines and #-comments are skipped; duplicates are dropped.
func ReadAddressesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var addresses []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			addresses = append(addresses, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return addresses, nil
}
