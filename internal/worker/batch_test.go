package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deedscope/deedscope/internal/model"
)

type fakeAnalyzer struct {
	calls   atomic.Int64
	active  atomic.Int64
	maxSeen atomic.Int64
	failFor string
	delay   time.Duration
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, address string) (*model.Report, error) {
	f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if cur <= seen || f.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if address == f.failFor {
		return nil, errors.New("boom")
	}
	return &model.Report{Address: address}, nil
}

func TestBatchProcessor_OrderAndIsolation(t *testing.T) {
	analyzer := &fakeAnalyzer{failFor: "bad address"}
	batch := NewBatchProcessor(analyzer, 3)

	addresses := []string{"a street", "bad address", "c street"}
	results := batch.Process(context.Background(), addresses)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, addr := range addresses {
		if results[i].Address != addr {
			t.Errorf("results[%d].Address = %q, want %q", i, results[i].Address, addr)
		}
	}
	if results[1].Err == nil {
		t.Error("expected error for bad address")
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("one failed address must not fail the others")
	}
	if results[0].Report == nil || results[2].Report == nil {
		t.Error("expected reports for successful addresses")
	}
}

func TestBatchProcessor_BoundedConcurrency(t *testing.T) {
	analyzer := &fakeAnalyzer{delay: 20 * time.Millisecond}
	batch := NewBatchProcessor(analyzer, 2)

	addresses := []string{"a", "b", "c", "d", "e", "f"}
	batch.Process(context.Background(), addresses)

	if got := analyzer.maxSeen.Load(); got > 2 {
		t.Errorf("max concurrent analyses = %d, want <= 2", got)
	}
	if got := analyzer.calls.Load(); got != 6 {
		t.Errorf("calls = %d, want 6", got)
	}
}

func TestReadAddressesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addresses.txt")
	content := "123 Main St, Austin, TX\n\n# comment\n456 Oak Ave, Dallas, TX\n123 Main St, Austin, TX\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	addresses, err := ReadAddressesFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"123 Main St, Austin, TX", "456 Oak Ave, Dallas, TX"}
	if len(addresses) != len(want) {
		t.Fatalf("got %d addresses, want %d: %v", len(addresses), len(want), addresses)
	}
	for i := range want {
		if addresses[i] != want[i] {
			t.Errorf("addresses[%d] = %q, want %q", i, addresses[i], want[i])
		}
	}
}
