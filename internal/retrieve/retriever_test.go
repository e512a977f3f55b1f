package retrieve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deedscope/deedscope/internal/model"
	"github.com/deedscope/deedscope/internal/util"
	"github.com/deedscope/deedscope/internal/worker"
)

type fakeSearcher struct {
	results map[string][]SearchResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	for key, results := range f.results {
		if strings.Contains(query, key) {
			return results, nil
		}
	}
	return nil, nil
}

type fakeExtractor struct {
	results map[string]*ExtractResult
}

func (f *fakeExtractor) ExtractURL(ctx context.Context, rawURL string) (*ExtractResult, error) {
	if result, ok := f.results[rawURL]; ok {
		return result, nil
	}
	return nil, errors.New("extraction failed")
}

func testConfig() model.RetrievalConfig {
	return model.RetrievalConfig{
		DocumentCap:    15,
		PDFLimit:       10,
		PageLimit:      8,
		MinTextChars:   50,
		RequestsPerSec: 100,
		Burst:          100,
	}
}

func testScraper(t *testing.T) *PageScraper {
	t.Helper()
	robots := util.NewRobotsChecker("deedscope-test", 5*time.Second)
	limiter := worker.NewLimiter(100, 100)
	return NewPageScraper(5*time.Second, "deedscope-test", 1_000_000, robots, limiter)
}

func longPage(label string) string {
	return fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>",
		label, strings.Repeat("Deed record grantor grantee. ", 10))
}

func TestRetriever_CapAndDedupe(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var pageURLs []SearchResult
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/recorder/page-%d", i)
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, longPage(r.URL.Path))
		})
		u := server.URL + path
		// Every URL appears twice across queries.
		pageURLs = append(pageURLs, SearchResult{URL: u}, SearchResult{URL: u})
	}

	searcher := &fakeSearcher{results: map[string][]SearchResult{"deed": pageURLs}}
	cfg := testConfig()
	retriever := NewRetriever(searcher, nil, testScraper(t), nil, cfg, model.ConcurrencyConfig{SearchWorkers: 4, FetchWorkers: 4}, nil)

	docs := retriever.Retrieve(context.Background(), "123 Main St, Houston, TX", &model.JurisdictionRecord{Name: "Harris County"})

	if len(docs) > cfg.DocumentCap {
		t.Errorf("got %d documents, cap is %d", len(docs), cfg.DocumentCap)
	}
	if len(docs) > cfg.PageLimit {
		t.Errorf("got %d scraped pages, page limit is %d", len(docs), cfg.PageLimit)
	}
	seen := make(map[string]bool)
	for _, doc := range docs {
		if seen[doc.URL] {
			t.Errorf("duplicate URL in results: %s", doc.URL)
		}
		seen[doc.URL] = true
		if doc.Citation.ID == "" {
			t.Error("document missing citation id")
		}
		if doc.Citation.SourceType != model.SourcePageScrape {
			t.Errorf("citation source = %s, want page_scrape", doc.Citation.SourceType)
		}
	}
}

func TestRetriever_PDFExtractionAppendix(t *testing.T) {
	pdfURL := "https://records.example.com/docs/warranty-deed.pdf"
	searcher := &fakeSearcher{results: map[string][]SearchResult{"deed": {{URL: pdfURL}}}}
	extractor := &fakeExtractor{results: map[string]*ExtractResult{
		pdfURL: {
			Text:       strings.Repeat("WARRANTY DEED Instrument No. 2021-446871 ", 5),
			PageCount:  3,
			FormFields: map[string]string{"Grantor": "Sunset Realty LLC"},
			Tables:     [][]string{{"2021-03-01", "Warranty Deed", "2021-446871"}},
		},
	}}

	retriever := NewRetriever(searcher, extractor, nil, nil, testConfig(), model.ConcurrencyConfig{}, nil)
	docs := retriever.Retrieve(context.Background(), "123 Main St", &model.JurisdictionRecord{Name: "Harris County"})

	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	doc := docs[0]
	if doc.Kind != model.DocumentKindPDF {
		t.Errorf("kind = %s, want pdf", doc.Kind)
	}
	if !strings.Contains(doc.Text, "Extracted Form Fields") || !strings.Contains(doc.Text, "Grantor: Sunset Realty LLC") {
		t.Error("form fields not merged into document text")
	}
	if !strings.Contains(doc.Text, "2021-03-01 | Warranty Deed | 2021-446871") {
		t.Error("table rows not merged into document text")
	}
	if doc.Citation.InstrumentNumber != "2021-446871" {
		t.Errorf("instrument number = %q", doc.Citation.InstrumentNumber)
	}
	if doc.Citation.DocumentType != "Warranty Deed" {
		t.Errorf("document type = %q", doc.Citation.DocumentType)
	}
}

func TestRetriever_ShortPDFDiscarded(t *testing.T) {
	pdfURL := "https://records.example.com/docs/stub.pdf"
	searcher := &fakeSearcher{results: map[string][]SearchResult{"deed": {{URL: pdfURL}}}}
	extractor := &fakeExtractor{results: map[string]*ExtractResult{
		pdfURL: {Text: "too short"},
	}}

	retriever := NewRetriever(searcher, extractor, nil, nil, testConfig(), model.ConcurrencyConfig{}, nil)
	docs := retriever.Retrieve(context.Background(), "123 Main St", nil)

	if len(docs) != 0 {
		t.Errorf("got %d documents, want 0 (text under minimum)", len(docs))
	}
}

func TestRetriever_SearchFailureDegradesToEmpty(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("search backend down")}
	retriever := NewRetriever(searcher, nil, nil, nil, testConfig(), model.ConcurrencyConfig{}, nil)

	docs := retriever.Retrieve(context.Background(), "123 Main St", nil)
	if len(docs) != 0 {
		t.Errorf("got %d documents, want 0", len(docs))
	}
}

func TestPartitionURLs(t *testing.T) {
	pdfs, pages := partitionURLs([]string{
		"https://a.example.com/deed.pdf",
		"https://b.example.com/view?format=pdf&id=7",
		"https://c.example.com/assessor/parcel/42",
		"https://d.example.com/DEED.PDF",
	})
	if len(pdfs) != 3 {
		t.Errorf("pdf-like = %v", pdfs)
	}
	if len(pages) != 1 {
		t.Errorf("page-like = %v", pages)
	}
}

func TestPrioritizePages(t *testing.T) {
	ordered := prioritizePages([]string{
		"https://blog.example.com/article",
		"https://county-assessor.example.gov/tax/parcel",
		"https://www.zillow.com/homedetails/123-main",
	})
	if !strings.Contains(ordered[0], "assessor") {
		t.Errorf("expected assessor URL first, got %s", ordered[0])
	}
	if !strings.Contains(ordered[len(ordered)-1], "blog") {
		t.Errorf("expected blog URL last, got %s", ordered[len(ordered)-1])
	}
}
