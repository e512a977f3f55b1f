package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/deedscope/deedscope/internal/jurisdiction"
	"github.com/deedscope/deedscope/internal/model"
)

// propertyTokens raise a page URL's scrape priority.
var propertyTokens = []string{
	"assessor", "recorder", "deed", "tax", "clerk", "county",
	"zillow", "redfin", "realtor", "trulia", "publicsearch",
}

// Retriever gathers candidate source documents for an address from web
// search, page scrapes, PDF extraction, and direct office queries. It
// degrades gracefully: any individual candidate may fail without aborting
// the batch, down to an empty result set.
type Retriever struct {
	searcher  Searcher
	extractor DocumentExtractor
	scraper   *PageScraper
	office    *OfficeClient
	cfg       model.RetrievalConfig
	conc      model.ConcurrencyConfig
	logger    *slog.Logger
}

// NewRetriever wires a retriever from its collaborators. Searcher and
// extractor may be nil, which disables those channels.
func NewRetriever(searcher Searcher, extractor DocumentExtractor, scraper *PageScraper, office *OfficeClient, cfg model.RetrievalConfig, conc model.ConcurrencyConfig, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		searcher:  searcher,
		extractor: extractor,
		scraper:   scraper,
		office:    office,
		cfg:       cfg,
		conc:      conc,
		logger:    logger,
	}
}

// Retrieve returns up to the configured cap of deduplicated documents for
// the address. Jurisdiction may be nil when resolution failed entirely.
func (r *Retriever) Retrieve(ctx context.Context, address string, record *model.JurisdictionRecord) []model.RetrievedDocument {
	jurisdictionName := ""
	if record != nil {
		jurisdictionName = record.Name
	}

	candidates := r.collectCandidates(ctx, address, jurisdictionName)

	var docs []model.RetrievedDocument

	// The direct office hit already carries content; it becomes a document
	// without another fetch.
	if candidates.office != nil {
		text := reduceHTML(candidates.office.Content)
		if len(text) >= r.cfg.MinTextChars {
			docs = append(docs, model.RetrievedDocument{
				Source:   model.SourceCountyOffice,
				URL:      candidates.office.URL,
				Text:     text,
				Kind:     model.DocumentKindWebpage,
				Citation: newCitation(model.SourceCountyOffice, candidates.office.URL, text),
			})
		}
	}

	pdfURLs, pageURLs := partitionURLs(candidates.urls)
	if len(pdfURLs) > r.cfg.PDFLimit {
		pdfURLs = pdfURLs[:r.cfg.PDFLimit]
	}
	pageURLs = prioritizePages(pageURLs)
	if len(pageURLs) > r.cfg.PageLimit {
		pageURLs = pageURLs[:r.cfg.PageLimit]
	}

	docs = append(docs, r.extractPDFs(ctx, pdfURLs)...)
	docs = append(docs, r.scrapePages(ctx, pageURLs, r.cfg.DocumentCap-len(docs))...)

	docs = dedupeDocuments(docs)
	if len(docs) > r.cfg.DocumentCap {
		docs = docs[:r.cfg.DocumentCap]
	}

	r.logger.Info("retrieval complete",
		"address", address,
		"jurisdiction", jurisdictionName,
		"candidates", len(candidates.urls),
		"documents", len(docs),
	)

	return docs
}

type candidateSet struct {
	urls   []string
	office *SearchResult
}

// collectCandidates fans out the fixed search queries and the optional
// direct office query. Individual failures are logged and swallowed.
func (r *Retriever) collectCandidates(ctx context.Context, address, jurisdictionName string) candidateSet {
	var (
		mu     sync.Mutex
		out    candidateSet
		g      errgroup.Group
		seen   = make(map[string]bool)
		addURL = func(raw string) {
			if raw == "" || seen[raw] {
				return
			}
			seen[raw] = true
			out.urls = append(out.urls, raw)
		}
	)

	workers := r.conc.SearchWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)

	if r.searcher != nil {
		for _, query := range searchQueries(address, jurisdictionName) {
			query := query
			g.Go(func() error {
				results, err := r.searcher.Search(ctx, query)
				if err != nil {
					r.logger.Warn("search query failed", "query", query, "error", err)
					return nil
				}
				mu.Lock()
				for _, res := range results {
					addURL(res.URL)
				}
				mu.Unlock()
				return nil
			})
		}
	}

	if r.office != nil && jurisdictionName != "" && r.office.HasTemplate(jurisdictionName) {
		g.Go(func() error {
			hit, err := r.office.Query(ctx, jurisdictionName, jurisdiction.ParseAddress(address))
			if err != nil {
				r.logger.Warn("office query failed", "jurisdiction", jurisdictionName, "error", err)
				return nil
			}
			if hit != nil {
				mu.Lock()
				out.office = hit
				seen[hit.URL] = true // Never re-fetch the office URL as a page
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return out
}

func (r *Retriever) extractPDFs(ctx context.Context, urls []string) []model.RetrievedDocument {
	if r.extractor == nil || len(urls) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		docs []model.RetrievedDocument
		g    errgroup.Group
	)
	workers := r.conc.FetchWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)

	for _, rawURL := range urls {
		rawURL := rawURL
		g.Go(func() error {
			result, err := r.extractor.ExtractURL(ctx, rawURL)
			if err != nil {
				r.logger.Warn("pdf extraction failed", "url", rawURL, "error", err)
				return nil
			}
			if len(result.Text) < r.cfg.MinTextChars {
				r.logger.Debug("pdf text below minimum, discarded", "url", rawURL, "chars", len(result.Text))
				return nil
			}

			text := appendExtractionAppendix(result.Text, result.FormFields, result.Tables)
			mu.Lock()
			docs = append(docs, model.RetrievedDocument{
				Source:     model.SourceWebSearch,
				URL:        rawURL,
				Text:       text,
				Kind:       model.DocumentKindPDF,
				Citation:   newCitation(model.SourceWebSearch, rawURL, text),
				FormFields: result.FormFields,
				Tables:     result.Tables,
				PageCount:  result.PageCount,
			})
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return docs
}

func (r *Retriever) scrapePages(ctx context.Context, urls []string, budget int) []model.RetrievedDocument {
	if r.scraper == nil || len(urls) == 0 || budget <= 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		docs []model.RetrievedDocument
		g    errgroup.Group
	)
	workers := r.conc.FetchWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)

	for _, rawURL := range urls {
		rawURL := rawURL
		g.Go(func() error {
			mu.Lock()
			enough := len(docs) >= budget
			mu.Unlock()
			if enough {
				return nil
			}

			text, err := r.scraper.Scrape(ctx, rawURL)
			if err != nil {
				r.logger.Warn("page scrape failed", "url", rawURL, "error", err)
				return nil
			}
			if len(text) < r.cfg.MinTextChars {
				return nil
			}

			mu.Lock()
			if len(docs) < budget {
				docs = append(docs, model.RetrievedDocument{
					Source:   model.SourcePageScrape,
					URL:      rawURL,
					Text:     text,
					Kind:     model.DocumentKindWebpage,
					Citation: newCitation(model.SourcePageScrape, rawURL, text),
				})
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return docs
}

// partitionURLs splits candidates into PDF-like and page-like by
// extension/path heuristic.
func partitionURLs(urls []string) (pdfLike, pageLike []string) {
	for _, raw := range urls {
		if isPDFLike(raw) {
			pdfLike = append(pdfLike, raw)
		} else {
			pageLike = append(pageLike, raw)
		}
	}
	return pdfLike, pageLike
}

func isPDFLike(raw string) bool {
	lower := strings.ToLower(raw)
	if parsed, err := url.Parse(lower); err == nil {
		if strings.HasSuffix(parsed.Path, ".pdf") {
			return true
		}
	}
	return strings.Contains(lower, "format=pdf") || strings.Contains(lower, "/pdf/")
}

// prioritizePages orders page URLs so property-related sites are scraped
// before the budget runs out. The sort is stable: equal scores keep their
// search ranking.
func prioritizePages(urls []string) []string {
	scored := make([]string, len(urls))
	copy(scored, urls)
	sort.SliceStable(scored, func(i, j int) bool {
		return pageScore(scored[i]) > pageScore(scored[j])
	})
	return scored
}

func pageScore(raw string) int {
	lower := strings.ToLower(raw)
	score := 0
	for _, token := range propertyTokens {
		if strings.Contains(lower, token) {
			score++
		}
	}
	return score
}

func dedupeDocuments(docs []model.RetrievedDocument) []model.RetrievedDocument {
	seen := make(map[string]bool, len(docs))
	out := docs[:0]
	for _, doc := range docs {
		if seen[doc.URL] {
			continue
		}
		seen[doc.URL] = true
		out = append(out, doc)
	}
	return out
}

// appendExtractionAppendix merges form fields and table rows into the
// document text so the fact extractors see them.
func appendExtractionAppendix(text string, formFields map[string]string, tables [][]string) string {
	var b strings.Builder
	b.WriteString(text)

	if len(formFields) > 0 {
		b.WriteString("\n\n--- Extracted Form Fields ---\n")
		keys := make([]string, 0, len(formFields))
		for k := range formFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, formFields[k])
		}
	}

	if len(tables) > 0 {
		b.WriteString("\n--- Extracted Tables ---\n")
		for _, row := range tables {
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// reduceHTML strips markup when the office endpoint answers with HTML.
func reduceHTML(content string) string {
	if !strings.Contains(content, "<") {
		return strings.TrimSpace(content)
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}
	text := extractVisibleText(doc)
	if text == "" {
		return strings.TrimSpace(content)
	}
	return text
}
