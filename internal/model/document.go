package model

import "time"

// DocumentKind classifies how a retrieved document was obtained
type DocumentKind string

const (
	DocumentKindPDF     DocumentKind = "pdf"     // Extracted from a PDF file
	DocumentKindWebpage DocumentKind = "webpage" // Scraped page text
	DocumentKindAgent   DocumentKind = "agent"   // Produced by the browser automation sidecar
)

// SourceType identifies the origin tier of a document or fact.
// The confidence engine assigns base trust per tier.
type SourceType string

const (
	SourceBrowserAgent SourceType = "browser_agent" // Automated browser on the jurisdiction site
	SourceCountyOffice SourceType = "county_office" // Direct structured query to a county endpoint
	SourcePageScrape   SourceType = "page_scrape"   // Direct page scrape
	SourceWebSearch    SourceType = "web_search"    // Web search derived
	SourceManualEntry  SourceType = "manual_entry"  // Human entered
	SourceDemoData     SourceType = "demo_data"     // Demonstration data, never trustworthy
)

// SourceCitation records where a retrieved document came from.
// One citation exists per document; facts reference citations by id.
type SourceCitation struct {
	ID               string     `json:"id"`
	SourceType       SourceType `json:"sourceType"`
	SourceName       string     `json:"sourceName"`
	URL              string     `json:"url"`
	RetrievedAt      time.Time  `json:"retrievedAt"`
	Excerpt          string     `json:"excerpt"` // At most 500 characters
	DocumentType     string     `json:"documentType,omitempty"`
	InstrumentNumber string     `json:"instrumentNumber,omitempty"`
}

// RetrievedDocument is one source document gathered for an analysis.
// Immutable after creation; owned by the pipeline invocation that fetched it.
type RetrievedDocument struct {
	Source     SourceType        `json:"source"`
	URL        string            `json:"url"`
	Text       string            `json:"text"`
	Kind       DocumentKind      `json:"kind"`
	Citation   SourceCitation    `json:"citation"`
	FormFields map[string]string `json:"formFields,omitempty"`
	Tables     [][]string        `json:"tables,omitempty"`
	PageCount  int               `json:"pageCount,omitempty"`
}

// ExcerptLimit is the maximum citation excerpt length.
const ExcerptLimit = 500

// Excerpt truncates text to the citation excerpt limit.
func Excerpt(text string) string {
	if len(text) <= ExcerptLimit {
		return text
	}
	return text[:ExcerptLimit]
}
