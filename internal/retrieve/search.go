package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SearchResult is one hit from the web-search utility
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Searcher queries the web-search capability. Best effort: no availability
// guarantee, and callers must tolerate empty results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// HTTPSearcher queries a SearxNG-compatible JSON search endpoint.
type HTTPSearcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSearcher creates a searcher against the given base URL.
func NewHTTPSearcher(baseURL string, timeout time.Duration) *HTTPSearcher {
	return &HTTPSearcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs one query and returns its hits.
func (s *HTTPSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", s.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2_000_000))
	if err != nil {
		return nil, fmt.Errorf("read search body: %w", err)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return decoded.Results, nil
}

// searchQueries returns the fixed query set for an address and jurisdiction.
func searchQueries(address, jurisdictionName string) []string {
	return []string{
		fmt.Sprintf("%q deed records %s", address, jurisdictionName),
		fmt.Sprintf("%q property ownership history %s recorder", address, jurisdictionName),
		fmt.Sprintf("%q lien records", address),
		fmt.Sprintf("%q tax assessment parcel", address),
		fmt.Sprintf("%q title documents %s", address, jurisdictionName),
	}
}
