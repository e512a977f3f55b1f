package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ExtractResult is the output of the document optical-extraction service
type ExtractResult struct {
	Text       string            `json:"text"`
	PageCount  int               `json:"pageCount"`
	FormFields map[string]string `json:"formFields,omitempty"`
	Tables     [][]string        `json:"tables,omitempty"`
}

// DocumentExtractor turns a PDF-like URL into structured text.
type DocumentExtractor interface {
	ExtractURL(ctx context.Context, rawURL string) (*ExtractResult, error)
}

// HTTPDocumentExtractor downloads a document and posts its bytes to the
// extraction service. Oversized or unsupported documents fail closed: the
// caller gets an error and skips the candidate, never a partial result.
type HTTPDocumentExtractor struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewHTTPDocumentExtractor creates an extractor client.
func NewHTTPDocumentExtractor(baseURL string, timeout time.Duration, userAgent string, maxBytes int64) *HTTPDocumentExtractor {
	if maxBytes <= 0 {
		maxBytes = 10_000_000
	}
	return &HTTPDocumentExtractor{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBytes:   maxBytes,
	}
}

// ExtractURL fetches the document and extracts its text, form fields, and
// table rows.
func (e *HTTPDocumentExtractor) ExtractURL(ctx context.Context, rawURL string) (*ExtractResult, error) {
	raw, err := e.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/extract", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extract: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20_000_000))
	if err != nil {
		return nil, fmt.Errorf("read extract body: %w", err)
	}

	var result ExtractResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}

	return &result, nil
}

func (e *HTTPDocumentExtractor) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	// One byte past the cap distinguishes at-cap from over-cap.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(raw)) > e.maxBytes {
		return nil, fmt.Errorf("document exceeds %d byte cap", e.maxBytes)
	}

	return raw, nil
}
