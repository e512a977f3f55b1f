package retrieve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deedscope/deedscope/internal/model"
)

// officeQueryTemplates maps jurisdiction names to tax-office account search
// URLs. Placeholders: {street}, {zip}. Only jurisdictions listed here get a
// direct query; everything else relies on search and scraping.
var officeQueryTemplates = map[string]string{
	"Harris County": "https://www.hctax.net/Property/Accounts/Search?street={street}&zip={zip}",
	"Travis County": "https://tax-office.traviscountytx.gov/property-search?address={street}",
	"Dallas County": "https://www.dallasact.com/act_webdev/dallas/searchbyaddress.jsp?street={street}&zip={zip}",
}

// OfficeClient issues direct structured queries to county tax-office
// endpoints for jurisdictions with a registered template.
type OfficeClient struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	templates  map[string]string
}

// NewOfficeClient creates an office client with the built-in templates.
func NewOfficeClient(timeout time.Duration, userAgent string, maxBytes int64) *OfficeClient {
	return &OfficeClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBytes:   maxBytes,
		templates:  officeQueryTemplates,
	}
}

// HasTemplate reports whether a direct query is registered for the jurisdiction.
func (o *OfficeClient) HasTemplate(jurisdictionName string) bool {
	_, ok := o.templates[jurisdictionName]
	return ok
}

// Query runs the direct tax-office search. No results is success with nil,
// not an error.
func (o *OfficeClient) Query(ctx context.Context, jurisdictionName string, addr model.ParsedAddress) (*SearchResult, error) {
	template, ok := o.templates[jurisdictionName]
	if !ok {
		return nil, nil
	}

	endpoint := strings.NewReplacer(
		"{street}", url.QueryEscape(addr.FullStreet),
		"{zip}", url.QueryEscape(addr.Zip),
	).Replace(template)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", o.userAgent)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("office query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("office query: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, o.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read office response: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	return &SearchResult{
		URL:     endpoint,
		Title:   fmt.Sprintf("%s tax office record", jurisdictionName),
		Content: string(body),
	}, nil
}
