package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deedscope/deedscope/internal/model"
)

// DeedRecord is one ownership transfer as reported by the browser agent.
type DeedRecord struct {
	Date           string `json:"date"`
	Grantor        string `json:"grantor"`
	Grantee        string `json:"grantee"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
}

// LienRecord is one encumbrance as reported by the browser agent.
type LienRecord struct {
	Type         string `json:"type"`
	Claimant     string `json:"claimant"`
	Amount       string `json:"amount"`
	DateRecorded string `json:"dateRecorded"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
}

// Result is the structured payload of a result frame.
type Result struct {
	Address          string       `json:"address"`
	County           string       `json:"county"`
	ParcelID         string       `json:"parcelId"`
	LegalDescription string       `json:"legalDescription"`
	OwnershipChain   []DeedRecord `json:"ownershipChain"`
	Liens            []LienRecord `json:"liens"`
	Source           string       `json:"source"`
}

// Client talks to the browser-agent sidecar. The sidecar drives a real
// browser session against county recorder portals and streams its progress
// back frame by frame.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a sidecar client. The timeout bounds the whole streamed
// session, not individual frames.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Healthy probes the sidecar's health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	if c == nil || c.baseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// SearchStream runs a streamed records search for the address. Every decoded
// event is passed to onEvent before the final result is returned. An error
// frame terminates the stream with that error; a stream that ends without a
// result frame is also an error.
func (c *Client) SearchStream(ctx context.Context, address, county string, onEvent func(Event)) (*Result, error) {
	payload, err := json.Marshal(map[string]string{
		"address": address,
		"county":  county,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search-stream", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("agent search: unexpected status %d", resp.StatusCode)
	}

	decoder := NewDecoder(resp.Body)
	for {
		evt, err := decoder.Next()
		if err == io.EOF {
			return nil, errors.New("agent stream ended without a result")
		}
		if err != nil {
			return nil, fmt.Errorf("read agent stream: %w", err)
		}

		if onEvent != nil {
			onEvent(*evt)
		}

		switch evt.Type {
		case EventError:
			msg := evt.Error
			if msg == "" {
				msg = evt.Message
			}
			if msg == "" {
				msg = "unspecified agent failure"
			}
			return nil, fmt.Errorf("agent search: %s", msg)
		case EventResult:
			var result Result
			if len(evt.Data) > 0 {
				if err := json.Unmarshal(evt.Data, &result); err != nil {
					return nil, fmt.Errorf("decode agent result: %w", err)
				}
			}
			return &result, nil
		default:
			// progress, screenshot, live_view, debug: relay only
		}
	}
}

// Document renders the agent result as a retrieved document so the fact
// extractors consume it the same way as scraped and extracted sources.
func (r *Result) Document(searchURL string) model.RetrievedDocument {
	text := r.renderText()
	return model.RetrievedDocument{
		Source: model.SourceBrowserAgent,
		URL:    searchURL,
		Text:   text,
		Kind:   model.DocumentKindAgent,
		Citation: model.SourceCitation{
			ID:          uuid.NewString(),
			SourceType:  model.SourceBrowserAgent,
			SourceName:  r.County + " recorder portal",
			URL:         searchURL,
			RetrievedAt: time.Now().UTC(),
			Excerpt:     model.Excerpt(text),
		},
	}
}

func (r *Result) renderText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "County recorder search results for %s\n", r.Address)
	if r.County != "" {
		fmt.Fprintf(&b, "County: %s\n", r.County)
	}
	if r.ParcelID != "" {
		fmt.Fprintf(&b, "Parcel ID: %s\n", r.ParcelID)
	}
	if r.LegalDescription != "" {
		fmt.Fprintf(&b, "Legal Description: %s\n", r.LegalDescription)
	}

	if len(r.OwnershipChain) > 0 {
		b.WriteString("\nRecorded ownership transfers:\n")
		for _, deed := range r.OwnershipChain {
			fmt.Fprintf(&b, "- %s: %s conveyed to %s by %s", deed.Date, deed.Grantor, deed.Grantee, deed.DocumentType)
			if deed.DocumentNumber != "" {
				fmt.Fprintf(&b, " (Instrument No. %s)", deed.DocumentNumber)
			}
			b.WriteString("\n")
		}
	}

	if len(r.Liens) > 0 {
		b.WriteString("\nRecorded liens and encumbrances:\n")
		for _, lien := range r.Liens {
			fmt.Fprintf(&b, "- %s held by %s", lien.Type, lien.Claimant)
			if lien.Amount != "" {
				fmt.Fprintf(&b, " for %s", lien.Amount)
			}
			if lien.DateRecorded != "" {
				fmt.Fprintf(&b, ", recorded %s", lien.DateRecorded)
			}
			if lien.Status != "" {
				fmt.Fprintf(&b, ", status %s", lien.Status)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
