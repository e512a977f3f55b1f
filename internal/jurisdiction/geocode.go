package jurisdiction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/deedscope/deedscope/internal/cache"
)

// Geocoder resolves a free-text address to a county and state.
type Geocoder interface {
	Locate(ctx context.Context, address string) (county, state string, err error)
}

// CensusGeocoder queries the US Census geocoding service for the county
// geography of an address. Results are memoized; the service is free but slow.
type CensusGeocoder struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
}

const defaultCensusBaseURL = "https://geocoding.geo.census.gov"

// NewCensusGeocoder creates a geocoder. An empty baseURL selects the public
// Census endpoint; tests point it at a local server.
func NewCensusGeocoder(baseURL string, timeout time.Duration, memo cache.Cache) *CensusGeocoder {
	if baseURL == "" {
		baseURL = defaultCensusBaseURL
	}
	return &CensusGeocoder{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      memo,
		cacheTTL:   24 * time.Hour,
	}
}

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			AddressComponents struct {
				State string `json:"state"`
			} `json:"addressComponents"`
			Geographies map[string][]struct {
				Name string `json:"NAME"`
			} `json:"geographies"`
		} `json:"addressMatches"`
	} `json:"result"`
}

type geocodeHit struct {
	County string `json:"county"`
	State  string `json:"state"`
}

// Locate resolves the address to a county name and state code.
// Returns empty strings without error when the service finds no match.
func (g *CensusGeocoder) Locate(ctx context.Context, address string) (string, string, error) {
	key := cache.Key("geocode:" + address)
	if g.cache != nil {
		if data, found := g.cache.Get(key); found {
			var hit geocodeHit
			if err := json.Unmarshal(data, &hit); err == nil {
				return hit.County, hit.State, nil
			}
		}
	}

	endpoint := fmt.Sprintf(
		"%s/geocoder/geographies/onelineaddress?address=%s&benchmark=Public_AR_Current&vintage=Current_Current&layers=Counties&format=json",
		g.baseURL, url.QueryEscape(address),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1_000_000))
	if err != nil {
		return "", "", fmt.Errorf("read geocode body: %w", err)
	}

	var decoded censusResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", "", fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Result.AddressMatches) == 0 {
		return "", "", nil
	}

	match := decoded.Result.AddressMatches[0]
	county := ""
	if counties, ok := match.Geographies["Counties"]; ok && len(counties) > 0 {
		county = counties[0].Name
	}
	state := match.AddressComponents.State

	if g.cache != nil && county != "" {
		if data, err := json.Marshal(geocodeHit{County: county, State: state}); err == nil {
			_ = g.cache.Set(key, data, g.cacheTTL)
		}
	}

	return county, state, nil
}
