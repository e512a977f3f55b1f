package jurisdiction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deedscope/deedscope/internal/model"
)

// geocodeTimeout bounds the only network tier of resolution.
const geocodeTimeout = 8 * time.Second

// Resolver maps a free-text address to its recording jurisdiction using a
// tiered strategy: catalog name match, city alias, geocode, state/ZIP
// fallback. Each tier is a best-effort side-effect-free lookup; the first
// hit wins and nothing is retried.
type Resolver struct {
	catalog  *Catalog
	geocoder Geocoder
	logger   *slog.Logger
}

// NewResolver creates a resolver over an injected catalog. The geocoder may
// be nil, which disables the network tier.
func NewResolver(catalog *Catalog, geocoder Geocoder, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		catalog:  catalog,
		geocoder: geocoder,
		logger:   logger,
	}
}

// Resolve returns the governing jurisdiction for the address, a degraded
// record when only partial information is available, or nil when nothing
// about the address is resolvable.
func (r *Resolver) Resolve(ctx context.Context, address string) *model.JurisdictionRecord {
	normalized := Normalize(address)

	// Tier 1: exact jurisdiction name in the address text.
	if rec, ok := r.catalog.MatchName(normalized); ok {
		return &rec
	}

	// Tier 2: known city alias token.
	if rec, ok := r.catalog.MatchCity(normalized); ok {
		return &rec
	}

	// Tier 3: geocode to county/state. A county outside the catalog yields
	// a minimal record with empty URLs; a portal URL is never guessed.
	if r.geocoder != nil {
		geoCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
		county, state, err := r.geocoder.Locate(geoCtx, address)
		cancel()
		if err != nil {
			r.logger.Warn("geocode tier failed", "error", err)
		} else if county != "" {
			if rec, ok := r.catalog.ByName(county); ok {
				return &rec
			}
			return &model.JurisdictionRecord{
				Name:  county,
				State: state,
			}
		}
	}

	// Tier 4: state + ZIP parsed from the text. Scoped to the state only;
	// never pick an arbitrary county.
	parsed := ParseAddress(address)
	if parsed.State != "" && parsed.Zip != "" {
		return &model.JurisdictionRecord{
			Name:  fmt.Sprintf("Unknown County (ZIP %s)", parsed.Zip),
			State: parsed.State,
		}
	}

	return nil
}
