package jurisdiction

import (
	"context"
	"testing"
)

type fakeGeocoder struct {
	county string
	state  string
	err    error
	calls  int
}

func (f *fakeGeocoder) Locate(ctx context.Context, address string) (string, string, error) {
	f.calls++
	return f.county, f.state, f.err
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("load default catalog: %v", err)
	}
	return catalog
}

func TestResolver_CatalogNameMatch(t *testing.T) {
	resolver := NewResolver(testCatalog(t), nil, nil)

	// Casing and punctuation must not matter.
	addresses := []string{
		"123 Main St, Harris County, TX 77002",
		"123 main st., HARRIS COUNTY, tx 77002",
		"123 Main St; harris county; TX",
	}
	for _, addr := range addresses {
		rec := resolver.Resolve(context.Background(), addr)
		if rec == nil {
			t.Fatalf("Resolve(%q) = nil, want Harris County", addr)
		}
		if rec.Name != "Harris County" {
			t.Errorf("Resolve(%q) = %q, want Harris County", addr, rec.Name)
		}
		if rec.SearchURL == "" {
			t.Errorf("Resolve(%q) returned record without search URL", addr)
		}
	}
}

func TestResolver_CityAlias(t *testing.T) {
	resolver := NewResolver(testCatalog(t), nil, nil)

	rec := resolver.Resolve(context.Background(), "500 Congress Ave, Austin, TX 78701")
	if rec == nil || rec.Name != "Travis County" {
		t.Fatalf("expected Travis County via austin alias, got %+v", rec)
	}
}

func TestResolver_NameBeatsAlias(t *testing.T) {
	resolver := NewResolver(testCatalog(t), nil, nil)

	// "dallas" the city token must not outrank an explicit county name.
	rec := resolver.Resolve(context.Background(), "dallas rd, tarrant county, tx")
	if rec == nil || rec.Name != "Tarrant County" {
		t.Fatalf("expected Tarrant County, got %+v", rec)
	}
}

func TestResolver_GeocodeCatalogHit(t *testing.T) {
	geo := &fakeGeocoder{county: "Cook County", state: "IL"}
	resolver := NewResolver(testCatalog(t), geo, nil)

	rec := resolver.Resolve(context.Background(), "233 S Wacker Dr 60606")
	if rec == nil || rec.Name != "Cook County" {
		t.Fatalf("expected Cook County from geocoder, got %+v", rec)
	}
	if rec.SearchURL == "" {
		t.Error("catalog hit via geocode should carry the catalog search URL")
	}
	if geo.calls != 1 {
		t.Errorf("geocoder called %d times, want 1", geo.calls)
	}
}

func TestResolver_GeocodeUnknownCounty(t *testing.T) {
	geo := &fakeGeocoder{county: "Deaf Smith County", state: "TX"}
	resolver := NewResolver(testCatalog(t), geo, nil)

	rec := resolver.Resolve(context.Background(), "100 Ranch Rd, Hereford")
	if rec == nil {
		t.Fatal("expected synthesized record, got nil")
	}
	if rec.Name != "Deaf Smith County" || rec.State != "TX" {
		t.Fatalf("got %+v", rec)
	}
	if rec.RecorderURL != "" || rec.SearchURL != "" {
		t.Error("synthesized record must never guess portal URLs")
	}
	if !rec.IsDegraded() {
		t.Error("synthesized record should report degraded")
	}
}

func TestResolver_StateZipFallback(t *testing.T) {
	geo := &fakeGeocoder{err: context.DeadlineExceeded}
	resolver := NewResolver(testCatalog(t), geo, nil)

	rec := resolver.Resolve(context.Background(), "742 Evergreen Terrace, Springfield, OR 97477")
	if rec == nil {
		t.Fatal("expected state-scoped fallback record, got nil")
	}
	if rec.Name != "Unknown County (ZIP 97477)" {
		t.Errorf("name = %q", rec.Name)
	}
	if rec.State != "OR" {
		t.Errorf("state = %q, want OR", rec.State)
	}
	if !rec.IsDegraded() {
		t.Error("fallback record should report degraded")
	}
}

func TestResolver_Unresolvable(t *testing.T) {
	resolver := NewResolver(testCatalog(t), &fakeGeocoder{}, nil)

	if rec := resolver.Resolve(context.Background(), "somewhere over the rainbow"); rec != nil {
		t.Errorf("expected nil for unresolvable address, got %+v", rec)
	}
}

func TestLoadCatalog_RejectsDanglingAlias(t *testing.T) {
	data := []byte(`
jurisdictions:
  - name: Real County
    state: TX
aliases:
  nowhere: Fake County
`)
	if _, err := LoadCatalog(data); err == nil {
		t.Error("expected error for alias pointing at unknown jurisdiction")
	}
}
