package jurisdiction

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deedscope/deedscope/internal/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the loaded-once, read-only jurisdiction reference data.
// It is injected into the resolver so tests can substitute a fixed catalog.
type Catalog struct {
	records []model.JurisdictionRecord
	aliases map[string]string // lower-case city token -> jurisdiction name
	byName  map[string]model.JurisdictionRecord
}

type catalogFile struct {
	Jurisdictions []model.JurisdictionRecord `yaml:"jurisdictions"`
	Aliases       map[string]string          `yaml:"aliases"`
}

// LoadCatalog parses a YAML catalog document.
func LoadCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Jurisdictions) == 0 {
		return nil, fmt.Errorf("catalog has no jurisdictions")
	}

	byName := make(map[string]model.JurisdictionRecord, len(file.Jurisdictions))
	for _, rec := range file.Jurisdictions {
		byName[strings.ToLower(rec.Name)] = rec
	}

	aliases := make(map[string]string, len(file.Aliases))
	for city, name := range file.Aliases {
		if _, ok := byName[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("alias %q points at unknown jurisdiction %q", city, name)
		}
		aliases[strings.ToLower(city)] = name
	}

	return &Catalog{
		records: file.Jurisdictions,
		aliases: aliases,
		byName:  byName,
	}, nil
}

// DefaultCatalog loads the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(catalogYAML)
}

// Records returns all catalog records.
func (c *Catalog) Records() []model.JurisdictionRecord {
	out := make([]model.JurisdictionRecord, len(c.records))
	copy(out, c.records)
	return out
}

// ByName returns the record with the given jurisdiction name, case-insensitive.
func (c *Catalog) ByName(name string) (model.JurisdictionRecord, bool) {
	rec, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return rec, ok
}

// MatchName scans normalized text for a jurisdiction name substring.
func (c *Catalog) MatchName(normalized string) (model.JurisdictionRecord, bool) {
	for _, rec := range c.records {
		if strings.Contains(normalized, strings.ToLower(rec.Name)) {
			return rec, true
		}
	}
	return model.JurisdictionRecord{}, false
}

// MatchCity scans normalized text for a known city alias token.
func (c *Catalog) MatchCity(normalized string) (model.JurisdictionRecord, bool) {
	for city, name := range c.aliases {
		if strings.Contains(normalized, city) {
			if rec, ok := c.byName[strings.ToLower(name)]; ok {
				return rec, true
			}
		}
	}
	return model.JurisdictionRecord{}, false
}
