package model

// JurisdictionRecord identifies the county recording authority for an address
type JurisdictionRecord struct {
	Name        string `json:"name" yaml:"name"`                // e.g. "Harris County"
	State       string `json:"state" yaml:"state"`              // Two-letter state code
	RecorderURL string `json:"recorderUrl" yaml:"recorder_url"` // Recorder office site
	SearchURL   string `json:"searchUrl" yaml:"search_url"`     // Public record search portal
}

// IsDegraded reports whether the record was synthesized without portal URLs
// (geocode-only or state/ZIP fallback resolution).
func (j JurisdictionRecord) IsDegraded() bool {
	return j.RecorderURL == "" && j.SearchURL == ""
}

// ParsedAddress holds the components of a US street address
type ParsedAddress struct {
	StreetNumber string `json:"streetNumber,omitempty"`
	StreetName   string `json:"streetName,omitempty"`
	FullStreet   string `json:"fullStreet,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Raw          string `json:"raw"`
}
