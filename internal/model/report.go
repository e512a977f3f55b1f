package model

import "time"

// Report is the complete output of a title analysis: the verified chain,
// liens, exceptions, every citation they derive from, and the two
// commitment schedules built from them.
type Report struct {
	Address      string              `json:"address"`
	Jurisdiction *JurisdictionRecord `json:"jurisdiction,omitempty"`
	GeneratedAt  time.Time           `json:"generatedAt"`

	ParcelID         string `json:"parcelId,omitempty"`
	LegalDescription string `json:"legalDescription,omitempty"`

	OwnershipChain []OwnershipTransfer `json:"ownershipChain"`
	Liens          []Lien              `json:"liens"`
	Exceptions     []TitleException    `json:"exceptions"`

	Sources           []SourceCitation `json:"sources"`
	OverallConfidence ConfidenceScore  `json:"overallConfidence"`

	ScheduleA ScheduleA `json:"altaScheduleA"`
	ScheduleB ScheduleB `json:"altaScheduleB"`
}
