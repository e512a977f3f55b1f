package model

// ConfidenceLevel is the qualitative band of a confidence score
type ConfidenceLevel string

const (
	ConfidenceHigh       ConfidenceLevel = "high"       // score >= 75
	ConfidenceMedium     ConfidenceLevel = "medium"     // score >= 50
	ConfidenceLow        ConfidenceLevel = "low"        // score >= 20
	ConfidenceUnverified ConfidenceLevel = "unverified" // below 20
)

// LevelForScore maps a 0-100 score onto its qualitative band.
func LevelForScore(score int) ConfidenceLevel {
	switch {
	case score >= 75:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	case score >= 20:
		return ConfidenceLow
	default:
		return ConfidenceUnverified
	}
}

// ConfidenceScore is the derived trust metric attached to a fact or report.
// Factors explain the arithmetic; they are diagnostic, never inputs.
type ConfidenceScore struct {
	Level       ConfidenceLevel `json:"level"`
	Score       int             `json:"score"` // 0-100
	Factors     []string        `json:"factors"`
	CitationIDs []string        `json:"citationIds,omitempty"`
}
