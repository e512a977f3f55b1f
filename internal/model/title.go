package model

import "strings"

// OwnershipTransfer is one link in the chain of title, oldest to newest.
// The grantee of transfer i should match the grantor of transfer i+1;
// a mismatch is a reportable gap, not an error.
type OwnershipTransfer struct {
	ID             string           `json:"id"`
	Grantor        string           `json:"grantor"`
	Grantee        string           `json:"grantee"`
	Date           string           `json:"date"` // As recorded, typically YYYY-MM-DD
	DocumentType   string           `json:"documentType"`
	RecordingDate  string           `json:"recordingDate,omitempty"`
	DocumentNumber string           `json:"documentNumber,omitempty"`
	BookPage       string           `json:"bookPage,omitempty"`
	Confidence     *ConfidenceScore `json:"confidence,omitempty"`
}

// LienStatus is the recorded state of a lien
type LienStatus string

const (
	LienStatusActive   LienStatus = "Active"
	LienStatusReleased LienStatus = "Released"
	LienStatusPending  LienStatus = "Pending"
	LienStatusUnknown  LienStatus = "Unknown"
)

// Lien is a recorded financial claim against the property
type Lien struct {
	Type           string           `json:"type"` // Tax, Mortgage, Judgment, Mechanic's, HOA
	Claimant       string           `json:"claimant"`
	Amount         string           `json:"amount,omitempty"`
	DateRecorded   string           `json:"dateRecorded"`
	Status         LienStatus       `json:"status"`
	Priority       string           `json:"priority,omitempty"`
	DocumentNumber string           `json:"documentNumber,omitempty"`
	Confidence     *ConfidenceScore `json:"confidence,omitempty"`
}

// ExceptionType classifies how serious a title defect is
type ExceptionType string

const (
	// ExceptionFatal marks defects that cannot be resolved without litigation
	ExceptionFatal ExceptionType = "Fatal"
	// ExceptionCurable marks defects resolvable before closing
	ExceptionCurable ExceptionType = "Curable"
	// ExceptionInfo marks notes that need no action
	ExceptionInfo ExceptionType = "Info"
)

// ChainGap marks a break between two adjacent transfers: the earlier
// grantee does not match the later grantor.
type ChainGap struct {
	PriorIndex   int    `json:"priorIndex"` // index of the earlier transfer
	NextIndex    int    `json:"nextIndex"`
	PriorGrantee string `json:"priorGrantee"`
	NextGrantor  string `json:"nextGrantor"`
}

// DetectChainGaps walks the chain oldest to newest and reports every
// break in continuity. Party names are compared case-insensitively with
// punctuation and whitespace collapsed.
func DetectChainGaps(chain []OwnershipTransfer) []ChainGap {
	var gaps []ChainGap
	for i := 0; i+1 < len(chain); i++ {
		grantee := normalizeParty(chain[i].Grantee)
		grantor := normalizeParty(chain[i+1].Grantor)
		if grantee == "" || grantor == "" {
			continue
		}
		if grantee != grantor {
			gaps = append(gaps, ChainGap{
				PriorIndex:   i,
				NextIndex:    i + 1,
				PriorGrantee: chain[i].Grantee,
				NextGrantor:  chain[i+1].Grantor,
			})
		}
	}
	return gaps
}

func normalizeParty(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitleException is a defect or note surfaced by the risk analysis
type TitleException struct {
	Type        ExceptionType    `json:"type"`
	Description string           `json:"description"`
	Explanation string           `json:"explanation"`
	Remedy      string           `json:"remedy,omitempty"`
	Urgency     string           `json:"urgency,omitempty"`
	Confidence  *ConfidenceScore `json:"confidence,omitempty"`
}
