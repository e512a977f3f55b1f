package model

// ScheduleA carries the property and vesting facts of a title commitment
type ScheduleA struct {
	CommitmentNumber string `json:"commitmentNumber"`
	EffectiveDate    string `json:"effectiveDate"` // YYYY-MM-DD
	PropertyAddress  string `json:"propertyAddress"`
	VestedOwner      string `json:"vestedOwner"`
	LegalDescription string `json:"legalDescription"`
}

// Requirement is a Schedule B Part I item that must be satisfied before closing
type Requirement struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	Satisfied   bool   `json:"satisfied"`
	RelatesTo   string `json:"relatesTo,omitempty"` // Lien claimant or exception it clears
}

// ExceptionKind separates boilerplate exceptions from property-specific ones
type ExceptionKind string

const (
	ExceptionStandard ExceptionKind = "standard"
	ExceptionSpecial  ExceptionKind = "special"
)

// ScheduleBException is a Schedule B Part II item excluded from coverage
type ScheduleBException struct {
	Number      int           `json:"number"`
	Kind        ExceptionKind `json:"kind"`
	Description string        `json:"description"`
	Removable   bool          `json:"removable"` // Can be struck once evidence is provided
}

// ScheduleB holds the requirements (Part I) and exceptions (Part II)
type ScheduleB struct {
	Requirements []Requirement        `json:"requirements"`
	Exceptions   []ScheduleBException `json:"exceptions"`
}
