package model

import "time"

// JobStatus is the lifecycle state of an analysis job
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Pipeline step identifiers, in execution order. These match the step ids
// the browser sidecar streams so its events slot into the same timeline.
const (
	StepLookup    = "lookup"    // Jurisdiction resolution
	StepRetrieval = "retrieval" // Record retrieval
	StepChain     = "chain"     // Chain of title extraction
	StepLiens     = "liens"     // Lien extraction
	StepRisk      = "risk"      // Risk analysis
	StepScoring   = "scoring"   // Confidence scoring
	StepSchedules = "schedules" // Commitment schedule assembly
	StepSummary   = "summary"   // Report assembly
)

// LogEntry is one append-only progress line on a job
type LogEntry struct {
	At      time.Time `json:"at"`
	Step    string    `json:"step"`
	Message string    `json:"message"`
}

// Screenshot is a frame relayed from the browser sidecar during retrieval
type Screenshot struct {
	At    time.Time `json:"at"`
	Step  string    `json:"step"`
	Label string    `json:"label"`
	Data  string    `json:"data"` // base64 JPEG
}

// Job is the persisted record of one title analysis request.
// Logs and screenshots grow append-only; status moves monotonically
// forward and stops at a terminal state.
type Job struct {
	ID          string       `json:"id"`
	Address     string       `json:"address"`
	Status      JobStatus    `json:"status"`
	CurrentStep string       `json:"currentStep,omitempty"`
	ProgressPct int          `json:"progressPct"`
	Logs        []LogEntry   `json:"logs"`
	Screenshots []Screenshot `json:"screenshots,omitempty"`
	Result      *Report      `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// JobSummary is the listing view of a job, without logs or result payloads
type JobSummary struct {
	ID          string    `json:"id"`
	Address     string    `json:"address"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"currentStep,omitempty"`
	ProgressPct int       `json:"progressPct"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Summary projects a job onto its listing view.
func (j *Job) Summary() JobSummary {
	return JobSummary{
		ID:          j.ID,
		Address:     j.Address,
		Status:      j.Status,
		CurrentStep: j.CurrentStep,
		ProgressPct: j.ProgressPct,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
