package job

import (
	"context"
	"errors"

	"github.com/deedscope/deedscope/internal/model"
)

var (
	// ErrNotFound means no job exists for the id
	ErrNotFound = errors.New("job not found")

	// ErrTerminal means the job already reached a terminal state and the
	// requested mutation was not applied
	ErrTerminal = errors.New("job already in a terminal state")
)

// Store persists jobs. Update applies the mutation atomically with respect
// to other updates of the same job; readers never observe a partial write.
type Store interface {
	// Create persists a new job record
	Create(ctx context.Context, job *model.Job) error

	// Get returns a copy of the job
	Get(ctx context.Context, id string) (*model.Job, error)

	// Update applies mutate to the stored job and persists the result.
	// The mutation runs against a private copy; returning an error
	// abandons the write.
	Update(ctx context.Context, id string, mutate func(*model.Job) error) (*model.Job, error)

	// List returns up to limit job summaries, most recently updated first
	List(ctx context.Context, limit int) ([]model.JobSummary, error)
}

// cloneJob deep-copies a job so callers can't alias stored state.
func cloneJob(j *model.Job) *model.Job {
	out := *j
	out.Logs = append([]model.LogEntry(nil), j.Logs...)
	out.Screenshots = append([]model.Screenshot(nil), j.Screenshots...)
	if j.Result != nil {
		result := *j.Result
		out.Result = &result
	}
	return &out
}
