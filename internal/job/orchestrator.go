package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deedscope/deedscope/internal/metrics"
	"github.com/deedscope/deedscope/internal/model"
)

// Progress is one pipeline milestone notification.
type Progress struct {
	Step    string
	Pct     int
	Message string
}

// Runner executes the analysis pipeline for one address. Progress and
// screenshot callbacks may be invoked from the runner's own goroutines.
type Runner interface {
	Run(ctx context.Context, address string, progress func(Progress), screenshot func(model.Screenshot)) (*model.Report, error)
}

// Orchestrator owns the job lifecycle: submission, handoff or in-process
// execution, progress bookkeeping, and the terminal transition. Status
// moves queued to running to exactly one of completed, failed, or
// cancelled; nothing moves a terminal job again.
type Orchestrator struct {
	store    Store
	runner   Runner
	workflow *WorkflowClient
	ceiling  time.Duration
	logger   *slog.Logger
}

// NewOrchestrator wires an orchestrator. Ceiling bounds one whole pipeline
// run; zero means the default of ten minutes.
func NewOrchestrator(store Store, runner Runner, workflow *WorkflowClient, ceiling time.Duration, logger *slog.Logger) *Orchestrator {
	if ceiling <= 0 {
		ceiling = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    store,
		runner:   runner,
		workflow: workflow,
		ceiling:  ceiling,
		logger:   logger,
	}
}

// Submit validates the address, persists a queued job, and hands work to
// the durable-workflow engine. If the engine is absent or the handoff
// fails, execution starts as a detached in-process task so the caller
// still gets an immediate answer.
func (o *Orchestrator) Submit(ctx context.Context, address string) (*model.Job, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("address must not be empty")
	}

	now := time.Now().UTC()
	job := &model.Job{
		ID:      uuid.NewString(),
		Address: address,
		Status:  model.JobQueued,
		Logs: []model.LogEntry{
			{At: now, Step: "", Message: "Analysis job accepted"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.JobsSubmitted.Inc()

	if o.workflow.Enabled() {
		err := o.workflow.Push(ctx, EventAnalysisRequested, map[string]string{
			"jobId":   job.ID,
			"address": address,
		})
		if err == nil {
			metrics.WorkflowHandoffs.WithLabelValues("accepted").Inc()
			return job, nil
		}
		metrics.WorkflowHandoffs.WithLabelValues("failed").Inc()
		o.logger.Warn("workflow handoff failed, running in process", "job_id", job.ID, "error", err)
	}

	go func() {
		if err := o.Execute(context.WithoutCancel(ctx), job.ID); err != nil {
			o.logger.Error("in-process execution failed", "job_id", job.ID, "error", err)
		}
	}()

	return job, nil
}

// Execute runs the pipeline for a queued job through to a terminal state.
// It is invoked by the in-process fallback and by workflow workers
// consuming the requested event.
func (o *Orchestrator) Execute(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, o.ceiling)
	defer cancel()

	started := time.Now()

	job, err := o.store.Update(ctx, jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return ErrTerminal
		}
		if j.Status != model.JobQueued {
			return fmt.Errorf("job is %s, expected queued", j.Status)
		}
		j.Status = model.JobRunning
		j.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, ErrTerminal) {
		// Cancelled before it started; nothing to do
		return nil
	}
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}

	report, runErr := o.runner.Run(ctx, job.Address,
		func(p Progress) { o.recordProgress(jobID, p) },
		func(s model.Screenshot) { o.recordScreenshot(jobID, s) },
	)

	if runErr != nil {
		o.finishFailed(jobID, started, runErr)
		return nil
	}

	o.finishCompleted(ctx, jobID, started, report)
	return nil
}

// Cancel marks a job cancelled. Terminal jobs are left untouched, so
// repeated cancels acknowledge without error. The running pipeline is not
// forcibly aborted; its in-flight work completes and is discarded when the
// terminal state is observed.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (*model.Job, error) {
	return o.store.Update(ctx, jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return nil
		}
		now := time.Now().UTC()
		j.Status = model.JobCancelled
		j.Logs = append(j.Logs, model.LogEntry{At: now, Message: "Job cancelled"})
		j.UpdatedAt = now
		metrics.JobsFinished.WithLabelValues(string(model.JobCancelled)).Inc()
		return nil
	})
}

// recordProgress applies a milestone update. Progress is monotonic; a
// stale or out-of-order update never moves the bar backwards, and nothing
// is written once the job is terminal.
func (o *Orchestrator) recordProgress(jobID string, p Progress) {
	_, err := o.store.Update(context.Background(), jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return ErrTerminal
		}
		now := time.Now().UTC()
		if p.Step != "" {
			j.CurrentStep = p.Step
		}
		if p.Pct > j.ProgressPct {
			j.ProgressPct = p.Pct
		}
		if p.Message != "" {
			j.Logs = append(j.Logs, model.LogEntry{At: now, Step: p.Step, Message: p.Message})
		}
		j.UpdatedAt = now
		return nil
	})
	if err != nil && !errors.Is(err, ErrTerminal) {
		o.logger.Warn("progress update failed", "job_id", jobID, "error", err)
	}
}

func (o *Orchestrator) recordScreenshot(jobID string, s model.Screenshot) {
	_, err := o.store.Update(context.Background(), jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return ErrTerminal
		}
		j.Screenshots = append(j.Screenshots, s)
		j.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil && !errors.Is(err, ErrTerminal) {
		o.logger.Warn("screenshot update failed", "job_id", jobID, "error", err)
	}
}

// finishCompleted fires the completion side effects, then commits the
// terminal transition. A cancellation observed in between discards the
// result.
func (o *Orchestrator) finishCompleted(ctx context.Context, jobID string, started time.Time, report *model.Report) {
	o.workflow.Notify(ctx, EventAnalysisCompleted, map[string]any{
		"jobId":      jobID,
		"address":    report.Address,
		"confidence": report.OverallConfidence.Level,
	})

	_, err := o.store.Update(context.Background(), jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return ErrTerminal
		}
		now := time.Now().UTC()
		j.Status = model.JobCompleted
		j.CurrentStep = model.StepSummary
		j.ProgressPct = 100
		j.Result = report
		j.Logs = append(j.Logs, model.LogEntry{At: now, Step: model.StepSummary, Message: "Analysis complete"})
		j.UpdatedAt = now
		return nil
	})
	if errors.Is(err, ErrTerminal) {
		o.logger.Info("job finished after cancellation, result discarded", "job_id", jobID)
		return
	}
	if err != nil {
		o.logger.Error("completion write failed", "job_id", jobID, "error", err)
		return
	}

	metrics.JobsFinished.WithLabelValues(string(model.JobCompleted)).Inc()
	metrics.JobDuration.Observe(time.Since(started).Seconds())
	o.logger.Info("job completed", "job_id", jobID, "duration", time.Since(started))
}

func (o *Orchestrator) finishFailed(jobID string, started time.Time, runErr error) {
	o.workflow.Notify(context.Background(), EventAnalysisFailed, map[string]any{
		"jobId": jobID,
		"error": runErr.Error(),
	})

	_, err := o.store.Update(context.Background(), jobID, func(j *model.Job) error {
		if j.Status.IsTerminal() {
			return ErrTerminal
		}
		now := time.Now().UTC()
		j.Status = model.JobFailed
		j.Error = runErr.Error()
		j.Logs = append(j.Logs, model.LogEntry{At: now, Step: j.CurrentStep, Message: "Analysis failed: " + runErr.Error()})
		j.UpdatedAt = now
		return nil
	})
	if errors.Is(err, ErrTerminal) {
		o.logger.Info("job failed after cancellation, error discarded", "job_id", jobID)
		return
	}
	if err != nil {
		o.logger.Error("failure write failed", "job_id", jobID, "error", err)
		return
	}

	metrics.JobsFinished.WithLabelValues(string(model.JobFailed)).Inc()
	metrics.JobDuration.Observe(time.Since(started).Seconds())
	o.logger.Warn("job failed", "job_id", jobID, "error", runErr)
}
