package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/deedscope/deedscope/internal/model"
)

// Workflow event names
const (
	EventAnalysisRequested = "title-analysis:requested"
	EventAnalysisCompleted = "title-analysis:completed"
	EventAnalysisFailed    = "title-analysis:failed"
)

// WorkflowClient pushes named events to a durable-workflow engine. It is
// fire-and-forget: the engine owns retries and durability once an event is
// accepted. When no engine is configured the client reports disabled and
// the orchestrator falls back to in-process execution.
type WorkflowClient struct {
	eventURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWorkflowClient creates a workflow client. An empty event URL yields a
// disabled client, not an error.
func NewWorkflowClient(cfg model.WorkflowConfig, logger *slog.Logger) *WorkflowClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WorkflowClient{
		eventURL:   cfg.EventURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Enabled reports whether an engine endpoint is configured.
func (w *WorkflowClient) Enabled() bool {
	return w != nil && w.eventURL != ""
}

// Push sends one event. A non-2xx response is an error so the caller can
// decide whether to fall back.
func (w *WorkflowClient) Push(ctx context.Context, event string, payload any) error {
	if !w.Enabled() {
		return fmt.Errorf("workflow engine not configured")
	}

	body, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.eventURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push %s: %w", event, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push %s: unexpected status %d", event, resp.StatusCode)
	}
	return nil
}

// Notify pushes an event and only logs on failure. Completion and failure
// notifications must never affect the job outcome.
func (w *WorkflowClient) Notify(ctx context.Context, event string, payload any) {
	if !w.Enabled() {
		return
	}
	if err := w.Push(ctx, event, payload); err != nil {
		w.logger.Warn("workflow notification failed", "event", event, "error", err)
	}
}
