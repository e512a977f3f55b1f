package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deedscope/deedscope/internal/cache"
	"github.com/deedscope/deedscope/internal/job"
	"github.com/deedscope/deedscope/internal/model"
)

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, address string, progress func(job.Progress), screenshot func(model.Screenshot)) (*model.Report, error) {
	progress(job.Progress{Step: model.StepLookup, Pct: 10, Message: "resolving"})
	return &model.Report{
		Address:           address,
		GeneratedAt:       time.Now().UTC(),
		OverallConfidence: model.ConfidenceScore{Level: model.ConfidenceLow, Score: 30},
	}, nil
}

func newTestServer(t *testing.T) (*Server, job.Store) {
	t.Helper()
	store := job.NewMemoryStore()
	workflow := job.NewWorkflowClient(model.WorkflowConfig{}, nil)
	orch := job.NewOrchestrator(store, stubRunner{}, workflow, time.Minute, nil)
	return NewServer(orch, store, nil, nil), store
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodPost, "/api/jobs", `{"address": "123 Main St, Houston, TX"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["jobId"] == "" {
		t.Fatal("response missing jobId")
	}
	if _, err := store.Get(context.Background(), resp["jobId"]); err != nil {
		t.Errorf("job not persisted: %v", err)
	}
}

func TestSubmitEndpoint_Rejections(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	cases := []string{
		`{"address": ""}`,
		`{"address": "   "}`,
		`{}`,
		`not json`,
	}
	for _, body := range cases {
		rec := doRequest(t, router, http.MethodPost, "/api/jobs", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestGetEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodPost, "/api/jobs", `{"address": "123 Main St"}`)
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)

	// The stub pipeline finishes almost immediately.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := store.Get(context.Background(), created["jobId"])
		if err == nil && j.Status.IsTerminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/jobs/"+created["jobId"], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var fetched model.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fetched.Status != model.JobCompleted || fetched.Result == nil {
		t.Errorf("job = %+v", fetched)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/jobs/does-not-exist", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", rec.Code)
	}
}

func TestListEndpoint_LimitHandling(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		store.Create(context.Background(), &model.Job{
			ID:        fmt.Sprintf("job-%02d", i),
			Address:   "addr",
			Status:    model.JobQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	var resp struct {
		Jobs []model.JobSummary `json:"jobs"`
	}

	rec := doRequest(t, router, http.MethodGet, "/api/jobs", "")
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Jobs) != 20 {
		t.Errorf("default limit returned %d, want 20", len(resp.Jobs))
	}
	if resp.Jobs[0].ID != "job-24" {
		t.Errorf("first job = %s, want most recent", resp.Jobs[0].ID)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/jobs?limit=500", "")
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Jobs) != 25 {
		t.Errorf("clamped limit returned %d, want all 25 (clamp is 50)", len(resp.Jobs))
	}

	rec = doRequest(t, router, http.MethodGet, "/api/jobs?limit=3", "")
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Jobs) != 3 {
		t.Errorf("limit=3 returned %d", len(resp.Jobs))
	}

	rec = doRequest(t, router, http.MethodGet, "/api/jobs?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestCancelEndpoint_Idempotent(t *testing.T) {
	server, store := newTestServer(t)
	router := server.Router()

	store.Create(context.Background(), &model.Job{
		ID: "cancel-me", Address: "addr", Status: model.JobQueued,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})

	for i := 0; i < 2; i++ {
		rec := doRequest(t, router, http.MethodPost, "/api/jobs/cancel-me/cancel", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("cancel attempt %d status = %d", i+1, rec.Code)
		}
		var resp map[string]any
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["status"] != string(model.JobCancelled) {
			t.Errorf("cancel attempt %d status field = %v", i+1, resp["status"])
		}
	}

	rec := doRequest(t, router, http.MethodPost, "/api/jobs/ghost/cancel", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("ghost cancel status = %d, want 404", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	server, _ := newTestServer(t)
	router := server.Router()

	rec := doRequest(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "deedscope_jobs_submitted_total") {
		t.Error("metrics output missing job counters")
	}
}

func TestJurisdictionHealthEndpoint(t *testing.T) {
	store := job.NewMemoryStore()
	workflow := job.NewWorkflowClient(model.WorkflowConfig{}, nil)
	orch := job.NewOrchestrator(store, stubRunner{}, workflow, time.Minute, nil)

	health := cache.NewHealthCache(time.Hour)
	health.Record(cache.JurisdictionHealth{
		Jurisdiction:   "Harris County",
		LastChecked:    time.Now().UTC(),
		DocumentsFound: 3,
		AgentReachable: true,
	})
	router := NewServer(orch, store, health, nil).Router()

	rec := doRequest(t, router, http.MethodGet, "/api/jurisdictions/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Jurisdictions []cache.JurisdictionHealth `json:"jurisdictions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jurisdictions) != 1 || resp.Jurisdictions[0].Jurisdiction != "Harris County" {
		t.Fatalf("jurisdictions = %+v", resp.Jurisdictions)
	}

	// Nil cache still serves an empty list.
	bareServer, _ := newTestServer(t)
	rec = doRequest(t, bareServer.Router(), http.MethodGet, "/api/jurisdictions/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("nil cache status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jurisdictions) != 0 {
		t.Fatalf("nil cache jurisdictions = %+v", resp.Jurisdictions)
	}
}
