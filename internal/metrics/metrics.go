package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts accepted analysis jobs
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deedscope_jobs_submitted_total",
		Help: "Number of title analysis jobs accepted.",
	})

	// JobsFinished counts terminal transitions by outcome
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deedscope_jobs_finished_total",
		Help: "Number of jobs reaching a terminal state, by outcome.",
	}, []string{"outcome"})

	// JobDuration observes wall time from submission to terminal state
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deedscope_job_duration_seconds",
		Help:    "Wall-clock duration of finished jobs.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	// DocumentsRetrieved observes per-job retrieved document counts
	DocumentsRetrieved = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deedscope_documents_retrieved",
		Help:    "Documents retrieved per job.",
		Buckets: []float64{0, 1, 2, 5, 10, 15},
	})

	// WorkflowHandoffs counts durable-workflow handoff attempts by result
	WorkflowHandoffs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deedscope_workflow_handoffs_total",
		Help: "Durable-workflow handoff attempts, by result.",
	}, []string{"result"})

	// AgentSessions counts browser sidecar sessions by result
	AgentSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deedscope_agent_sessions_total",
		Help: "Browser agent sessions, by result.",
	}, []string{"result"})
)
