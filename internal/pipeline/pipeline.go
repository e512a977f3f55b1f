package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/deedscope/deedscope/internal/agent"
	"github.com/deedscope/deedscope/internal/cache"
	"github.com/deedscope/deedscope/internal/commitment"
	"github.com/deedscope/deedscope/internal/extract"
	"github.com/deedscope/deedscope/internal/job"
	"github.com/deedscope/deedscope/internal/jurisdiction"
	"github.com/deedscope/deedscope/internal/llm"
	"github.com/deedscope/deedscope/internal/metrics"
	"github.com/deedscope/deedscope/internal/model"
	"github.com/deedscope/deedscope/internal/retrieve"
	"github.com/deedscope/deedscope/internal/score"
	"github.com/deedscope/deedscope/internal/util"
	"github.com/deedscope/deedscope/internal/worker"
)

// Stage milestone percentages. The bar only moves forward; sub-events
// within a stage log without advancing it.
const (
	pctLookup    = 10
	pctRetrieval = 35
	pctChain     = 60
	pctLiens     = 75
	pctRisk      = 85
	pctScoring   = 95
	pctDone      = 100
)

// documentRetriever is what the pipeline needs from the record retriever.
type documentRetriever interface {
	Retrieve(ctx context.Context, address string, record *model.JurisdictionRecord) []model.RetrievedDocument
}

// Pipeline runs one full title analysis: resolve, retrieve, extract,
// score, build schedules, assemble the report. It implements job.Runner.
type Pipeline struct {
	resolver  *jurisdiction.Resolver
	retriever documentRetriever
	agent     *agent.Client
	health    *cache.HealthCache
	chains    *extract.ChainExtractor
	liens     *extract.LienExtractor
	risks     *extract.RiskExtractor
	demo      bool
	logger    *slog.Logger
}

// New wires a pipeline from configuration. Collaborators without a
// configured endpoint are left nil and their channels degrade silently.
func New(cfg *model.Config, health *cache.HealthCache, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := jurisdiction.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("load jurisdiction catalog: %w", err)
	}

	geocoder := jurisdiction.NewCensusGeocoder("", cfg.HTTP.Timeout,
		cache.NewMemoryCache(24*time.Hour, time.Hour))
	resolver := jurisdiction.NewResolver(catalog, geocoder, logger)

	var searcher retrieve.Searcher
	if cfg.Search.BaseURL != "" {
		searcher = retrieve.NewHTTPSearcher(cfg.Search.BaseURL, cfg.Search.Timeout)
	}
	var extractor retrieve.DocumentExtractor
	if cfg.Extractor.BaseURL != "" {
		extractor = retrieve.NewHTTPDocumentExtractor(cfg.Extractor.BaseURL, cfg.Extractor.Timeout, cfg.HTTP.UserAgent, cfg.Extractor.MaxBytes)
	}

	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	limiter := worker.NewLimiter(cfg.Retrieval.RequestsPerSec, cfg.Retrieval.Burst)
	scraper := retrieve.NewPageScraper(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, robots, limiter)
	office := retrieve.NewOfficeClient(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes)

	retriever := retrieve.NewRetriever(searcher, extractor, scraper, office, cfg.Retrieval, cfg.Concurrency, logger)

	var agentClient *agent.Client
	if cfg.Agent.BaseURL != "" {
		agentClient = agent.NewClient(cfg.Agent.BaseURL, cfg.Agent.Timeout, logger)
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("configure llm provider: %w", err)
	}
	if provider == nil {
		logger.Warn("no llm provider configured; extraction stages will return empty results")
	}

	return &Pipeline{
		resolver:  resolver,
		retriever: retriever,
		agent:     agentClient,
		health:    health,
		chains:    extract.NewChainExtractor(provider, logger),
		liens:     extract.NewLienExtractor(provider, logger),
		risks:     extract.NewRiskExtractor(provider, logger),
		demo:      cfg.Demo,
		logger:    logger,
	}, nil
}

// Run executes the stages in order for one address. Degraded data is never
// an error; only an unexpected stage panic or a context deadline surfaces.
func (p *Pipeline) Run(ctx context.Context, address string, progress func(job.Progress), screenshot func(model.Screenshot)) (*model.Report, error) {
	if p.demo {
		return p.runDemo(ctx, address, progress)
	}

	progress(job.Progress{Step: model.StepLookup, Pct: pctLookup, Message: "Resolving jurisdiction"})
	record := p.resolver.Resolve(ctx, address)
	if record != nil {
		progress(job.Progress{Step: model.StepLookup, Pct: pctLookup, Message: "Jurisdiction: " + record.Name})
	} else {
		progress(job.Progress{Step: model.StepLookup, Pct: pctLookup, Message: "Jurisdiction could not be resolved; continuing with web search only"})
	}

	progress(job.Progress{Step: model.StepRetrieval, Pct: pctRetrieval, Message: "Gathering county records"})
	docs := p.retrieveDocuments(ctx, address, record, progress, screenshot)
	progress(job.Progress{Step: model.StepRetrieval, Pct: pctRetrieval, Message: fmt.Sprintf("Retrieved %d source document(s)", len(docs))})
	metrics.DocumentsRetrieved.Observe(float64(len(docs)))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline deadline: %w", err)
	}

	progress(job.Progress{Step: model.StepChain, Pct: pctChain, Message: "Extracting chain of title"})
	chain := p.chains.Extract(ctx, address, docs)

	progress(job.Progress{Step: model.StepLiens, Pct: pctLiens, Message: "Extracting liens and encumbrances"})
	liens := p.liens.Extract(ctx, address, docs)

	progress(job.Progress{Step: model.StepRisk, Pct: pctRisk, Message: "Analyzing title risks"})
	exceptions := p.risks.Analyze(ctx, address, chain, liens)

	progress(job.Progress{Step: model.StepScoring, Pct: pctScoring, Message: "Scoring confidence and assembling schedules"})
	report := assembleReport(address, record, docs, chain, liens, exceptions, false)

	progress(job.Progress{Step: model.StepSummary, Pct: pctDone, Message: "Report assembled"})
	return report, nil
}

// Analyze runs the pipeline without progress reporting. It satisfies the
// batch worker's interface for CLI runs.
func (p *Pipeline) Analyze(ctx context.Context, address string) (*model.Report, error) {
	return p.Run(ctx, address, func(job.Progress) {}, func(model.Screenshot) {})
}

// retrieveDocuments tries the browser agent first when one is configured
// and reachable, then widens with search, scraping, and direct office
// queries. Agent failure only narrows the source set.
func (p *Pipeline) retrieveDocuments(ctx context.Context, address string, record *model.JurisdictionRecord, progress func(job.Progress), screenshot func(model.Screenshot)) []model.RetrievedDocument {
	var docs []model.RetrievedDocument
	agentReachable := false
	agentErr := ""

	if p.agent != nil && record != nil && !record.IsDegraded() && p.agent.Healthy(ctx) {
		agentReachable = true
		result, err := p.agent.SearchStream(ctx, address, record.Name, func(evt agent.Event) {
			p.relayAgentEvent(evt, progress, screenshot)
		})
		if err != nil {
			agentErr = err.Error()
			metrics.AgentSessions.WithLabelValues("failed").Inc()
			p.logger.Warn("agent session failed", "address", address, "error", err)
			progress(job.Progress{Message: "Browser agent unavailable; falling back to web retrieval"})
		} else {
			metrics.AgentSessions.WithLabelValues("completed").Inc()
			docs = append(docs, result.Document(record.SearchURL))
		}
	}

	docs = append(docs, p.retriever.Retrieve(ctx, address, record)...)

	if p.health != nil && record != nil {
		p.health.Record(cache.JurisdictionHealth{
			Jurisdiction:   record.Name,
			LastChecked:    time.Now().UTC(),
			DocumentsFound: len(docs),
			AgentReachable: agentReachable,
			LastError:      agentErr,
		})
	}

	return docs
}

// relayAgentEvent appends sidecar frames to the job timeline without
// advancing the stage.
func (p *Pipeline) relayAgentEvent(evt agent.Event, progress func(job.Progress), screenshot func(model.Screenshot)) {
	switch evt.Type {
	case agent.EventProgress:
		progress(job.Progress{Message: evt.Message})
	case agent.EventScreenshot:
		var data string
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			return
		}
		screenshot(model.Screenshot{
			At:    time.Now().UTC(),
			Step:  model.StepRetrieval,
			Label: evt.Label,
			Data:  data,
		})
	case agent.EventLiveView:
		progress(job.Progress{Message: "Live browser view available: " + evt.URL})
	case agent.EventDebug:
		p.logger.Debug("agent", "message", evt.Message)
	}
}

// assembleReport scores every extracted fact, aggregates the report-level
// confidence, and builds the commitment schedules.
func assembleReport(address string, record *model.JurisdictionRecord, docs []model.RetrievedDocument, chain []model.OwnershipTransfer, liens []model.Lien, exceptions []model.TitleException, demo bool) *model.Report {
	source := bestSource(docs, demo)
	extraSources := len(docs) - 1
	if extraSources < 0 {
		extraSources = 0
	}
	citations := collectCitations(docs)
	citationIDs := make([]string, 0, len(citations))
	for _, c := range citations {
		citationIDs = append(citationIDs, c.ID)
	}

	var factScores []model.ConfidenceScore
	scoreFact := func(hasDocNumber, hasRecordingDate bool) *model.ConfidenceScore {
		s := score.Score(source, score.Evidence{
			HasDocumentNumber: hasDocNumber,
			HasRecordingDate:  hasRecordingDate,
			ExtraSources:      extraSources,
			MachineExtracted:  true,
		})
		s.CitationIDs = citationIDs
		factScores = append(factScores, s)
		return &s
	}

	for i := range chain {
		chain[i].Confidence = scoreFact(chain[i].DocumentNumber != "", chain[i].RecordingDate != "")
	}
	for i := range liens {
		liens[i].Confidence = scoreFact(liens[i].DocumentNumber != "", liens[i].DateRecorded != "")
	}
	for i := range exceptions {
		exceptions[i].Confidence = scoreFact(false, false)
	}

	now := time.Now().UTC()
	scheduleA, scheduleB := commitment.Build(commitment.Input{
		Address:       address,
		EffectiveDate: now,
		Chain:         chain,
		Liens:         liens,
		Exceptions:    exceptions,
	})

	return &model.Report{
		Address:           address,
		Jurisdiction:      record,
		GeneratedAt:       now,
		OwnershipChain:    chain,
		Liens:             liens,
		Exceptions:        exceptions,
		Sources:           citations,
		OverallConfidence: score.ReportScore(factScores, demo),
		ScheduleA:         scheduleA,
		ScheduleB:         scheduleB,
	}
}

// bestSource picks the strongest origin tier present in the document set.
func bestSource(docs []model.RetrievedDocument, demo bool) model.SourceType {
	if demo {
		return model.SourceDemoData
	}
	rank := map[model.SourceType]int{
		model.SourceBrowserAgent: 4,
		model.SourceCountyOffice: 3,
		model.SourcePageScrape:   2,
		model.SourceWebSearch:    1,
	}
	best := model.SourceWebSearch
	bestRank := 0
	for _, doc := range docs {
		if r := rank[doc.Source]; r > bestRank {
			best = doc.Source
			bestRank = r
		}
	}
	return best
}

func collectCitations(docs []model.RetrievedDocument) []model.SourceCitation {
	citations := make([]model.SourceCitation, 0, len(docs))
	for _, doc := range docs {
		citations = append(citations, doc.Citation)
	}
	return citations
}
