package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deedscope/deedscope/internal/job"
	"github.com/deedscope/deedscope/internal/model"
)

// runDemo produces a deterministic simulated analysis without touching the
// network. Demo mode is an explicit opt-in; the data is fictional and is
// scored near zero so nobody mistakes it for a real examination.
func (p *Pipeline) runDemo(ctx context.Context, address string, progress func(job.Progress)) (*model.Report, error) {
	record := p.resolver.Resolve(ctx, address)

	progress(job.Progress{Step: model.StepLookup, Pct: pctLookup, Message: "Resolving jurisdiction (demonstration mode)"})
	progress(job.Progress{Step: model.StepRetrieval, Pct: pctRetrieval, Message: "Simulating county record retrieval"})

	docs := []model.RetrievedDocument{demoDocument(address)}

	progress(job.Progress{Step: model.StepChain, Pct: pctChain, Message: "Simulating chain of title extraction"})
	chain := demoChain()

	progress(job.Progress{Step: model.StepLiens, Pct: pctLiens, Message: "Simulating lien extraction"})
	liens := demoLiens()

	progress(job.Progress{Step: model.StepRisk, Pct: pctRisk, Message: "Analyzing simulated title risks"})
	exceptions := p.risks.Analyze(ctx, address, chain, liens)

	progress(job.Progress{Step: model.StepScoring, Pct: pctScoring, Message: "Scoring confidence and assembling schedules"})
	report := assembleReport(address, record, docs, chain, liens, exceptions, true)

	progress(job.Progress{Step: model.StepSummary, Pct: pctDone, Message: "Demonstration report assembled"})
	return report, nil
}

func demoDocument(address string) model.RetrievedDocument {
	text := fmt.Sprintf("Simulated county recorder results for %s. "+
		"This document was generated by demonstration mode and does not reflect real records.", address)
	return model.RetrievedDocument{
		Source: model.SourceDemoData,
		Text:   text,
		Kind:   model.DocumentKindWebpage,
		Citation: model.SourceCitation{
			ID:          uuid.NewString(),
			SourceType:  model.SourceDemoData,
			SourceName:  "demonstration dataset",
			RetrievedAt: time.Now().UTC(),
			Excerpt:     model.Excerpt(text),
		},
	}
}

func demoChain() []model.OwnershipTransfer {
	return []model.OwnershipTransfer{
		{
			ID:             uuid.NewString(),
			Grantor:        "Harris County",
			Grantee:        "Sunset Realty LLC",
			Date:           "2015-06-12",
			DocumentType:   "Special Warranty Deed",
			RecordingDate:  "2015-06-15",
			DocumentNumber: "2015-228917",
		},
		{
			ID:             uuid.NewString(),
			Grantor:        "Sunset Realty LLC",
			Grantee:        "Johnson Family Trust",
			Date:           "2021-03-01",
			DocumentType:   "Warranty Deed",
			RecordingDate:  "2021-03-04",
			DocumentNumber: "2021-446871",
		},
	}
}

func demoLiens() []model.Lien {
	return []model.Lien{
		{
			Type:           "Deed of Trust",
			Claimant:       "First National Bank",
			Amount:         "$385,000",
			DateRecorded:   "2021-03-04",
			Status:         model.LienStatusActive,
			Priority:       "First",
			DocumentNumber: "2021-446872",
		},
		{
			Type:         "Mechanic's",
			Claimant:     "ABC Roofing & Construction",
			Amount:       "$12,400",
			DateRecorded: "2023-07-11",
			Status:       model.LienStatusReleased,
		},
	}
}
