package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/deedscope/deedscope/internal/llm"
	"github.com/deedscope/deedscope/internal/model"
)

type fakeProvider struct {
	response string
	err      error
	lastReq  llm.GenerateRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, req llm.GenerateRequest) (json.RawMessage, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.response), nil
}

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func testDocs() []model.RetrievedDocument {
	return []model.RetrievedDocument{
		{
			Source: model.SourcePageScrape,
			URL:    "https://www.cclerk.hctx.net/records/1",
			Text:   strings.Repeat("WARRANTY DEED Sunset Realty LLC to Johnson Family Trust. ", 200),
			Citation: model.SourceCitation{
				ID:         "cit-1",
				SourceType: model.SourcePageScrape,
				SourceName: "www.cclerk.hctx.net",
			},
		},
	}
}

func TestChainExtractor_Extract(t *testing.T) {
	provider := &fakeProvider{response: `{
		"transfers": [
			{"grantor": "Harris County", "grantee": "Sunset Realty LLC", "date": "2015-06-12", "documentType": "Special Warranty Deed", "documentNumber": "2015-228917"},
			{"grantor": "Sunset Realty LLC", "grantee": "Johnson Family Trust", "date": "2021-03-01", "documentType": "Warranty Deed", "documentNumber": "2021-446871", "recordingDate": "2021-03-04"},
			{"grantor": "", "grantee": "Nobody", "date": "2022-01-01", "documentType": "Deed"}
		]
	}`}

	extractor := NewChainExtractor(provider, nil)
	chain := extractor.Extract(context.Background(), "123 Main St, Houston, TX", testDocs())

	if len(chain) != 2 {
		t.Fatalf("got %d transfers, want 2 (blank grantor dropped)", len(chain))
	}
	if chain[0].Grantee != "Sunset Realty LLC" || chain[1].DocumentNumber != "2021-446871" {
		t.Errorf("chain = %+v", chain)
	}
	if chain[0].ID == "" || chain[0].ID == chain[1].ID {
		t.Error("transfers must get distinct ids")
	}
	if !strings.Contains(provider.lastReq.Prompt, "123 Main St") {
		t.Error("prompt missing the address")
	}
	if !strings.Contains(provider.lastReq.Prompt, "www.cclerk.hctx.net") {
		t.Error("prompt missing the document source header")
	}
}

func TestChainExtractor_DegradesOnFailure(t *testing.T) {
	extractor := NewChainExtractor(&fakeProvider{err: errors.New("rate limited")}, nil)
	if chain := extractor.Extract(context.Background(), "123 Main St", testDocs()); chain != nil {
		t.Errorf("got %v, want nil on provider failure", chain)
	}

	extractor = NewChainExtractor(&fakeProvider{response: `{"transfers": "not an array"}`}, nil)
	if chain := extractor.Extract(context.Background(), "123 Main St", testDocs()); chain != nil {
		t.Errorf("got %v, want nil on malformed response", chain)
	}

	extractor = NewChainExtractor(nil, nil)
	if chain := extractor.Extract(context.Background(), "123 Main St", testDocs()); chain != nil {
		t.Errorf("got %v, want nil with no provider", chain)
	}
}

func TestChainExtractor_RejectsUndeclaredFields(t *testing.T) {
	provider := &fakeProvider{response: `{"transfers": [], "commentary": "looks fine"}`}
	extractor := NewChainExtractor(provider, nil)
	if chain := extractor.Extract(context.Background(), "123 Main St", testDocs()); chain != nil {
		t.Errorf("got %v, want nil for response outside the envelope", chain)
	}
}

func TestLienExtractor_StatusCoercion(t *testing.T) {
	provider := &fakeProvider{response: `{
		"liens": [
			{"type": "Deed of Trust", "claimant": "First National Bank", "amount": "$385,000", "dateRecorded": "2021-03-04", "status": "active"},
			{"type": "Mechanic's", "claimant": "ABC Roofing", "dateRecorded": "2023-07-11", "status": "SATISFIED"},
			{"type": "Judgment", "claimant": "State of Texas", "dateRecorded": "2024-02-02", "status": "contested maybe"}
		]
	}`}

	extractor := NewLienExtractor(provider, nil)
	liens := extractor.Extract(context.Background(), "123 Main St", testDocs())

	if len(liens) != 3 {
		t.Fatalf("got %d liens, want 3", len(liens))
	}
	want := []model.LienStatus{model.LienStatusActive, model.LienStatusReleased, model.LienStatusUnknown}
	for i, lien := range liens {
		if lien.Status != want[i] {
			t.Errorf("lien %d status = %s, want %s", i, lien.Status, want[i])
		}
	}
}

func TestRiskExtractor_DeterministicChecksWithoutProvider(t *testing.T) {
	chain := []model.OwnershipTransfer{
		{Grantor: "Alice Smith", Grantee: "Bob Jones", Date: "2010-01-01", DocumentType: "Warranty Deed"},
		{Grantor: "Carol White", Grantee: "Dan Brown", Date: "2015-01-01", DocumentType: "Warranty Deed"},
	}
	liens := []model.Lien{
		{Type: "Tax", Claimant: "Harris County", Status: model.LienStatusActive, Amount: "$4,100"},
		{Type: "Mortgage", Claimant: "Old Bank", Status: model.LienStatusReleased},
	}

	extractor := NewRiskExtractor(nil, nil)
	exceptions := extractor.Analyze(context.Background(), "123 Main St", chain, liens)

	if len(exceptions) != 2 {
		t.Fatalf("got %d exceptions, want 2 (one gap, one active lien)", len(exceptions))
	}
	if !strings.Contains(exceptions[0].Description, "Gap in chain of title") {
		t.Errorf("first exception = %q", exceptions[0].Description)
	}
	if !strings.Contains(exceptions[1].Description, "Active Tax lien held by Harris County") {
		t.Errorf("second exception = %q", exceptions[1].Description)
	}
	for _, exc := range exceptions {
		if exc.Type != model.ExceptionCurable {
			t.Errorf("exception %q type = %s, want Curable", exc.Description, exc.Type)
		}
	}
}

func TestRiskExtractor_CoercesUnknownClassification(t *testing.T) {
	provider := &fakeProvider{response: `{
		"exceptions": [
			{"type": "catastrophic", "description": "Possible forged deed", "explanation": "Signature inconsistencies across instruments."},
			{"type": "Fatal", "description": "Competing chains of title", "explanation": "Two unrelated chains claim the parcel."}
		]
	}`}

	extractor := NewRiskExtractor(provider, nil)
	exceptions := extractor.Analyze(context.Background(), "123 Main St", nil, nil)

	if len(exceptions) != 2 {
		t.Fatalf("got %d exceptions, want 2", len(exceptions))
	}
	if exceptions[0].Type != model.ExceptionInfo {
		t.Errorf("unrecognized classification = %s, want Info", exceptions[0].Type)
	}
	if exceptions[1].Type != model.ExceptionFatal {
		t.Errorf("fatal classification = %s, want Fatal", exceptions[1].Type)
	}
}

func TestRiskExtractor_ProviderFailureKeepsDeterministicFindings(t *testing.T) {
	liens := []model.Lien{{Type: "HOA", Claimant: "Oakwood HOA", Status: model.LienStatusActive}}
	extractor := NewRiskExtractor(&fakeProvider{err: errors.New("timeout")}, nil)

	exceptions := extractor.Analyze(context.Background(), "123 Main St", nil, liens)
	if len(exceptions) != 1 || !strings.Contains(exceptions[0].Description, "Oakwood HOA") {
		t.Errorf("exceptions = %+v", exceptions)
	}
}

func TestDetectChainGaps(t *testing.T) {
	chain := []model.OwnershipTransfer{
		{Grantor: "A Corp", Grantee: "Bob Jones"},
		{Grantor: "BOB   JONES", Grantee: "Carol White"}, // same party, messy casing
		{Grantor: "Dan Brown", Grantee: "Eve Black"},
	}
	gaps := model.DetectChainGaps(chain)
	if len(gaps) != 1 {
		t.Fatalf("got %d gaps, want 1", len(gaps))
	}
	if gaps[0].PriorIndex != 1 || gaps[0].NextIndex != 2 {
		t.Errorf("gap = %+v", gaps[0])
	}
}

func TestBuildContext_TruncatesLongDocuments(t *testing.T) {
	docs := []model.RetrievedDocument{{
		Source:   model.SourcePageScrape,
		Text:     strings.Repeat("x", perDocumentLimit+5000),
		Citation: model.SourceCitation{SourceName: "example.com"},
	}}
	ctxBlock := buildContext(docs)
	if len(ctxBlock) > perDocumentLimit+200 {
		t.Errorf("context block length %d, want truncated near %d", len(ctxBlock), perDocumentLimit)
	}
}
