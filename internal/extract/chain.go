package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/deedscope/deedscope/internal/llm"
	"github.com/deedscope/deedscope/internal/model"
)

const chainSystem = `You are a title examiner's assistant. You read county records,
deeds, and property pages and extract the recorded chain of ownership.
Report only transfers supported by the provided sources. Never invent
parties, dates, or document numbers.`

const chainSchema = `{
  "type": "object",
  "properties": {
    "transfers": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "grantor": {"type": "string"},
          "grantee": {"type": "string"},
          "date": {"type": "string", "description": "conveyance date, YYYY-MM-DD when known"},
          "documentType": {"type": "string", "description": "e.g. Warranty Deed, Quitclaim Deed, Deed of Trust"},
          "recordingDate": {"type": "string"},
          "documentNumber": {"type": "string"},
          "bookPage": {"type": "string"}
        },
        "required": ["grantor", "grantee", "date", "documentType"]
      }
    }
  },
  "required": ["transfers"]
}`

// chainEnvelope is the wire shape of a chain extraction response.
type chainEnvelope struct {
	Transfers []struct {
		Grantor        string `json:"grantor"`
		Grantee        string `json:"grantee"`
		Date           string `json:"date"`
		DocumentType   string `json:"documentType"`
		RecordingDate  string `json:"recordingDate"`
		DocumentNumber string `json:"documentNumber"`
		BookPage       string `json:"bookPage"`
	} `json:"transfers"`
}

// ChainExtractor derives the chain of title from retrieved documents.
type ChainExtractor struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewChainExtractor creates a chain extractor. A nil provider disables it.
func NewChainExtractor(provider llm.Provider, logger *slog.Logger) *ChainExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainExtractor{provider: provider, logger: logger}
}

// Extract returns the ownership transfers found in the documents, oldest
// first. Any failure degrades to an empty chain; the pipeline continues
// with what it has.
func (e *ChainExtractor) Extract(ctx context.Context, address string, docs []model.RetrievedDocument) []model.OwnershipTransfer {
	if e.provider == nil || len(docs) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(`Extract the recorded chain of ownership for the property at:
%s

List every transfer in chronological order, oldest first. Skip transfers
for other properties. Use empty strings for fields the sources do not state.

%s`, address, buildContext(docs))

	raw, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System: chainSystem,
		Prompt: prompt,
		Schema: chainSchema,
	})
	if err != nil {
		e.logger.Warn("chain extraction failed", "address", address, "error", err)
		return nil
	}

	var envelope chainEnvelope
	if err := decodeStrict(raw, &envelope); err != nil {
		e.logger.Warn("chain extraction returned malformed response", "address", address, "error", err)
		return nil
	}

	transfers := make([]model.OwnershipTransfer, 0, len(envelope.Transfers))
	for _, t := range envelope.Transfers {
		if t.Grantor == "" || t.Grantee == "" {
			continue
		}
		transfers = append(transfers, model.OwnershipTransfer{
			ID:             uuid.NewString(),
			Grantor:        t.Grantor,
			Grantee:        t.Grantee,
			Date:           t.Date,
			DocumentType:   t.DocumentType,
			RecordingDate:  t.RecordingDate,
			DocumentNumber: t.DocumentNumber,
			BookPage:       t.BookPage,
		})
	}

	e.logger.Info("chain extracted", "address", address, "transfers", len(transfers))
	return transfers
}
