package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deedscope/deedscope/internal/llm"
	"github.com/deedscope/deedscope/internal/model"
)

const lienSystem = `You are a title examiner's assistant. You read county records,
deeds, and property pages and extract recorded liens and encumbrances.
Report only liens supported by the provided sources. Never invent
claimants, amounts, or recording dates.`

const lienSchema = `{
  "type": "object",
  "properties": {
    "liens": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string", "description": "e.g. Tax, Mortgage, Deed of Trust, Judgment, Mechanic's, HOA"},
          "claimant": {"type": "string"},
          "amount": {"type": "string"},
          "dateRecorded": {"type": "string"},
          "status": {"type": "string", "enum": ["Active", "Released", "Pending", "Unknown"]},
          "priority": {"type": "string"},
          "documentNumber": {"type": "string"}
        },
        "required": ["type", "claimant", "dateRecorded", "status"]
      }
    }
  },
  "required": ["liens"]
}`

type lienEnvelope struct {
	Liens []struct {
		Type           string `json:"type"`
		Claimant       string `json:"claimant"`
		Amount         string `json:"amount"`
		DateRecorded   string `json:"dateRecorded"`
		Status         string `json:"status"`
		Priority       string `json:"priority"`
		DocumentNumber string `json:"documentNumber"`
	} `json:"liens"`
}

// LienExtractor derives recorded liens and encumbrances from retrieved
// documents.
type LienExtractor struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewLienExtractor creates a lien extractor. A nil provider disables it.
func NewLienExtractor(provider llm.Provider, logger *slog.Logger) *LienExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LienExtractor{provider: provider, logger: logger}
}

// Extract returns the liens found in the documents. Any failure degrades
// to an empty list.
func (e *LienExtractor) Extract(ctx context.Context, address string, docs []model.RetrievedDocument) []model.Lien {
	if e.provider == nil || len(docs) == 0 {
		return nil
	}

	prompt := fmt.Sprintf(`Extract every recorded lien or encumbrance against the property at:
%s

Include mortgages, deeds of trust, tax liens, judgment liens, mechanic's
liens, and HOA liens. Skip liens against other properties. Use empty
strings for fields the sources do not state.

%s`, address, buildContext(docs))

	raw, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System: lienSystem,
		Prompt: prompt,
		Schema: lienSchema,
	})
	if err != nil {
		e.logger.Warn("lien extraction failed", "address", address, "error", err)
		return nil
	}

	var envelope lienEnvelope
	if err := decodeStrict(raw, &envelope); err != nil {
		e.logger.Warn("lien extraction returned malformed response", "address", address, "error", err)
		return nil
	}

	liens := make([]model.Lien, 0, len(envelope.Liens))
	for _, l := range envelope.Liens {
		if l.Claimant == "" && l.Type == "" {
			continue
		}
		liens = append(liens, model.Lien{
			Type:           l.Type,
			Claimant:       l.Claimant,
			Amount:         l.Amount,
			DateRecorded:   l.DateRecorded,
			Status:         coerceLienStatus(l.Status),
			Priority:       l.Priority,
			DocumentNumber: l.DocumentNumber,
		})
	}

	e.logger.Info("liens extracted", "address", address, "liens", len(liens))
	return liens
}

// coerceLienStatus maps a free-form status onto the typed set. Anything
// unrecognized becomes Unknown rather than being dropped.
func coerceLienStatus(s string) model.LienStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "open", "outstanding":
		return model.LienStatusActive
	case "released", "satisfied", "paid", "discharged":
		return model.LienStatusReleased
	case "pending":
		return model.LienStatusPending
	default:
		return model.LienStatusUnknown
	}
}
