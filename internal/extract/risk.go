package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deedscope/deedscope/internal/llm"
	"github.com/deedscope/deedscope/internal/model"
)

const riskSystem = `You are a title examiner. Given a property's extracted chain of
title and recorded liens, identify title defects and risks a buyer or
underwriter must know about. Classify each as Fatal (unresolvable without
litigation), Curable (resolvable before closing), or Info (a note needing
no action).`

const riskSchema = `{
  "type": "object",
  "properties": {
    "exceptions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string", "enum": ["Fatal", "Curable", "Info"]},
          "description": {"type": "string"},
          "explanation": {"type": "string"},
          "remedy": {"type": "string"},
          "urgency": {"type": "string"}
        },
        "required": ["type", "description", "explanation"]
      }
    }
  },
  "required": ["exceptions"]
}`

type riskEnvelope struct {
	Exceptions []struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Explanation string `json:"explanation"`
		Remedy      string `json:"remedy"`
		Urgency     string `json:"urgency"`
	} `json:"exceptions"`
}

// RiskExtractor analyzes the extracted facts for title defects. It layers
// an LLM pass over deterministic checks so a model outage still reports
// chain gaps and outstanding liens.
type RiskExtractor struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewRiskExtractor creates a risk extractor. A nil provider limits it to
// the deterministic checks.
func NewRiskExtractor(provider llm.Provider, logger *slog.Logger) *RiskExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskExtractor{provider: provider, logger: logger}
}

// Analyze returns the title exceptions found in the chain and liens.
func (e *RiskExtractor) Analyze(ctx context.Context, address string, chain []model.OwnershipTransfer, liens []model.Lien) []model.TitleException {
	exceptions := deterministicExceptions(chain, liens)

	if e.provider == nil {
		return exceptions
	}

	prompt := fmt.Sprintf(`Analyze the title facts for the property at:
%s

%s
Identify defects and risks beyond a plain restatement of the facts:
forged-looking or out-of-order conveyances, unreleased encumbrances,
missing probate or divorce transfers, easement or restriction concerns.
Do not report a chain-of-title gap or an active lien as a new finding;
those are already captured.`, address, renderFacts(chain, liens))

	raw, err := e.provider.Generate(ctx, llm.GenerateRequest{
		System: riskSystem,
		Prompt: prompt,
		Schema: riskSchema,
	})
	if err != nil {
		e.logger.Warn("risk analysis failed", "address", address, "error", err)
		return exceptions
	}

	var envelope riskEnvelope
	if err := decodeStrict(raw, &envelope); err != nil {
		e.logger.Warn("risk analysis returned malformed response", "address", address, "error", err)
		return exceptions
	}

	for _, exc := range envelope.Exceptions {
		if exc.Description == "" {
			continue
		}
		exceptions = append(exceptions, model.TitleException{
			Type:        coerceExceptionType(exc.Type),
			Description: exc.Description,
			Explanation: exc.Explanation,
			Remedy:      exc.Remedy,
			Urgency:     exc.Urgency,
		})
	}

	e.logger.Info("risk analysis complete", "address", address, "exceptions", len(exceptions))
	return exceptions
}

// deterministicExceptions covers the checks that never depend on a model:
// chain continuity and unreleased liens.
func deterministicExceptions(chain []model.OwnershipTransfer, liens []model.Lien) []model.TitleException {
	var exceptions []model.TitleException

	for _, gap := range model.DetectChainGaps(chain) {
		exceptions = append(exceptions, model.TitleException{
			Type: model.ExceptionCurable,
			Description: fmt.Sprintf("Gap in chain of title: %s to %s",
				gap.PriorGrantee, gap.NextGrantor),
			Explanation: fmt.Sprintf("The recorded grantee %q does not match the next grantor %q; an intervening conveyance may be unrecorded or missing.",
				gap.PriorGrantee, gap.NextGrantor),
			Remedy:  "Locate and record the missing conveyance, or obtain a corrective instrument.",
			Urgency: "high",
		})
	}

	for _, lien := range liens {
		if lien.Status != model.LienStatusActive {
			continue
		}
		desc := fmt.Sprintf("Active %s lien held by %s", lien.Type, lien.Claimant)
		if lien.Amount != "" {
			desc += " for " + lien.Amount
		}
		exceptions = append(exceptions, model.TitleException{
			Type:        model.ExceptionCurable,
			Description: desc,
			Explanation: "The lien remains of record and must be released or paid at or before closing.",
			Remedy:      "Obtain payoff and recorded release from the lienholder.",
			Urgency:     "high",
		})
	}

	return exceptions
}

func renderFacts(chain []model.OwnershipTransfer, liens []model.Lien) string {
	var b strings.Builder
	b.WriteString("Chain of title, oldest first:\n")
	if len(chain) == 0 {
		b.WriteString("(no recorded transfers found)\n")
	}
	for i, t := range chain {
		fmt.Fprintf(&b, "%d. %s: %s to %s by %s", i+1, t.Date, t.Grantor, t.Grantee, t.DocumentType)
		if t.DocumentNumber != "" {
			fmt.Fprintf(&b, " (No. %s)", t.DocumentNumber)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRecorded liens:\n")
	if len(liens) == 0 {
		b.WriteString("(no liens found)\n")
	}
	for _, l := range liens {
		fmt.Fprintf(&b, "- %s, claimant %s, status %s", l.Type, l.Claimant, l.Status)
		if l.Amount != "" {
			fmt.Fprintf(&b, ", amount %s", l.Amount)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// coerceExceptionType maps free-form classifications onto the typed set.
// Anything unrecognized is downgraded to Info.
func coerceExceptionType(s string) model.ExceptionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fatal":
		return model.ExceptionFatal
	case "curable":
		return model.ExceptionCurable
	case "info", "informational":
		return model.ExceptionInfo
	default:
		return model.ExceptionInfo
	}
}
