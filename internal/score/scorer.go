package score

import (
	"fmt"

	"github.com/deedscope/deedscope/internal/model"
)

// baseScores is the deterministic origin-tier table. Demo data is scored
// near zero so simulated reports are visibly untrustworthy.
var baseScores = map[model.SourceType]int{
	model.SourceBrowserAgent: 85,
	model.SourceCountyOffice: 80,
	model.SourceManualEntry:  70,
	model.SourcePageScrape:   60,
	model.SourceWebSearch:    50,
	model.SourceDemoData:     5,
}

// Evidence carries the per-fact flags that modify the base score.
type Evidence struct {
	HasDocumentNumber bool
	HasRecordingDate  bool
	ExtraSources      int // corroborating sources beyond the first
	MachineExtracted  bool
}

// Score derives the confidence for one fact. Pure: the same inputs always
// yield the same score and factor list.
func Score(source model.SourceType, ev Evidence) model.ConfidenceScore {
	base, ok := baseScores[source]
	if !ok {
		base = 0
	}

	score := base
	factors := []string{fmt.Sprintf("base %d (source: %s)", base, source)}

	if ev.HasDocumentNumber {
		score += 10
		factors = append(factors, "+10 instrument number recorded")
	}
	if ev.HasRecordingDate {
		score += 5
		factors = append(factors, "+5 official recording date")
	}
	if ev.ExtraSources > 0 {
		bonus := 3 * ev.ExtraSources
		if bonus > 10 {
			bonus = 10
		}
		score += bonus
		factors = append(factors, fmt.Sprintf("+%d corroborated by %d additional source(s)", bonus, ev.ExtraSources))
	}
	if ev.MachineExtracted {
		score -= 10
		factors = append(factors, "-10 machine extracted")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return model.ConfidenceScore{
		Level:   model.LevelForScore(score),
		Score:   score,
		Factors: factors,
	}
}

// ReportScore aggregates per-fact scores into the report-level score: the
// mean of all fact scores, with the weakest fact and any demo-data warning
// surfaced as factors rather than folded into the mean.
func ReportScore(scores []model.ConfidenceScore, demoData bool) model.ConfidenceScore {
	if len(scores) == 0 {
		out := model.ConfidenceScore{
			Level:   model.ConfidenceUnverified,
			Score:   0,
			Factors: []string{"no source data retrieved; nothing to verify"},
		}
		if demoData {
			out.Factors = append(out.Factors, "demonstration data: not real county records")
		}
		return out
	}

	sum := 0
	min := scores[0].Score
	for _, s := range scores {
		sum += s.Score
		if s.Score < min {
			min = s.Score
		}
	}
	mean := sum / len(scores)

	factors := []string{
		fmt.Sprintf("mean of %d fact score(s)", len(scores)),
		fmt.Sprintf("weakest fact scored %d", min),
	}
	if demoData {
		factors = append(factors, "demonstration data: not real county records")
	}

	return model.ConfidenceScore{
		Level:   model.LevelForScore(mean),
		Score:   mean,
		Factors: factors,
	}
}
