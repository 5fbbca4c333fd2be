package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalystscan/backend/catalyst"
)

// Quarterly report narrative ends where the Appendix 4C cash flow tables
// begin.
const quarterlyStopTrigger = "quarterly cash flow report"

var quarterlyExcludeHeadings = map[string]struct{}{
	"Tenement Interest Notes:":     {},
	"Competent Person’s Statement": {},
}

var quarterlyKeywords = NewMatcher([]KeywordGroup{
	{Name: "timing_and_immediacy", Phrases: []string{
		"imminent", "near-term", "upcoming", "expected shortly", "anticipated",
		"targeted for", "inbound interest", "execution phase",
	}},
	{Name: "contractual_catalysts", Phrases: []string{
		"agreement", "binding", "term sheets", "contracts", "pending", "negotiation",
		"renewal", "submitted", "proposal", "acquisition", "partnership", "discussions",
		"expected to commence", "finalizing", "tender",
	}},
	{Name: "forward_looking_hints", Phrases: []string{
		"anticipate", "expect", "outlook", "projected", "forecasted", "opportunities",
		"pipeline", "strategic review", "advanced discussions", "expansion", "significant",
	}},
	{Name: "regulatory_and_compliance", Phrases: []string{
		"clearance", "licensing", "approval", "deployment", "advanced",
		"submission", "regulatory approval", "FDA", "TGA", "review", "assay results",
	}},
})

// ASXQuarterly extracts from ASX quarterly activity reports.
type ASXQuarterly struct {
	deps Deps
}

// NewASXQuarterly ...
func NewASXQuarterly(deps Deps) *ASXQuarterly {
	return &ASXQuarterly{deps: deps}
}

func quarterlyPrompt(numbered string) string {
	return fmt.Sprintf(`You are an expert financial analyst.
You will receive a numbered list of candidate sentences extracted from a company's report.

Task:
- From the input sentences, KEEP ONLY those that are true forward-looking statements (plans, projections, forecasts, upcoming actions, regulatory submissions, pending deals, milestones, deployments, approvals, or explicitly scheduled future events).
- DROP sentences that only describe present or past facts, are vague, or offer no actionable forward-looking insight.
- For each KEPT sentence, output a JSON object with the following fields:
  - text: the original sentence (string)
  - impact: one of ["LOW","MED","HIGH"]
  - tone: one of ["positive","neutral","cautious"]
  - forecast_type: one of [%s]
  - score: integer between 1 and 10
  - entities: a list of short strings

Requirements:
- Output MUST be a single JSON array of objects.
- No explanations, no markdown.
- Keep the sentence text EXACTLY as in input.

Input sentences:
%s

Return ONLY the JSON array.`, allowedForecastTypes(), numbered)
}

// Extract ...
func (e *ASXQuarterly) Extract(ctx context.Context, path string, meta Metadata) ([]catalyst.Disclosure, error) {
	doc, err := e.deps.Text.Text(ctx, path)
	if err != nil {
		return nil, err
	}

	var kept []Section
	for _, sec := range sectionsFromText(doc.Text) {
		if strings.Contains(strings.ToLower(sec.Heading), quarterlyStopTrigger) {
			break
		}
		if _, drop := quarterlyExcludeHeadings[strings.TrimSpace(sec.Heading)]; drop {
			continue
		}
		kept = append(kept, sec)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	cands := candidates(kept, quarterlyKeywords, 0)
	if len(cands) == 0 {
		return nil, nil
	}

	return classifyBatches(ctx, e.deps.LLM, LadderBatches(cands), quarterlyPrompt,
		meta, "ASX", catalyst.FilingASXQuarterly, false,
		func(item Item) catalyst.ForecastType {
			return repairNarrow(item.ForecastType)
		},
	), nil
}

// repairNarrow recovers only the four forecast types the quarterly and SEC
// prompts reliably produce, defaulting the rest to hints.
func repairNarrow(raw string) catalyst.ForecastType {
	low := strings.ToLower(raw)
	switch {
	case strings.Contains(low, "contract"):
		return catalyst.ForecastContractual
	case strings.Contains(low, "regul"):
		return catalyst.ForecastRegulatory
	case strings.Contains(low, "time"), strings.Contains(low, "sched"):
		return catalyst.ForecastTiming
	default:
		return catalyst.ForecastHints
	}
}
