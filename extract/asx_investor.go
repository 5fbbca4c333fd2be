package extract

import (
	"context"
	"fmt"

	"github.com/catalystscan/backend/catalyst"
)

// Investor decks are mostly slides of claims; these headings mark the ones
// with no forward-looking payload.
var investorDropHeadings = compileAll([]string{
	`Disclaimer`,
	`Competent\s+Person`,
	`Board|Director|Chairman|CEO|COO|CFO|Management`,
	`Corporate\s+(Snapshot|Overview|Directory|Structure)`,
	`About\s+.*`,
	`Registered\s+Office`,
	`Principal\s+Place`,
	`Investor\s+Relations`,
	`Website`,
	`Financial\s+Snapshot`,
	`Inferred\s+Mineral|JORC|Metallurgy|Assay|Drill|Resource|Geochemistry|Infrastructure`,
	`T\s*cell|CAR[- ]?T|Immune|Mechanism|Safety\s+Profile`,
	`Supply|Demand|Market\s+Fundamentals`,
	`Contact|Appendix|Legal|Notice`,
})

var investorKeywords = NewMatcher(forwardKeywordGroups)

// investorCategoryForecast maps the first matched category onto a forecast
// type; decks rarely state one explicitly.
var investorCategoryForecast = map[string]catalyst.ForecastType{
	"Intent Verbs": catalyst.ForecastIntent,
	"Timeline":     catalyst.ForecastTiming,
	"Guidance":     catalyst.ForecastGuidance,
	"Milestones":   catalyst.ForecastMilestones,
	"Deals":        catalyst.ForecastDeals,
	"Strategy":     catalyst.ForecastStrategy,
}

// ASXInvestor extracts from ASX investor presentations.
type ASXInvestor struct {
	deps Deps
}

// NewASXInvestor ...
func NewASXInvestor(deps Deps) *ASXInvestor {
	return &ASXInvestor{deps: deps}
}

func investorPrompt(numbered string) string {
	return fmt.Sprintf(`You are an expert financial analyst.
You will receive a numbered list of candidate sentences extracted from an ASX investor report.

Task:
- KEEP ONLY true forward-looking statements.
- DROP sentences that describe only past/present facts or vague commentary.
- For each KEPT sentence, output JSON with:
  - text
  - impact (LOW, MED, HIGH)
  - tone (positive, neutral, cautious)
  - forecast_type (one of [%s])
  - score (1-10)
  - entities (list)
  - categories_matched (list)

Output: A single JSON array only.

Input sentences:
%s`, allowedForecastTypes(), numbered)
}

// Extract ...
func (e *ASXInvestor) Extract(ctx context.Context, path string, meta Metadata) ([]catalyst.Disclosure, error) {
	doc, err := e.deps.Text.Text(ctx, path)
	if err != nil {
		return nil, err
	}

	var kept []Section
	for _, sec := range sectionsFromText(doc.Text) {
		if anyMatch(investorDropHeadings, sec.Heading) {
			continue
		}
		kept = append(kept, sec)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	cands := candidates(kept, investorKeywords, 0)
	if len(cands) == 0 {
		return nil, nil
	}

	return classifyBatches(ctx, e.deps.LLM, HalfBatches(cands), investorPrompt,
		meta, "ASX", catalyst.FilingASXInvestor, true,
		func(item Item) catalyst.ForecastType {
			if len(item.CategoriesMatched) > 0 {
				if ft, ok := investorCategoryForecast[item.CategoriesMatched[0]]; ok {
					return ft
				}
			}
			return catalyst.ForecastStrategy
		},
	), nil
}
