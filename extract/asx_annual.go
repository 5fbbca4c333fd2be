package extract

import (
	"context"
	"fmt"
	"regexp"

	"github.com/catalystscan/backend/catalyst"
)

// Annual reports bury the narrative under statutory boilerplate; everything
// from the auditor declarations onward is noise.
var annualStopAfter = compileAll([]string{
	`Auditor.?s?.? Independence Declaration`,
	`Notes to the Financial Statements`,
	`Notes to the Consolidated Financial Statements`,
	`Independent Auditor.?s?.? Report`,
	`Corporate Governance Statement`,
})

var annualDropHeadings = compileAll([]string{
	`Corporate\s+Directory`,
	`^Directors$`,
	`Company\s+Secretar(y|ies)`,
	`Registered\s+Office`,
	`Auditors?`,
	`Share\s+Registry`,
	`Website`,
	`Information\s+on\s+Directors`,
	`Information\s+on\s+Company\s+Secretaries`,
	`Board\s+of\s+Directors`,
	`Remuneration\s+Report`,
	`Non[- ]audit\s+services`,
	`Proceedings\s+on\s+behalf\s+of\s+Company`,
	`Indemnification`,
	`Insurance\s+premiums`,
	`^Share\s+options$`,
	`^Options$`,
	`Warrants`,
	`Rounding\s+of\s+amounts`,
	`Meetings\s+of\s+Directors`,
	`Loan\s+from\s+Directors`,
	`Number\s+of\s+shares\s+held`,
	`Number\s+of\s+listed\s+options`,
	`^Performance\s+Rights$`,
	`Incentive|Sale\s+Bonus\s+Pool|Termination`,
	`Voting.*Annual\s+General\s+Meeting`,
})

var annualKeywords = NewMatcher(forwardKeywordGroups)

// forwardKeywordGroups signals forward-looking intent in ASX narrative
// reports. Group names double as the categories reported to the LLM pass.
var forwardKeywordGroups = []KeywordGroup{
	{Name: "Intent Verbs", Phrases: []string{
		"expected shortly", "expected to", "expect to", "plan to", "planned to",
		"intends to", "intend to", "inbound interest",
		"anticipates", "anticipate", "anticipated",
		"targeting", "targets", "targeted", "finalizing",
	}},
	{Name: "Timeline", Phrases: []string{
		"over the next", "in fy", "in h1", "in h2", "year end",
		"during", "near-term", "imminent", "upcoming", "expected in",
		"targeted for", "scheduled for", "execution phase",
	}},
	{Name: "Guidance", Phrases: []string{
		"guidance", "forecast", "outlook", "projected", "opportunities",
		"cash flow positive", "capital raise", "funding secured", "forecasted",
	}},
	{Name: "Milestones", Phrases: []string{
		"licensing", "clearance", "approval",
		"resource upgrade", "fda", "deployment", "advanced",
		"regulatory approval", "submission", "tender", "review",
	}},
	{Name: "Deals", Phrases: []string{
		"agreement expected", "term sheets", "binding", "contracts",
		"mou", "jv", "partnership", "submitted", "pending", "acquisition",
		"negotiation", "commercial launch", "renewal", "proposal", "discussions",
		"expected to commence",
	}},
	{Name: "Strategy", Phrases: []string{
		"strategy", "strategic review", "significant", "advanced discussions",
		"expansion", "growth strategy", "finalizing", "pipeline",
	}},
}

func compileAll(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(`(?i)`+p))
	}
	return res
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// ASXAnnual extracts from ASX annual reports.
type ASXAnnual struct {
	deps Deps
}

// NewASXAnnual ...
func NewASXAnnual(deps Deps) *ASXAnnual {
	return &ASXAnnual{deps: deps}
}

func annualPrompt(numbered string) string {
	return fmt.Sprintf(`You are an expert financial analyst.
You will receive a numbered list of candidate sentences extracted from a company's annual report.

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
  - categories_matched: list of strings

Requirements:
- Output MUST be a single JSON array of objects.
- No explanations, no markdown.
- Keep the sentence text EXACTLY as in input.

Input sentences:
%s

Return ONLY the JSON array.`, allowedForecastTypes(), numbered)
}

// Extract ...
func (e *ASXAnnual) Extract(ctx context.Context, path string, meta Metadata) ([]catalyst.Disclosure, error) {
	doc, err := e.deps.Text.Text(ctx, path)
	if err != nil {
		return nil, err
	}

	var kept []Section
	for _, sec := range sectionsFromText(doc.Text) {
		if anyMatch(annualStopAfter, sec.Heading) {
			break
		}
		if anyMatch(annualDropHeadings, sec.Heading) {
			continue
		}
		kept = append(kept, sec)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	cands := candidates(kept, annualKeywords, 0)
	if len(cands) == 0 {
		return nil, nil
	}

	return classifyBatches(ctx, e.deps.LLM, LadderBatches(cands), annualPrompt,
		meta, "ASX", catalyst.FilingASXAnnual, true,
		func(item Item) catalyst.ForecastType {
			return catalyst.RepairForecastType(item.ForecastType, catalyst.ForecastHints)
		},
	), nil
}
