package extract

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/catalystscan/backend/catalyst"
)

var sec10QKeywords = NewMatcher([]KeywordGroup{
	{Name: "Timing & Immediacy", Phrases: []string{
		"imminent", "near-term", "upcoming", "expected shortly", "anticipated",
		"targeted for", "inbound interest", "execution phase",
	}},
	{Name: "Contractual Catalysts", Phrases: []string{
		"agreement", "binding", "term sheets", "contracts", "pending", "negotiation",
		"renewal", "submitted", "proposal", "acquisition", "partnership", "discussions",
		"expected to commence", "finalizing", "tender",
	}},
	{Name: "Forward-Looking Hints", Phrases: []string{
		"anticipate", "expect", "outlook", "projected", "forecasted", "opportunities",
		"pipeline", "strategic review", "advanced discussions", "expansion", "significant",
	}},
	{Name: "Regulatory & Compliance", Phrases: []string{
		"clearance", "licensing", "approval", "deployment", "advanced",
		"submission", "regulatory approval", "FDA", "TGA", "review", "assay results",
	}},
})

// Only these 10-Q sections carry catalyst-grade narrative.
var secImportantSections = []string{
	"risk factors", "management's discussion and analysis", "md&a", "results of operations",
	"forward-looking statements", "business", "regulation fd disclosure", "other events",
	"outlook", "item 1.01", "item 2.01", "item 2.02", "item 5.02",
}

var (
	secItemPattern = regexp.MustCompile(`(?im)^\s*(item\s+\d+[A-Za-z]?\.?\s+.*)$`)
	secSigPattern  = regexp.MustCompile(`(?im)^\s*SIGNATURES?\s*$`)
)

// fallbackWordLimit caps the whole-document fallback when no Item headers
// survive HTML flattening.
const fallbackWordLimit = 5000

// SEC10Q extracts from EDGAR 10-Q primary documents.
type SEC10Q struct {
	deps Deps
}

// NewSEC10Q ...
func NewSEC10Q(deps Deps) *SEC10Q {
	return &SEC10Q{deps: deps}
}

// flattenHTML reduces the filing to line-per-block text, discarding tables,
// figures and scripts along the way.
func flattenHTML(htmlText string) string {
	doc, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return htmlText
	}

	var sb strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table", "figure", "script", "style", "img":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return sb.String()
}

// sectionsFromHTML slices the flattened filing at its Item headers, keeps
// the sections worth reading and cuts everything after SIGNATURES.
func sectionsFromHTML(htmlText string) []Section {
	text := flattenHTML(htmlText)

	matches := secItemPattern.FindAllStringIndex(text, -1)
	sigLoc := secSigPattern.FindStringIndex(text)

	var sections []Section
	for i, m := range matches {
		title := strings.TrimSpace(text[m[0]:m[1]])
		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		} else if sigLoc != nil {
			end = sigLoc[0]
		}
		if end < start {
			continue
		}
		content := strings.TrimSpace(text[start:end])
		if content == "" {
			continue
		}
		lowTitle := strings.ToLower(title)
		for _, important := range secImportantSections {
			if strings.Contains(lowTitle, important) {
				sections = append(sections, Section{Heading: title, Text: content})
				break
			}
		}
	}

	if len(sections) == 0 {
		words := strings.Fields(text)
		if len(words) > fallbackWordLimit {
			words = words[:fallbackWordLimit]
		}
		sections = []Section{{Heading: "FULL_DOCUMENT", Text: strings.Join(words, " ")}}
	}
	return sections
}

func sec10QPrompt(numbered string) string {
	return fmt.Sprintf(`You are an expert financial analyst analyzing SEC filings (10-Q, 10-K, 8-K).
You will receive a numbered list of candidate sentences.

Task:
- KEEP only true forward-looking statements (future plans, projections, deals, regulatory actions, milestones, timelines, approvals, etc.)
- DROP anything that is historical, current status, vague, or not actionable.
- For each kept sentence, return a JSON object with:
  - text: original sentence
  - impact: "LOW" | "MED" | "HIGH"
  - tone: "positive" | "neutral" | "cautious"
  - forecast_type: one of [%s]
  - score: 1-10 (confidence)
  - entities: list of short strings

Output ONLY a valid JSON array. No markdown, no explanation.
Input:
%s`, allowedForecastTypes(), numbered)
}

// Extract ...
func (e *SEC10Q) Extract(ctx context.Context, path string, meta Metadata) ([]catalyst.Disclosure, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filing %s: %w", path, err)
	}

	sections := sectionsFromHTML(string(content))
	// 10-Q sentences under 20 chars are table fragments
	cands := candidates(sections, sec10QKeywords, 20)
	if len(cands) == 0 {
		return nil, nil
	}

	return classifyBatches(ctx, e.deps.LLM, LadderBatches(cands), sec10QPrompt,
		meta, "SEC", catalyst.FilingSEC10Q, false,
		func(item Item) catalyst.ForecastType {
			return repairNarrow(item.ForecastType)
		},
	), nil
}
