package catalyst

import "strings"

// Impact score buckets.
type Impact string

const (
	ImpactHigh Impact = "HIGH"
	ImpactMed  Impact = "MED"
	ImpactLow  Impact = "LOW"
)

// Tone of the statement.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNeutral  Tone = "neutral"
	ToneCautious Tone = "cautious"
)

// ForecastType classifies what kind of future event a statement discloses.
type ForecastType string

const (
	ForecastIntent      ForecastType = "INTENT"      // plan / intention / will / aims
	ForecastTiming      ForecastType = "TIMING"      // timeline, schedule, soon
	ForecastContractual ForecastType = "CONTRACTUAL" // contracts, JV, MOU, deals
	ForecastGuidance    ForecastType = "GUIDANCE"    // revenue/EBITDA guidance, forecast
	ForecastRegulatory  ForecastType = "REGULATORY"  // approvals, filings, FDA, ASX
	ForecastStrategy    ForecastType = "STRATEGY"    // growth strategy, expansion
	ForecastHints       ForecastType = "HINTS"       // vague forward commentary
	ForecastMilestones  ForecastType = "MILESTONES"
	ForecastDeals       ForecastType = "DEALS"
)

// ForecastTypes lists every value, in prompt order.
var ForecastTypes = []ForecastType{
	ForecastIntent,
	ForecastTiming,
	ForecastContractual,
	ForecastGuidance,
	ForecastRegulatory,
	ForecastStrategy,
	ForecastHints,
	ForecastMilestones,
	ForecastDeals,
}

// FilingType canonical values.
type FilingType string

const (
	FilingASXAnnual    FilingType = "annual"
	FilingASXQuarterly FilingType = "quarterly"
	FilingASXInvestor  FilingType = "investor"
	FilingSEC10Q       FilingType = "SEC_10Q"
)

var filingSynonyms = map[string]FilingType{
	"ANNUAL":                FilingASXAnnual,
	"ASX_ANNUAL":            FilingASXAnnual,
	"QUARTERLY":             FilingASXQuarterly,
	"ASX_QUARTERLY":         FilingASXQuarterly,
	"INVESTOR":              FilingASXInvestor,
	"INVESTOR_PRESENTATION": FilingASXInvestor,
	"PRESENTATION":          FilingASXInvestor,
	"10-Q":                  FilingSEC10Q,
	"10Q":                   FilingSEC10Q,
	"SEC_10Q":               FilingSEC10Q,
}

// NormalizeFilingType maps the synonyms seen in announcements and requests
// onto the canonical filing type.
func NormalizeFilingType(raw string) (FilingType, bool) {
	if ft, ok := filingSynonyms[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return ft, true
	}
	switch FilingType(raw) {
	case FilingASXAnnual, FilingASXQuarterly, FilingASXInvestor, FilingSEC10Q:
		return FilingType(raw), true
	}
	return "", false
}

// ParseImpact defaults to MED, the behavior the extractors rely on for
// malformed LLM output.
func ParseImpact(raw string) Impact {
	switch Impact(strings.ToUpper(strings.TrimSpace(raw))) {
	case ImpactHigh:
		return ImpactHigh
	case ImpactLow:
		return ImpactLow
	default:
		return ImpactMed
	}
}

// ParseTone defaults to neutral.
func ParseTone(raw string) Tone {
	switch Tone(strings.ToLower(strings.TrimSpace(raw))) {
	case TonePositive:
		return TonePositive
	case ToneCautious:
		return ToneCautious
	default:
		return ToneNeutral
	}
}

// RepairForecastType recovers a usable forecast type from whatever string
// the model produced, falling back as instructed by the caller.
func RepairForecastType(raw string, fallback ForecastType) ForecastType {
	low := strings.ToLower(raw)
	switch {
	case strings.Contains(low, "contract"):
		return ForecastContractual
	case strings.Contains(low, "regul"):
		return ForecastRegulatory
	case strings.Contains(low, "time"), strings.Contains(low, "sched"):
		return ForecastTiming
	case strings.Contains(low, "guidance"):
		return ForecastGuidance
	case strings.Contains(low, "strategy"):
		return ForecastStrategy
	case strings.Contains(low, "intent"):
		return ForecastIntent
	case strings.Contains(low, "milestone"):
		return ForecastMilestones
	case strings.Contains(low, "deal"):
		return ForecastDeals
	case strings.Contains(low, "hint"):
		return ForecastHints
	default:
		return fallback
	}
}
