// Package catalyst defines the disclosure model produced by the extractors
// and persisted to the results store.
package catalyst

import (
	"strings"
)

const previewLimit = 400

// Entity - a short entity mention attached to a statement.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Text  string `json:"text"`
}

// NewEntity ...
func NewEntity(value string) Entity {
	return Entity{Type: "entity", Value: value, Text: value}
}

// Disclosure - one forward-looking statement flagged in a filing.
type Disclosure struct {
	// Document metadata
	DocID      string     `json:"doc_id"`
	Exchange   string     `json:"exchange"` // "ASX" or "SEC"
	FilingType FilingType `json:"filing_type"`
	FilingDate string     `json:"filing_date,omitempty"`
	SourceFile string     `json:"source_file,omitempty"`

	// Catalyst content
	SentenceID     string `json:"sentence_id"`
	Text           string `json:"text"`
	ForwardLooking bool   `json:"forward_looking"`

	ForecastType ForecastType `json:"forecast_type"`
	Tone         Tone         `json:"tone"`
	Impact       Impact       `json:"impact"`
	Score        int          `json:"score"`

	// Optional enrichments
	CategoriesMatched []string `json:"categories_matched"`
	Entities          []Entity `json:"entities"`
	Flag              string   `json:"flag,omitempty"`
}

// NormalizeText squeezes the excessive newlines and tabs that come out of
// PDF text layers into single spaces.
func NormalizeText(v string) string {
	if v == "" {
		return ""
	}
	var parts []string
	for _, line := range strings.Split(v, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// ClampScore keeps the model-reported score inside 1..10.
func ClampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// DedupeStrings removes repeats, preserving first-seen order.
func DedupeStrings(v []string) []string {
	if len(v) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(v))
	out := make([]string, 0, len(v))
	for _, s := range v {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Normalize applies the model invariants in place: cleaned text, clamped
// score, deduped categories, defaulted flag.
func (d *Disclosure) Normalize() {
	d.Text = NormalizeText(d.Text)
	d.Score = ClampScore(d.Score)
	d.CategoriesMatched = DedupeStrings(d.CategoriesMatched)
	if d.Flag == "" {
		d.Flag = "ok"
	}
}

// TextPreview returns the display form of Text, truncated past 400 runes.
// The stored text is never touched.
func (d *Disclosure) TextPreview() string {
	s := strings.TrimSpace(d.Text)
	runes := []rune(s)
	if len(runes) > previewLimit {
		return string(runes[:380]) + "..."
	}
	return s
}

// Truncated returns a copy with Text capped at 400 runes, the form written
// into JSON artifacts and the results store.
func (d Disclosure) Truncated() Disclosure {
	runes := []rune(d.Text)
	if len(runes) > previewLimit {
		d.Text = string(runes[:previewLimit])
	}
	return d
}
