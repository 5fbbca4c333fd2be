package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeFenceRe      = regexp.MustCompile("(?i)^```json|```$")
	trailingObjComma = regexp.MustCompile(`,\s*}`)
	trailingArrComma = regexp.MustCompile(`,\s*]`)
)

// ExtractJSONBlock slices the JSON array out of messy LLM output: code
// fences stripped, the outermost [...] kept, trailing commas repaired.
// Returns "" when no array is present.
func ExtractJSONBlock(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return ""
	}
	cleaned = codeFenceRe.ReplaceAllString(cleaned, "")

	s := strings.Index(cleaned, "[")
	e := strings.LastIndex(cleaned, "]")
	if s == -1 || e == -1 || e < s {
		return ""
	}
	block := cleaned[s : e+1]
	block = trailingObjComma.ReplaceAllString(block, "}")
	block = trailingArrComma.ReplaceAllString(block, "]")
	return block
}

// Item - one classified sentence from the LLM's JSON array.
type Item struct {
	Text              string
	Impact            string
	Tone              string
	ForecastType      string
	Score             int
	Entities          []string
	CategoriesMatched []string
}

type rawItem struct {
	Text              string            `json:"text"`
	Impact            string            `json:"impact"`
	Tone              string            `json:"tone"`
	ForecastType      string            `json:"forecast_type"`
	Score             json.Number       `json:"score"`
	Entities          []json.RawMessage `json:"entities"`
	CategoriesMatched []string          `json:"categories_matched"`
}

// DecodeItems parses the block leniently: malformed elements are dropped
// rather than failing the batch, and missing scores default to 5.
func DecodeItems(block string) []Item {
	if block == "" {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(block), &raws); err != nil {
		return nil
	}

	var items []Item
	for _, raw := range raws {
		var ri rawItem
		if err := json.Unmarshal(raw, &ri); err != nil {
			continue
		}
		item := Item{
			Text:              ri.Text,
			Impact:            ri.Impact,
			Tone:              ri.Tone,
			ForecastType:      ri.ForecastType,
			Score:             5,
			CategoriesMatched: ri.CategoriesMatched,
		}
		if ri.Score != "" {
			if f, err := ri.Score.Float64(); err == nil {
				item.Score = int(f)
			}
		}
		for _, ent := range ri.Entities {
			var s string
			if err := json.Unmarshal(ent, &s); err == nil {
				item.Entities = append(item.Entities, s)
				continue
			}
			item.Entities = append(item.Entities, strings.TrimSpace(string(ent)))
		}
		items = append(items, item)
	}
	return items
}
