// Package extract implements the two-pass statement extractors: a keyword
// candidate pass over the document text, then an LLM classification pass
// that keeps only genuine forward-looking statements.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/catalystscan/backend/catalyst"
	log "github.com/catalystscan/backend/chassis/logging"
	"github.com/catalystscan/backend/chassis/metrics"
	"github.com/catalystscan/backend/doctext"
)

// Metadata travels with a document through extraction.
type Metadata struct {
	DocID      string
	Ticker     string
	FilingDate string
	SourceFile string
}

// Asker is the slice of the LLM client the extractors need.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Extractor ...
type Extractor interface {
	Extract(ctx context.Context, path string, meta Metadata) ([]catalyst.Disclosure, error)
}

// Deps carries the shared machinery into each extractor.
type Deps struct {
	LLM  Asker
	Text doctext.Extractor
}

// Run wraps extraction the way the pipeline consumes it: failures are
// logged and produce an empty result instead of aborting the document.
func Run(ctx context.Context, e Extractor, path string, meta Metadata) []catalyst.Disclosure {
	disclosures, err := e.Extract(ctx, path, meta)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "extractor_failed",
			"docID": meta.DocID,
			"file":  path,
		}).Error(err)
		return nil
	}
	return disclosures
}

// Section - a heading plus the narrative text under it.
type Section struct {
	Heading string
	Text    string
}

// sectionsFromText groups the text layer under its headings. A line reads as
// a heading when it is short, starts with a capital and does not end like a
// sentence; everything else accumulates under the current heading.
func sectionsFromText(text string) []Section {
	var sections []Section
	heading := "Unknown"
	var current []string

	flush := func() {
		if len(current) > 0 {
			sections = append(sections, Section{Heading: heading, Text: strings.Join(current, "\n")})
			current = nil
		}
	}

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if isHeading(line) {
			flush()
			heading = line
			continue
		}
		current = append(current, line)
	}
	flush()
	return sections
}

func isHeading(line string) bool {
	if len(line) > 70 {
		return false
	}
	if len(strings.Fields(line)) > 8 {
		return false
	}
	runes := []rune(line)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	switch runes[len(runes)-1] {
	case '.', ',', ';':
		return false
	}
	letters, digits := 0, 0
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	return letters > 0 && letters >= digits
}

// candidates runs the keyword pass over sections: sentence split, keyword
// match, dedupe with order preserved.
func candidates(sections []Section, m *Matcher, minLen int) []string {
	var all []string
	for _, sec := range sections {
		all = append(all, sec.Text)
	}

	var out []string
	seen := map[string]struct{}{}
	for _, sentence := range SplitSentences(strings.Join(all, "\n")) {
		if len(sentence) <= minLen {
			continue
		}
		if len(m.Match(sentence)) == 0 {
			continue
		}
		if _, ok := seen[sentence]; ok {
			continue
		}
		seen[sentence] = struct{}{}
		out = append(out, sentence)
	}
	return out
}

// numberBatch renders "1. sentence" lines for the classification prompt.
func numberBatch(batch []string) string {
	var sb strings.Builder
	for i, s := range batch {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func allowedForecastTypes() string {
	quoted := make([]string, 0, len(catalyst.ForecastTypes))
	for _, ft := range catalyst.ForecastTypes {
		quoted = append(quoted, fmt.Sprintf("%q", string(ft)))
	}
	return strings.Join(quoted, ", ")
}

// classifyBatches runs the LLM pass batch by batch and assembles the
// disclosures. forecastFor maps each item onto a forecast type per filing
// type rules. A failed batch is skipped, not fatal.
func classifyBatches(
	ctx context.Context,
	llm Asker,
	batches [][]string,
	prompt func(numbered string) string,
	meta Metadata,
	exchange string,
	filingType catalyst.FilingType,
	keepCategories bool,
	forecastFor func(item Item) catalyst.ForecastType,
) []catalyst.Disclosure {
	var out []catalyst.Disclosure
	globalIdx := 1

	for batchNum, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		resp, err := llm.Ask(ctx, prompt(numberBatch(batch)))
		if err != nil {
			log.WithFields(log.Fields{
				"event": "classify_batch_failed",
				"docID": meta.DocID,
				"batch": batchNum + 1,
			}).Error(err)
			continue
		}
		items := DecodeItems(ExtractJSONBlock(resp))
		for _, item := range items {
			d := catalyst.Disclosure{
				DocID:          meta.DocID,
				Exchange:       exchange,
				FilingType:     filingType,
				FilingDate:     meta.FilingDate,
				SourceFile:     meta.SourceFile,
				SentenceID:     fmt.Sprintf("s%d", globalIdx),
				Text:           item.Text,
				ForwardLooking: true,
				ForecastType:   forecastFor(item),
				Tone:           catalyst.ParseTone(item.Tone),
				Impact:         catalyst.ParseImpact(item.Impact),
				Score:          item.Score,
			}
			if keepCategories {
				d.CategoriesMatched = item.CategoriesMatched
			}
			for _, e := range item.Entities {
				d.Entities = append(d.Entities, catalyst.NewEntity(e))
			}
			d.Normalize()
			metrics.Statements.WithLabelValues(string(d.Impact)).Inc()
			out = append(out, d)
			globalIdx++
		}
	}

	log.WithFields(log.Fields{
		"event":      "extraction_done",
		"docID":      meta.DocID,
		"filingType": string(filingType),
		"statements": len(out),
	}).Info("forward-looking statements extracted")
	return out
}
