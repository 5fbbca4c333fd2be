package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/catalystscan/backend/catalyst"
	"github.com/catalystscan/backend/doctext"
)

type fakeText struct {
	text string
}

func (f fakeText) Text(ctx context.Context, path string) (doctext.Result, error) {
	return doctext.Result{Text: f.text, Source: doctext.SourceTextLayer, Pages: 1}, nil
}

type fakeLLM struct {
	answer  string
	prompts []string
}

func (f *fakeLLM) Ask(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, nil
}

func TestSectionsFromText(t *testing.T) {
	text := strings.Join([]string{
		"Operations Update",
		"Drilling continued at the northern tenement during the quarter.",
		"Assay results are anticipated shortly.",
		"Corporate",
		"The company completed a placement.",
	}, "\n")

	sections := sectionsFromText(text)
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Heading != "Operations Update" {
		t.Errorf("heading = %q", sections[0].Heading)
	}
	if !strings.Contains(sections[0].Text, "anticipated shortly") {
		t.Errorf("section text = %q", sections[0].Text)
	}
	if sections[1].Heading != "Corporate" {
		t.Errorf("heading = %q", sections[1].Heading)
	}
}

func TestASXQuarterlyExtract(t *testing.T) {
	text := strings.Join([]string{
		"Operations Update",
		"Drilling is expected to commence in Q3 at the Broken Hill project.",
		"The company held cash of $4.2m at quarter end.",
		"Quarterly Cash Flow Report",
		"1.1 Receipts from customers 420",
	}, "\n")

	llm := &fakeLLM{answer: `[
		{"text":"Drilling is expected to commence in Q3 at the Broken Hill project.",
		 "impact":"HIGH","tone":"positive","forecast_type":"contractual",
		 "score":8,"entities":["Broken Hill"]}
	]`}

	e := NewASXQuarterly(Deps{LLM: llm, Text: fakeText{text: text}})
	got, err := e.Extract(context.Background(), "q.pdf", Metadata{DocID: "BHX2026-07-24quarterly", FilingDate: "2026-07-24"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("disclosures = %d, want 1", len(got))
	}
	d := got[0]
	if d.Exchange != "ASX" || d.FilingType != catalyst.FilingASXQuarterly {
		t.Errorf("exchange/filing = %s/%s", d.Exchange, d.FilingType)
	}
	if d.SentenceID != "s1" {
		t.Errorf("sentence id = %q", d.SentenceID)
	}
	if d.ForecastType != catalyst.ForecastContractual {
		t.Errorf("forecast type = %s", d.ForecastType)
	}
	if d.Impact != catalyst.ImpactHigh || d.Tone != catalyst.TonePositive || d.Score != 8 {
		t.Errorf("impact/tone/score = %s/%s/%d", d.Impact, d.Tone, d.Score)
	}
	if !d.ForwardLooking {
		t.Error("disclosure should be forward looking")
	}
	if len(d.Entities) != 1 || d.Entities[0].Value != "Broken Hill" {
		t.Errorf("entities = %+v", d.Entities)
	}

	// the cash flow tables never reach the LLM
	if len(llm.prompts) != 1 {
		t.Fatalf("llm calls = %d, want 1", len(llm.prompts))
	}
	if strings.Contains(llm.prompts[0], "Receipts from customers") {
		t.Error("cash flow section leaked into the prompt")
	}
	if !strings.Contains(llm.prompts[0], "1. Drilling is expected to commence") {
		t.Errorf("prompt = %q", llm.prompts[0])
	}
}

func TestSEC10QExtract(t *testing.T) {
	htmlDoc := `<html><body>
	<p>Item 2. Management's Discussion and Analysis of Financial Condition</p>
	<p>We anticipate completing the pending acquisition during the fourth quarter of fiscal 2026.</p>
	<p>Revenue for the quarter was unchanged from the prior year period here.</p>
	<table><tr><td>We anticipate nothing from inside a table at all here.</td></tr></table>
	<p>Item 4. Controls and Procedures</p>
	<p>There were no changes in internal control over financial reporting.</p>
	<p>SIGNATURES</p>
	<p>Pursuant to the requirements of the Securities Exchange Act.</p>
	</body></html>`

	dir := t.TempDir()
	path := filepath.Join(dir, "10q.html")
	if err := os.WriteFile(path, []byte(htmlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	llm := &fakeLLM{answer: `[
		{"text":"We anticipate completing the pending acquisition during the fourth quarter of fiscal 2026.",
		 "impact":"MED","tone":"neutral","forecast_type":"scheduled","score":7,"entities":[]}
	]`}

	e := NewSEC10Q(Deps{LLM: llm})
	got, err := e.Extract(context.Background(), path, Metadata{DocID: "320193_10-Q_2026-07-15"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("disclosures = %d, want 1", len(got))
	}
	if got[0].ForecastType != catalyst.ForecastTiming {
		t.Errorf("forecast type = %s, want TIMING from %q", got[0].ForecastType, "scheduled")
	}
	if got[0].Exchange != "SEC" || got[0].FilingType != catalyst.FilingSEC10Q {
		t.Errorf("exchange/filing = %s/%s", got[0].Exchange, got[0].FilingType)
	}
	if strings.Contains(llm.prompts[0], "inside a table") {
		t.Error("table content leaked into the prompt")
	}
}

func TestSectionsFromHTMLFallback(t *testing.T) {
	sections := sectionsFromHTML("<html><body><p>No item headers anywhere in this document.</p></body></html>")
	if len(sections) != 1 || sections[0].Heading != "FULL_DOCUMENT" {
		t.Fatalf("sections = %+v", sections)
	}
}

func TestForFiling(t *testing.T) {
	deps := Deps{LLM: &fakeLLM{}, Text: fakeText{}}
	tests := []struct {
		exchange, filing string
		wantType         catalyst.FilingType
		wantErr          bool
	}{
		{"ASX", "quarterly", catalyst.FilingASXQuarterly, false},
		{"asx", "ANNUAL", catalyst.FilingASXAnnual, false},
		{"ASX", "investor_presentation", catalyst.FilingASXInvestor, false},
		{"SEC", "10-Q", catalyst.FilingSEC10Q, false},
		{"SEC", "quarterly", "", true},
		{"NYSE", "10-Q", "", true},
		{"ASX", "mystery", "", true},
	}
	for _, tt := range tests {
		e, ft, err := ForFiling(tt.exchange, tt.filing, deps)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s/%s: expected error", tt.exchange, tt.filing)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s/%s: %v", tt.exchange, tt.filing, err)
			continue
		}
		if e == nil || ft != tt.wantType {
			t.Errorf("%s/%s: filing type = %s, want %s", tt.exchange, tt.filing, ft, tt.wantType)
		}
	}
}

func TestRunSwallowsErrors(t *testing.T) {
	e := NewSEC10Q(Deps{LLM: &fakeLLM{}})
	if got := Run(context.Background(), e, "does-not-exist.html", Metadata{DocID: "x"}); got != nil {
		t.Errorf("Run = %v, want nil on extractor failure", got)
	}
}
