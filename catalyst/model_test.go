package catalyst

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "The Company expects to complete the study.", "The Company expects to complete the study."},
		{"pdf newlines", "The Company expects\nto complete the\n\n  study.", "The Company expects to complete the study."},
		{"leading whitespace", "  \n\tGuidance for FY25\n", "Guidance for FY25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	d := &Disclosure{
		Text:              "The Company\nplans to expand.",
		Score:             14,
		CategoriesMatched: []string{"Deals", "Strategy", "Deals"},
	}
	d.Normalize()
	if d.Score != 10 {
		t.Errorf("score = %d, want 10", d.Score)
	}
	if d.Flag != "ok" {
		t.Errorf("flag = %q, want ok", d.Flag)
	}
	if diff := cmp.Diff([]string{"Deals", "Strategy"}, d.CategoriesMatched); diff != "" {
		t.Errorf("categories (-want +got):\n%s", diff)
	}
	if d.Text != "The Company plans to expand." {
		t.Errorf("text = %q", d.Text)
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(0); got != 1 {
		t.Errorf("ClampScore(0) = %d", got)
	}
	if got := ClampScore(7); got != 7 {
		t.Errorf("ClampScore(7) = %d", got)
	}
}

func TestTextPreview(t *testing.T) {
	short := &Disclosure{Text: "short statement"}
	if short.TextPreview() != "short statement" {
		t.Errorf("short preview = %q", short.TextPreview())
	}

	long := &Disclosure{Text: strings.Repeat("a", 450)}
	got := long.TextPreview()
	if len([]rune(got)) != 383 {
		t.Errorf("long preview len = %d, want 383", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long preview should end with ellipsis")
	}
}

func TestTruncated(t *testing.T) {
	d := Disclosure{Text: strings.Repeat("b", 500)}
	got := d.Truncated()
	if len([]rune(got.Text)) != 400 {
		t.Errorf("truncated len = %d, want 400", len([]rune(got.Text)))
	}
	if len([]rune(d.Text)) != 500 {
		t.Errorf("original mutated, len = %d", len([]rune(d.Text)))
	}
}

func TestNormalizeFilingType(t *testing.T) {
	tests := []struct {
		in   string
		want FilingType
		ok   bool
	}{
		{"ANNUAL", FilingASXAnnual, true},
		{"asx_annual", FilingASXAnnual, true},
		{"quarterly", FilingASXQuarterly, true},
		{"10-Q", FilingSEC10Q, true},
		{"10q", FilingSEC10Q, true},
		{"Investor_Presentation", FilingASXInvestor, true},
		{"prospectus", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeFilingType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeFilingType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseImpactTone(t *testing.T) {
	if got := ParseImpact("high"); got != ImpactHigh {
		t.Errorf("ParseImpact(high) = %q", got)
	}
	if got := ParseImpact("banana"); got != ImpactMed {
		t.Errorf("ParseImpact default = %q", got)
	}
	if got := ParseTone("Cautious"); got != ToneCautious {
		t.Errorf("ParseTone(Cautious) = %q", got)
	}
	if got := ParseTone(""); got != ToneNeutral {
		t.Errorf("ParseTone default = %q", got)
	}
}

func TestRepairForecastType(t *testing.T) {
	tests := []struct {
		raw  string
		want ForecastType
	}{
		{"CONTRACTUAL", ForecastContractual},
		{"contract signing", ForecastContractual},
		{"Regulatory approval", ForecastRegulatory},
		{"timeline", ForecastTiming},
		{"scheduled", ForecastTiming},
		{"GUIDANCE", ForecastGuidance},
		{"growth strategy", ForecastStrategy},
		{"???", ForecastHints},
	}
	for _, tt := range tests {
		if got := RepairForecastType(tt.raw, ForecastHints); got != tt.want {
			t.Errorf("RepairForecastType(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
