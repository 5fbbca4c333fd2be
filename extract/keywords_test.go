package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatcher(t *testing.T) {
	m := NewMatcher([]KeywordGroup{
		{Name: "Timeline", Phrases: []string{"near-term", "upcoming"}},
		{Name: "Regulatory", Phrases: []string{"review", "approval"}},
	})

	tests := []struct {
		name     string
		sentence string
		want     []string
	}{
		{"single group", "An upcoming drilling program.", []string{"Timeline"}},
		{"two groups", "Near-term approval is expected.", []string{"Timeline", "Regulatory"}},
		{"case insensitive", "REVIEW pending.", []string{"Regulatory"}},
		{"word boundary", "A preview of the overviews.", nil},
		{"hyphenated phrase", "near-term catalysts", []string{"Timeline"}},
		{"no hit", "Revenue was flat.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, m.Match(tt.sentence)); diff != "" {
				t.Errorf("Match(%q) mismatch (-want +got):\n%s", tt.sentence, diff)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	text := "The company expects approval in Q3. Drilling is underway.\nResults are anticipated shortly."
	got := SplitSentences(text)
	want := []string{
		"The company expects approval in Q3.",
		"Drilling is underway.",
		"Results are anticipated shortly.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sentences mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitSentencesNoDecimalBreak(t *testing.T) {
	got := SplitSentences("Cash was $1.5m at quarter end. The runway extends into FY27.")
	if len(got) != 2 {
		t.Fatalf("sentences = %q, want 2", got)
	}
	if got[0] != "Cash was $1.5m at quarter end." {
		t.Errorf("first sentence = %q", got[0])
	}
}
