package extract

import (
	"strings"
	"unicode"
)

// SplitSentences breaks text into sentences on terminal punctuation followed
// by whitespace and a capital. Newlines inside a sentence are treated as
// spaces, which is what PDF text layers need.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	flush := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// swallow runs like "..." or ".)"
		j := i + 1
		for j < len(runes) && (runes[j] == '.' || runes[j] == ')' || runes[j] == '"' || runes[j] == '\'') {
			j++
		}
		if j >= len(runes) {
			flush(j)
			i = j
			continue
		}
		if !unicode.IsSpace(runes[j]) {
			continue
		}
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k < len(runes) && (unicode.IsUpper(runes[k]) || unicode.IsDigit(runes[k]) || runes[k] == '"' || runes[k] == '•') {
			flush(j)
			i = k - 1
		}
	}
	flush(len(runes))

	for i, s := range sentences {
		sentences[i] = strings.Join(strings.Fields(s), " ")
	}
	return sentences
}
