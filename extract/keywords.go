package extract

import (
	"regexp"
	"strings"
)

// KeywordGroup names a category and the phrases that signal it.
type KeywordGroup struct {
	Name    string
	Phrases []string
}

// Matcher finds keyword group hits in a sentence. Matching is
// case-insensitive on whole words, so "review" does not fire on "preview".
type Matcher struct {
	groups []KeywordGroup
	res    []*regexp.Regexp
}

// NewMatcher compiles one alternation per group, preserving group order.
func NewMatcher(groups []KeywordGroup) *Matcher {
	m := &Matcher{groups: groups}
	for _, g := range groups {
		quoted := make([]string, 0, len(g.Phrases))
		for _, p := range g.Phrases {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(p)))
		}
		m.res = append(m.res, regexp.MustCompile(`(?i)\b(?:`+strings.Join(quoted, "|")+`)\b`))
	}
	return m
}

// Match returns the names of every group with at least one hit.
func (m *Matcher) Match(sentence string) []string {
	var hits []string
	for i, re := range m.res {
		if re.MatchString(sentence) {
			hits = append(hits, m.groups[i].Name)
		}
	}
	return hits
}
