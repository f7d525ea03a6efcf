package extract

import (
	"strings"
)

// =============================================================================
// LABEL MATCHER - Candidate label sets against drifting row labels
// =============================================================================

var (
	commaStripper = strings.NewReplacer(",", "")
	parenStripper = strings.NewReplacer("(", "", ")", "")
)

// ExpandCandidates returns each candidate followed by its punctuation variants
// (comma-stripped, parenthesis-stripped, whitespace-collapsed, all combined).
// Duplicates are dropped; the priority order of the input is kept.
func ExpandCandidates(candidates []string) []string {
	seen := make(map[string]bool, len(candidates)*4)
	out := make([]string, 0, len(candidates)*4)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, c := range candidates {
		collapsed := strings.Join(strings.Fields(c), " ")
		add(c)
		add(commaStripper.Replace(c))
		add(parenStripper.Replace(c))
		add(collapsed)
		add(strings.Join(strings.Fields(parenStripper.Replace(commaStripper.Replace(c))), " "))
	}
	return out
}

// candidate is a pre-normalized label with its keywords.
type candidate struct {
	source     string // Candidate as configured
	normalized string
	keywords   []string
}

// Matcher matches labels against an ordered candidate label set.
type Matcher struct {
	candidates []candidate
}

// NewMatcher expands and normalizes a candidate label set once.
func NewMatcher(candidates []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]bool)
	for _, c := range candidates {
		for _, variant := range ExpandCandidates([]string{c}) {
			n := NormalizeLabel(variant)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			m.candidates = append(m.candidates, candidate{
				source:     c,
				normalized: n,
				keywords:   keywords(n),
			})
		}
	}
	return m
}

// keywords splits a normalized label into words longer than two characters.
func keywords(normalized string) []string {
	var out []string
	for _, w := range strings.Fields(normalized) {
		if len([]rune(w)) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// Match returns the first candidate (in priority order) that matches text.
// A candidate matches on exact normalized equality, or when every one of its
// keywords is a substring of the normalized text.
func (m *Matcher) Match(text string) (string, bool) {
	if m == nil {
		return "", false
	}
	n := NormalizeLabel(text)
	if n == "" {
		return "", false
	}

	for _, c := range m.candidates {
		if n == c.normalized {
			return c.source, true
		}
		if len(c.keywords) > 0 && containsAll(n, c.keywords) {
			return c.source, true
		}
	}
	return "", false
}

// Empty reports whether the matcher has no usable candidate.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.candidates) == 0
}

func containsAll(text string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// MatchLabel matches raw text against an ordered candidate label set.
func MatchLabel(text string, candidates []string) (string, bool) {
	return NewMatcher(candidates).Match(text)
}
