package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// MATCHER.GO TESTS - Candidate Expansion, Label Matching
// =============================================================================

func TestExpandCandidates(t *testing.T) {
	got := ExpandCandidates([]string{"U.S. Treasury, General Account (TGA)"})
	want := []string{
		"U.S. Treasury, General Account (TGA)",
		"U.S. Treasury General Account (TGA)",
		"U.S. Treasury, General Account TGA",
		"U.S. Treasury General Account TGA",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExpandCandidates mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchLabel(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		candidates []string
		wantMatch  string
		wantOK     bool
	}{
		{
			"Footnote suffix",
			"U.S. Treasury, General Account1",
			[]string{"U.S. Treasury, General Account"},
			"U.S. Treasury, General Account", true,
		},
		{
			"Keyword subset",
			"Central bank liquidity swaps (see note 3)",
			[]string{"Central bank liquidity swaps"},
			"Central bank liquidity swaps", true,
		},
		{
			"Punctuation drift",
			"Deposits with F.R. Banks other than reserve balances",
			[]string{"Deposits with F.R. Banks, other than reserve balances"},
			"Deposits with F.R. Banks, other than reserve balances", true,
		},
		{
			"Priority order",
			"Currency in circulation",
			[]string{"Currency in circulation", "Currency"},
			"Currency in circulation", true,
		},
		{
			"Missing keyword",
			"Treasury cash holdings",
			[]string{"U.S. Treasury, General Account"},
			"", false,
		},
		{
			"Empty text",
			"",
			[]string{"Loans"},
			"", false,
		},
		{
			"No candidates",
			"Loans",
			nil,
			"", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchLabel(tt.text, tt.candidates)
			if ok != tt.wantOK || got != tt.wantMatch {
				t.Errorf("MatchLabel(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.wantMatch, tt.wantOK)
			}
		})
	}
}

func TestMatcher_ShortWordsIgnored(t *testing.T) {
	// "of" and "in" are not keywords; the remaining words must all appear.
	m := NewMatcher([]string{"Currency in circulation"})
	if _, ok := m.Match("Currency held in circulation"); !ok {
		t.Error("expected keyword match ignoring short words")
	}
	if _, ok := m.Match("Currency outstanding"); ok {
		t.Error("unexpected match without the circulation keyword")
	}
	if m.Empty() {
		t.Error("matcher with candidates reported empty")
	}
	if !NewMatcher(nil).Empty() {
		t.Error("matcher without candidates should be empty")
	}
}
