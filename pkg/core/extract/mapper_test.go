package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// MAPPER.GO TESTS - Row Classification, Deduplication, Whitelist Order
// =============================================================================

var absorbingFields = []FieldSpec{
	{Key: "CURRENCY_IN_CIRCULATION", Candidates: []string{"Currency in circulation"}},
	{Key: "REVERSE_REPOS", Candidates: []string{"Reverse repurchase agreements"}},
	{Key: "TGA", Candidates: []string{"U.S. Treasury, General Account", "Treasury General Account"}},
}

func TestMapper_DedupKeepsNonZero(t *testing.T) {
	m, err := NewMapper(absorbingFields, nil)
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}

	rows := []ExtractedRow{
		{Label: "U.S. Treasury, General Account", Value: fptr(0)},
		{Label: "Treasury General Account1", Value: fptr(5000)},
		{Label: "U.S. Treasury, General Account", Value: fptr(7000)},
	}
	mapped, warns := m.Map(rows, []FieldKey{"TGA"})
	if len(mapped) != 1 {
		t.Fatalf("got %d rows, want 1", len(mapped))
	}
	if got := mapped[0]; got.Key != "TGA" || got.Value == nil || *got.Value != 5000 {
		t.Errorf("TGA = %+v, want value 5000", got)
	}
	if len(warns) != 0 {
		t.Errorf("unexpected warnings: %q", warns)
	}
}

func TestMapper_DedupKeepsFirstWhenAllZero(t *testing.T) {
	m, _ := NewMapper(absorbingFields, nil)
	rows := []ExtractedRow{
		{Label: "Reverse repurchase agreements", Value: fptr(0)},
		{Label: "Reverse repurchase agreements", Value: nil},
	}
	mapped, _ := m.Map(rows, []FieldKey{"REVERSE_REPOS"})
	if len(mapped) != 1 || mapped[0].Value == nil || *mapped[0].Value != 0 {
		t.Errorf("mapped = %+v, want first zero row", mapped)
	}
}

func TestMapper_WhitelistOrderAndDrops(t *testing.T) {
	m, err := NewMapper(absorbingFields, []RuleSpec{{Key: "TREASURY_CASH", Pattern: `^treasury cash`}})
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}

	rows := []ExtractedRow{
		{Label: "U.S. Treasury, General Account", Value: fptr(750000)},
		{Label: "Treasury cash holdings", Value: fptr(300)},
		{Label: "Foreign official", Value: fptr(9700)},
		{Label: "Currency in circulation", Value: fptr(2350000)},
	}
	whitelist := []FieldKey{"CURRENCY_IN_CIRCULATION", "REVERSE_REPOS", "TGA"}
	mapped, warns := m.Map(rows, whitelist)

	var keys []FieldKey
	for _, r := range mapped {
		keys = append(keys, r.Key)
	}
	if diff := cmp.Diff([]FieldKey{"CURRENCY_IN_CIRCULATION", "TGA"}, keys); diff != "" {
		t.Errorf("key order (-want +got):\n%s", diff)
	}
	// Only the unclassified label is a warning; TREASURY_CASH is dropped quietly.
	if diff := cmp.Diff(Warnings{`unmatched label "Foreign official"`}, warns); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
}

func TestMapper_PatternsBeforeCandidates(t *testing.T) {
	fields := []FieldSpec{
		{Key: "SECURITIES_HELD_OUTRIGHT", Candidates: []string{"Securities held outright"}},
		{Key: "UNAMORTIZED_PREMIUMS", Candidates: []string{"Unamortized premiums on securities held outright"}, Patterns: []string{`^unamortized premiums`}},
		{Key: "REPURCHASE_AGREEMENTS", Patterns: []string{`^repurchase agreements`}},
	}
	m, err := NewMapper(fields, nil)
	if err != nil {
		t.Fatalf("NewMapper failed: %v", err)
	}

	tests := []struct {
		label  string
		want   FieldKey
		wantOK bool
	}{
		{"Unamortized premiums on securities held outright5", "UNAMORTIZED_PREMIUMS", true},
		{"Securities held outright1", "SECURITIES_HELD_OUTRIGHT", true},
		{"Repurchase agreements6", "REPURCHASE_AGREEMENTS", true},
		{"Reverse repurchase agreements", "", false},
	}
	for _, tt := range tests {
		got, ok := m.Classify(tt.label)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNewMapper_BadPattern(t *testing.T) {
	_, err := NewMapper([]FieldSpec{{Key: "X", Patterns: []string{`(`}}}, nil)
	if err == nil {
		t.Error("expected error for invalid pattern")
	}
}
