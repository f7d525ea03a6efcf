package extract

import (
	"fmt"
	"strings"
	"testing"
)

// =============================================================================
// SECTION_ROUTER.GO TESTS - Section Location, Table Selection
// =============================================================================

// mustParse parses an HTML fragment or fails the test.
func mustParse(t *testing.T, content string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	return doc
}

// rowsHTML renders one two-cell row per label.
func rowsHTML(labels ...string) string {
	var sb strings.Builder
	for i, l := range labels {
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>%d</td></tr>", l, (i+1)*100)
	}
	return sb.String()
}

func TestLocateSection(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		phrases  []string
		wantID   string
		wantFind bool
	}{
		{
			"Heading inside container",
			`<div id="page"><div id="sec"><h3>1. Factors Affecting Reserve Balances</h3><p>Millions of dollars</p></div></div>`,
			[]string{"Factors Affecting Reserve Balances"},
			"sec", true,
		},
		{
			"Heading inside table",
			`<table id="t"><tr><th>Consolidated Statement of Condition</th></tr></table>`,
			[]string{"Statement of Condition"},
			"t", true,
		},
		{
			"Non-heading fallback picks most specific",
			`<div id="d"><span id="s">Statement of Condition</span></div>`,
			[]string{"Statement of Condition"},
			"d", true,
		},
		{
			"Later phrase used when first is absent",
			`<section id="x"><h2>Memorandum Items</h2></section>`,
			[]string{"Statement of Condition", "Memorandum Items"},
			"x", true,
		},
		{
			"Not found",
			`<div><h2>Maturity Distribution</h2></div>`,
			[]string{"Statement of Condition"},
			"", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.html)
			root, _, found := LocateSection(doc, tt.phrases)
			if found != tt.wantFind {
				t.Fatalf("LocateSection found = %v, want %v", found, tt.wantFind)
			}
			if !found {
				return
			}
			if id := root.AttrOr("id", ""); id != tt.wantID {
				t.Errorf("LocateSection root id = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestSelectTable_PicksAnchoredTableAnyPosition(t *testing.T) {
	anchors := []string{"Reserve Bank credit", "Currency in circulation", "Reserve balances with Federal Reserve Banks"}
	tables := map[string]string{
		// One anchor only.
		"A": `<table id="A">` + rowsHTML("Reserve Bank credit", "Bills", "Notes", "Bonds", "Other") + `</table>`,
		// Two of three anchors, enough rows.
		"B": `<table id="B">` + rowsHTML("Reserve Bank credit", "Loans", "Currency in circulation", "Other", "More") + `</table>`,
		// All anchors but too few rows.
		"C": `<table id="C">` + rowsHTML("Reserve Bank credit", "Currency in circulation", "Reserve balances with Federal Reserve Banks") + `</table>`,
	}

	orders := [][]string{
		{"A", "B", "C"},
		{"B", "A", "C"},
		{"A", "C", "B"},
		{"C", "A", "B"},
	}

	for _, order := range orders {
		t.Run(strings.Join(order, ""), func(t *testing.T) {
			var body strings.Builder
			body.WriteString(`<div id="scope">`)
			for _, id := range order {
				body.WriteString(tables[id])
			}
			body.WriteString(`</div>`)

			doc := mustParse(t, body.String())
			scope := doc.Selection().Find("#scope")
			choice, ok := SelectTable(doc, scope, anchors, 5)
			if !ok {
				t.Fatal("SelectTable found nothing")
			}
			if id := choice.Table.Selection().AttrOr("id", ""); id != "B" {
				t.Errorf("SelectTable picked %q, want B", id)
			}
			if choice.Score != 2 {
				t.Errorf("Score = %d, want 2", choice.Score)
			}
		})
	}
}

func TestSelectTable_TieBreaksByDocumentOrder(t *testing.T) {
	anchors := []string{"Loans", "Gold stock"}
	html := `<div id="scope">` +
		`<table id="first">` + rowsHTML("Loans", "Gold stock", "a", "b", "c") + `</table>` +
		`<table id="second">` + rowsHTML("Gold stock", "Loans", "d", "e", "f") + `</table>` +
		`</div>`

	doc := mustParse(t, html)
	choice, ok := SelectTable(doc, doc.Selection().Find("#scope"), anchors, 5)
	if !ok {
		t.Fatal("SelectTable found nothing")
	}
	if id := choice.Table.Selection().AttrOr("id", ""); id != "first" {
		t.Errorf("SelectTable picked %q, want first", id)
	}
	if choice.Position != 0 {
		t.Errorf("Position = %d, want 0", choice.Position)
	}
}

func TestSelectTable_FollowingSiblingsBeforePreceding(t *testing.T) {
	anchors := []string{"Loans", "Gold stock", "Treasury currency outstanding"}
	html := `<body>` +
		`<table id="before">` + rowsHTML("Loans", "Gold stock", "Treasury currency outstanding", "x", "y") + `</table>` +
		`<div id="title"><h2>Factors Affecting Reserve Balances</h2></div>` +
		`<table id="after">` + rowsHTML("Loans", "Gold stock", "x", "y", "z") + `</table>` +
		`</body>`

	doc := mustParse(t, html)
	root, _, found := LocateSection(doc, []string{"Factors Affecting Reserve Balances"})
	if !found {
		t.Fatal("section not found")
	}
	choice, ok := SelectTable(doc, root, anchors, 5)
	if !ok {
		t.Fatal("SelectTable found nothing")
	}
	if id := choice.Table.Selection().AttrOr("id", ""); id != "after" {
		t.Errorf("SelectTable picked %q, want after", id)
	}
}

func TestSelectTable_NotFound(t *testing.T) {
	html := `<table>` + rowsHTML("Loans", "a", "b", "c", "d") + `</table>`
	doc := mustParse(t, html)
	if _, ok := SelectTable(doc, nil, []string{"Loans", "Gold stock"}, 5); ok {
		t.Error("expected no table with a single anchor")
	}
}
