package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// =============================================================================
// SECTION LOCATOR - Structural root of a named report section
// =============================================================================

const (
	headingSelector   = "h1, h2, h3, h4, h5, h6, caption, th, strong, b, .title, .heading, [role=heading]"
	containerSelector = "div, section, article, main"

	// MinAnchorScore is the number of anchor labels a table must contain.
	MinAnchorScore = 2
)

// LocateSection finds the root of the first section whose heading contains
// one of the phrases. Phrases are tried in order; for each phrase heading-like
// elements are searched before all elements, and the matching element with
// the fewest descendants wins. The root is the nearest enclosing table, else
// the nearest container, else the element itself.
func LocateSection(doc *Document, phrases []string) (root *goquery.Selection, phrase string, found bool) {
	if doc == nil {
		return nil, "", false
	}
	for _, p := range phrases {
		np := NormalizeLabel(p)
		if np == "" {
			continue
		}

		el := mostSpecific(doc.doc.Find(headingSelector), np)
		if el == nil {
			el = mostSpecific(doc.doc.Find("body *"), np)
		}
		if el == nil {
			continue
		}
		return sectionRoot(el), p, true
	}
	return nil, "", false
}

// mostSpecific returns the element with the fewest descendants whose text
// contains the normalized phrase. Ties keep the first in document order.
func mostSpecific(candidates *goquery.Selection, phrase string) *goquery.Selection {
	var best *goquery.Selection
	bestCount := 0
	candidates.Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(NormalizeLabel(s.Text()), phrase) {
			return
		}
		n := s.Find("*").Length()
		if best == nil || n < bestCount {
			best, bestCount = s, n
		}
	})
	return best
}

func sectionRoot(el *goquery.Selection) *goquery.Selection {
	if t := el.Closest("table"); t.Length() > 0 {
		return t
	}
	if c := el.Closest(containerSelector); c.Length() > 0 {
		return c
	}
	return el
}

// =============================================================================
// TABLE SELECTOR - Anchor-label scoring among candidate tables
// =============================================================================

// TableChoice describes the table picked for a section.
type TableChoice struct {
	Table    *Table
	Score    int // Number of anchor labels found in the table
	Position int // Document order among all tables
}

// SelectTable picks the data table for a section. Candidate tables are
// gathered in tiers: inside the scope, among the scope's following siblings,
// among its preceding siblings, then document-wide. Within the first tier that
// yields a table with at least minRows rows and an anchor score of
// MinAnchorScore, the highest score wins; ties break by document order.
// A nil scope searches the whole document.
func SelectTable(doc *Document, scope *goquery.Selection, anchors []string, minRows int) (*TableChoice, bool) {
	if doc == nil {
		return nil, false
	}
	if minRows <= 0 {
		minRows = DefaultMinRows
	}

	normalized := make([]string, 0, len(anchors))
	for _, a := range anchors {
		if n := NormalizeLabel(a); n != "" {
			normalized = append(normalized, n)
		}
	}

	for _, tier := range candidateTiers(doc, scope) {
		var best *TableChoice
		tier.Each(func(_ int, sel *goquery.Selection) {
			t := NewTable(sel)
			// Title-only decoys have too few rows.
			if t.RowCount() < minRows {
				return
			}
			score := anchorScore(NormalizeLabel(t.FlatText()), normalized)
			if score < MinAnchorScore {
				return
			}
			pos := doc.position(sel)
			if best == nil || score > best.Score || (score == best.Score && pos < best.Position) {
				best = &TableChoice{Table: t, Score: score, Position: pos}
			}
		})
		if best != nil {
			return best, true
		}
	}
	return nil, false
}

func candidateTiers(doc *Document, scope *goquery.Selection) []*goquery.Selection {
	var tiers []*goquery.Selection
	if scope != nil && scope.Length() > 0 {
		tiers = append(tiers, tablesIn(scope))
		tiers = append(tiers, tablesIn(scope.NextAll()))
		tiers = append(tiers, tablesIn(scope.PrevAll()))
	}
	return append(tiers, doc.Tables())
}

// tablesIn returns the tables that are, or are inside, the selection.
func tablesIn(s *goquery.Selection) *goquery.Selection {
	return s.Filter("table").AddSelection(s.Find("table"))
}

func anchorScore(text string, anchors []string) int {
	score := 0
	for _, a := range anchors {
		if strings.Contains(text, a) {
			score++
		}
	}
	return score
}
