package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// =============================================================================
// TABLE GRID - Physical columns with colspan/rowspan expanded
// =============================================================================

// maxSpan caps colspan/rowspan values taken from the document.
const maxSpan = 64

// gridRow is one table row laid out on physical columns.
type gridRow struct {
	cells   []string
	carried []bool // Cell text carried down from a rowspan in an earlier row
}

// label returns the row's first cell.
func (r gridRow) label() string {
	if len(r.cells) == 0 {
		return ""
	}
	return r.cells[0]
}

// Table is a data table laid out on a physical column grid.
type Table struct {
	sel   *goquery.Selection
	rows  []gridRow
	width int
}

// NewTable lays out the table's own rows (rows of nested tables excluded).
func NewTable(sel *goquery.Selection) *Table {
	t := &Table{sel: sel, rows: buildGrid(ownRows(sel))}
	for _, r := range t.rows {
		if len(r.cells) > t.width {
			t.width = len(r.cells)
		}
	}
	return t
}

// Selection returns the underlying table element.
func (t *Table) Selection() *goquery.Selection {
	return t.sel
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// FlatText returns the text of every cell, space separated.
func (t *Table) FlatText() string {
	var sb strings.Builder
	for _, r := range t.rows {
		for i, c := range r.cells {
			if r.carried[i] || c == "" {
				continue
			}
			sb.WriteString(c)
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func ownRows(table *goquery.Selection) *goquery.Selection {
	if table.Length() == 0 {
		return table
	}
	node := table.Get(0)
	return table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").Get(0) == node
	})
}

type pendingSpan struct {
	text string
	left int
}

func buildGrid(rows *goquery.Selection) []gridRow {
	var out []gridRow
	pending := make(map[int]*pendingSpan)

	rows.Each(func(_ int, tr *goquery.Selection) {
		var row gridRow
		col := 0
		place := func(text string, carried bool) {
			row.cells = append(row.cells, text)
			row.carried = append(row.carried, carried)
		}
		// Columns still covered by a rowspan from an earlier row.
		carry := func() {
			for {
				p, ok := pending[col]
				if !ok {
					return
				}
				place(p.text, true)
				if p.left--; p.left == 0 {
					delete(pending, col)
				}
				col++
			}
		}

		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			carry()
			text := cellText(cell)
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			for k := 0; k < colspan; k++ {
				place(text, false)
				if rowspan > 1 {
					pending[col] = &pendingSpan{text: text, left: rowspan - 1}
				}
				col++
			}
		})

		last := -1
		for c := range pending {
			if c >= col && c > last {
				last = c
			}
		}
		for col <= last {
			if _, ok := pending[col]; ok {
				carry()
				continue
			}
			place("", false)
			col++
		}
		out = append(out, row)
	})
	return out
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	if n > maxSpan {
		return maxSpan
	}
	return n
}

// cellText returns the visible text of a cell with line breaks and block
// boundaries turned into spaces.
func cellText(cell *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range cell.Nodes {
		writeText(&sb, n)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			sb.WriteByte(' ')
			return
		case atom.Script, atom.Style:
			return
		case atom.P, atom.Div, atom.Span, atom.Sup, atom.Sub:
			sb.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
}

// =============================================================================
// HEADER RESOLVER - Column roles from multi-row, spanning headers
// =============================================================================

var datePattern = regexp.MustCompile(
	`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}\b` +
		`|\b\d{1,2}/\d{1,2}/\d{2,4}\b` +
		`|\b\d{4}-\d{2}-\d{2}\b`)

// Header is the resolved header of a table.
type Header struct {
	Columns   Columns
	Labels    []string // Combined header text per physical column
	DataStart int      // Index of the first data row
}

// AsOf returns the header text of the value column.
func (h Header) AsOf() string {
	if idx, ok := h.Columns.Get(RoleValue); ok && idx < len(h.Labels) {
		return h.Labels[idx]
	}
	return ""
}

// isDataRow reports whether a row has a label and at least one number.
func isDataRow(r gridRow) bool {
	if strings.TrimSpace(r.label()) == "" {
		return false
	}
	for _, c := range r.cells[1:] {
		if isNumber(c) {
			return true
		}
	}
	return false
}

// ResolveColumns computes the physical column of each role. A header without
// a value column leaves RoleValue unset; callers abort that table only.
func (t *Table) ResolveColumns(rules HeaderRules) (Header, Warnings) {
	rules = rules.withDefaults()
	var warns Warnings
	h := Header{Columns: Columns{}, DataStart: len(t.rows)}

	// Step 1: header rows are the leading rows before the first data row
	for i, r := range t.rows {
		if i >= rules.MaxHeaderRows || isDataRow(r) {
			h.DataStart = i
			break
		}
	}

	// Step 2: combined header text per physical column
	display := make([][]string, t.width)
	combined := make([]string, t.width)
	segments := make([][]string, t.width)
	for _, r := range t.rows[:h.DataStart] {
		shift := t.headerShift(r, rules)
		for i, text := range r.cells {
			if r.carried[i] || text == "" {
				continue
			}
			col := i + shift
			display[col] = append(display[col], text)
			segments[col] = append(segments[col], lowerText(text))
		}
	}
	h.Labels = make([]string, t.width)
	for col := range display {
		h.Labels[col] = strings.Join(display[col], " ")
		combined[col] = strings.Join(segments[col], " ")
	}

	// Step 3: value column
	value, ok := -1, false
	for col := 1; col < t.width && !ok; col++ {
		if startsWithAny(combined[col], rules.AsOf) || anyStartsWith(segments[col], rules.AsOf) {
			value, ok = col, true
		}
	}
	if !ok {
		value, ok = t.firstNumericColumn(h.DataStart)
	}
	if !ok {
		warns.Addf("value column not found")
		return h, warns
	}
	h.Columns[RoleValue] = value

	// Step 4: change columns, explicit phrases first
	assigned := map[int]bool{value: true}
	if col, ok := firstContaining(combined, rules.YearChange, assigned); ok {
		h.Columns[RoleYearChange] = col
		assigned[col] = true
	}
	if col, ok := firstContaining(combined, rules.WeekChange, assigned); ok {
		h.Columns[RoleWeekChange] = col
		assigned[col] = true
	}

	// Step 5: generic "change from" group, date-bearing columns in order
	_, hasWeek := h.Columns[RoleWeekChange]
	_, hasYear := h.Columns[RoleYearChange]
	if !hasWeek || !hasYear {
		if marker, ok := firstContaining(combined, rules.ChangeMarker, map[int]bool{value: true}); ok {
			for col := marker; col < t.width && (!hasWeek || !hasYear); col++ {
				if assigned[col] || !datePattern.MatchString(combined[col]) {
					continue
				}
				if !hasWeek {
					h.Columns[RoleWeekChange], hasWeek = col, true
				} else {
					h.Columns[RoleYearChange], hasYear = col, true
				}
				assigned[col] = true
			}
		}
	}
	if !hasWeek {
		warns.Addf("column role %s not resolved", RoleWeekChange)
	}
	if !hasYear {
		warns.Addf("column role %s not resolved", RoleYearChange)
	}

	// Step 6: average column (optional)
	exclude := map[int]bool{}
	for _, role := range []ColumnRole{RoleWeekChange, RoleYearChange} {
		if col, ok := h.Columns[role]; ok {
			exclude[col] = true
		}
	}
	if col, ok := firstContaining(combined, rules.Average, exclude); ok {
		h.Columns[RoleAverage] = col
	}

	return h, warns
}

// headerShift returns how far a header row sits right of column 0. A row
// narrower than the table whose first cell already names a column (an as-of,
// change or average phrase, or a date) has no label cell and is aligned to
// the right edge.
// Examples:
//
//	[Week ended | Change from | Change from] over 4 columns → 1
//	[ | Week ended | Change from] over 4 columns          → 0
func (t *Table) headerShift(r gridRow, rules HeaderRules) int {
	if len(r.cells) == 0 || len(r.cells) >= t.width || r.carried[0] {
		return 0
	}
	first := lowerText(r.cells[0])
	switch {
	case first == "":
		return 0
	case startsWithAny(first, rules.AsOf),
		containsAny(first, rules.WeekChange),
		containsAny(first, rules.YearChange),
		containsAny(first, rules.ChangeMarker),
		containsAny(first, rules.Average),
		datePattern.MatchString(first):
		return t.width - len(r.cells)
	}
	return 0
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if lp := lowerText(p); lp != "" && strings.Contains(text, lp) {
			return true
		}
	}
	return false
}

// firstNumericColumn returns the first column holding a number in one of the
// first few data rows.
func (t *Table) firstNumericColumn(dataStart int) (int, bool) {
	for i := dataStart; i < len(t.rows) && i < dataStart+3; i++ {
		r := t.rows[i]
		for col := 1; col < len(r.cells); col++ {
			if isNumber(r.cells[col]) {
				return col, true
			}
		}
	}
	return -1, false
}

func startsWithAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if lp := lowerText(p); lp != "" && strings.HasPrefix(text, lp) {
			return true
		}
	}
	return false
}

func anyStartsWith(segments []string, phrases []string) bool {
	for _, s := range segments {
		if startsWithAny(s, phrases) {
			return true
		}
	}
	return false
}

// firstContaining returns the first non-label column whose combined header
// contains one of the phrases, skipping excluded columns.
func firstContaining(combined []string, phrases []string, exclude map[int]bool) (int, bool) {
	for col := 1; col < len(combined); col++ {
		if exclude[col] {
			continue
		}
		for _, p := range phrases {
			if lp := lowerText(p); lp != "" && strings.Contains(combined[col], lp) {
				return col, true
			}
		}
	}
	return -1, false
}

// ResolveColumns resolves the column roles of a table element.
func ResolveColumns(table *goquery.Selection, rules HeaderRules) (Header, Warnings) {
	return NewTable(table).ResolveColumns(rules)
}

// =============================================================================
// ROW EXTRACTOR - Candidate label lookup and resolved-column reads
// =============================================================================

// ExtractRow scans the data rows top-down and reads the first row whose label
// matches. A missing row yields an empty row and a warning.
func (t *Table) ExtractRow(key FieldKey, m *Matcher, h Header) (ExtractedRow, bool, Warnings) {
	var warns Warnings
	for i := h.DataStart; i < len(t.rows); i++ {
		if _, ok := m.Match(t.rows[i].label()); !ok {
			continue
		}
		row, w := t.readRow(i, h)
		row.Key = key
		warns.Merge(w)
		return row, true, warns
	}
	warns.Addf("row not found for %s", key)
	return ExtractedRow{Key: key}, false, warns
}

// ExtractRow looks up one canonical field in a table by its candidate labels.
func ExtractRow(t *Table, key FieldKey, candidates []string, h Header) (ExtractedRow, bool, Warnings) {
	return t.ExtractRow(key, NewMatcher(candidates), h)
}

// Sweep reads every labelled data row between the optional start row
// (exclusive) and stop row (exclusive).
func (t *Table) Sweep(h Header, start, stop *Matcher) ([]ExtractedRow, Warnings) {
	var warns Warnings
	begin := h.DataStart
	if !start.Empty() {
		found := false
		for i := h.DataStart; i < len(t.rows); i++ {
			if _, ok := start.Match(t.rows[i].label()); ok {
				begin, found = i+1, true
				break
			}
		}
		if !found {
			warns.Addf("row window start not found, sweeping from the first data row")
		}
	}

	var out []ExtractedRow
	for i := begin; i < len(t.rows); i++ {
		label := t.rows[i].label()
		if label == "" {
			continue
		}
		if _, ok := stop.Match(label); ok {
			break
		}
		row, w := t.readRow(i, h)
		warns.Merge(w)
		out = append(out, row)
	}
	return out, warns
}

func (t *Table) readRow(i int, h Header) (ExtractedRow, Warnings) {
	var warns Warnings
	r := t.rows[i]
	row := ExtractedRow{Label: r.label()}

	for _, role := range []ColumnRole{RoleValue, RoleWeekChange, RoleYearChange, RoleAverage} {
		idx, ok := h.Columns.Get(role)
		if !ok {
			continue
		}
		if idx >= len(r.cells) {
			warns.Addf("row %q has no cell for %s (column %d)", row.Label, role, idx)
			continue
		}
		v, err := ParseNumber(r.cells[idx])
		if err != nil {
			warns.Addf("parse failure in row %q, %s: %v", row.Label, role, err)
			continue
		}
		switch role {
		case RoleValue:
			row.Value = v
		case RoleWeekChange:
			row.WeekChange = v
		case RoleYearChange:
			row.YearChange = v
		case RoleAverage:
			row.Average = v
		}
	}
	return row, warns
}
