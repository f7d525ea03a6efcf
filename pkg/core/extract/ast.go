// Package extract implements the reserve-report extraction engine.
// It locates report sections inside an HTML release, resolves multi-row table
// headers and maps drifting row labels onto a fixed set of canonical fields.
package extract

import (
	"time"
)

// =============================================================================
// CANONICAL FIELDS - Output identifiers independent of source wording
// =============================================================================

// FieldKey identifies a canonical output field (e.g. "RESERVE_BANK_CREDIT").
type FieldKey string

// ColumnRole is the semantic meaning assigned to a physical table column.
type ColumnRole string

const (
	RoleValue      ColumnRole = "value"
	RoleWeekChange ColumnRole = "week_change"
	RoleYearChange ColumnRole = "year_change"
	RoleAverage    ColumnRole = "average"
)

// Columns maps each resolved role to its physical column index.
// A role that is absent from the map was not found in the table.
type Columns map[ColumnRole]int

// Get returns the physical index for a role.
func (c Columns) Get(role ColumnRole) (int, bool) {
	idx, ok := c[role]
	return idx, ok
}

// =============================================================================
// EXTRACTED ROW - One table row read through the resolved columns
// =============================================================================

// ExtractedRow is a row read from a table. Key is empty for raw rows that have
// not been classified yet.
type ExtractedRow struct {
	Key        FieldKey `json:"key,omitempty"`
	Label      string   `json:"label"` // Row label as printed in the document
	Value      *float64 `json:"value"`
	WeekChange *float64 `json:"week_change"`
	YearChange *float64 `json:"year_change"`
	Average    *float64 `json:"average,omitempty"`
}

// hasNonZeroValue reports whether the row carries a usable, non-zero value.
func (r ExtractedRow) hasNonZeroValue() bool {
	return r.Value != nil && *r.Value != 0
}

// =============================================================================
// EXTRACTION RECORD - Fixed-shape output of one extraction call
// =============================================================================

// FieldStatus tells whether a field was resolved.
type FieldStatus string

const (
	StatusOK      FieldStatus = "ok"
	StatusMissing FieldStatus = "missing"
)

// Field is one canonical field in the output record.
type Field struct {
	Key        FieldKey    `json:"key"`
	Title      string      `json:"title"`
	Status     FieldStatus `json:"status"`
	Matched    string      `json:"matched,omitempty"` // Source label that produced the value
	Value      *float64    `json:"value"`
	WeekChange *float64    `json:"week_change"`
	YearChange *float64    `json:"year_change"`
	Average    *float64    `json:"average,omitempty"`
}

// Missing reports whether the field could not be resolved.
func (f Field) Missing() bool {
	return f.Status != StatusOK
}

// SectionResult holds the fields of one configured report section.
type SectionResult struct {
	Name   string  `json:"name"`
	Title  string  `json:"title"`
	Found  bool    `json:"found"`
	AsOf   string  `json:"as_of,omitempty"` // Header text of the value column
	Fields []Field `json:"fields"`
}

// Integrity is the result of cross-checking the report totals.
type Integrity struct {
	Checked           bool     `json:"checked"`
	OK                bool     `json:"ok"`
	Delta             float64  `json:"delta"`
	Tolerance         float64  `json:"tolerance"`
	Computed          *float64 `json:"computed"` // supplying - absorbing
	Balance           *float64 `json:"balance"`
	SupplyingTotal    *float64 `json:"supplying_total"`
	AbsorbingTotal    *float64 `json:"absorbing_total"`
	SupplyingComputed *float64 `json:"supplying_computed"` // Sum of summable line items
	AbsorbingComputed *float64 `json:"absorbing_computed"`
	TotalsSource      string   `json:"totals_source,omitempty"` // "document", "computed" or "mixed"
}

// Record is the top-level extraction output. Its shape depends only on the
// configuration: every configured field appears exactly once.
type Record struct {
	RunID       string          `json:"run_id"`
	Source      string          `json:"source"`
	ExtractedAt time.Time       `json:"extracted_at"`
	OK          bool            `json:"ok"`
	Error       string          `json:"error,omitempty"`
	Sections    []SectionResult `json:"sections"`
	Integrity   Integrity       `json:"integrity"`
	Warnings    []string        `json:"warnings"`
}

// Section returns the named section result.
func (r *Record) Section(name string) (*SectionResult, bool) {
	for i := range r.Sections {
		if r.Sections[i].Name == name {
			return &r.Sections[i], true
		}
	}
	return nil, false
}

// Field looks up a canonical field across all sections.
func (r *Record) Field(key FieldKey) (Field, bool) {
	for _, sec := range r.Sections {
		for _, f := range sec.Fields {
			if f.Key == key {
				return f, true
			}
		}
	}
	return Field{}, false
}

// Value returns the value of a resolved field, or nil.
func (r *Record) Value(key FieldKey) *float64 {
	f, ok := r.Field(key)
	if !ok || f.Missing() {
		return nil
	}
	return f.Value
}
