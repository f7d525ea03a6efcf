package extract

import (
	"math"

	"go.uber.org/zap"
)

// =============================================================================
// INTEGRITY RECONCILER - Supplying minus absorbing against reserve balances
// =============================================================================

// Totals sources reported in the integrity block.
const (
	TotalsDocument = "document"
	TotalsComputed = "computed"
	TotalsMixed    = "mixed"
)

// Reconcile checks balance ≈ supplying - absorbing.
// Examples:
//
//	Reconcile(100, 40, 59, 10) → delta 1, ok
//	Reconcile(100, 40, 30, 10) → delta 30, not ok
func Reconcile(supplying, absorbing, balance, tolerance float64) (delta float64, ok bool) {
	delta = math.Abs(supplying - absorbing - balance)
	return delta, delta <= tolerance
}

// sumSummable adds the resolved values of a section's summable fields.
// Returns nil when none of them resolved.
func sumSummable(spec SectionSpec, res *SectionResult) *float64 {
	summable := make(map[FieldKey]bool)
	for _, f := range spec.Fields {
		if f.Summable {
			summable[f.Key] = true
		}
	}

	var total float64
	found := false
	for _, f := range res.Fields {
		if !summable[f.Key] || f.Missing() || f.Value == nil {
			continue
		}
		total += *f.Value
		found = true
	}
	if !found {
		return nil
	}
	return &total
}

// checkIntegrity builds the integrity block of a record. Document totals are
// preferred; line-item sums fill in when a total row is missing.
func (e *Engine) checkIntegrity(rec *Record) (Integrity, Warnings) {
	var warns Warnings
	spec := e.cfg.Integrity
	out := Integrity{Tolerance: spec.Tolerance}
	if spec.Balance == "" {
		return out, warns
	}

	out.SupplyingTotal = rec.Value(spec.SupplyingTotal)
	out.AbsorbingTotal = rec.Value(spec.AbsorbingTotal)
	out.Balance = rec.Value(spec.Balance)
	out.SupplyingComputed = e.sectionSum(rec, spec.SupplyingSection)
	out.AbsorbingComputed = e.sectionSum(rec, spec.AbsorbingSection)

	supplying, fromDocS := pick(out.SupplyingTotal, out.SupplyingComputed)
	absorbing, fromDocA := pick(out.AbsorbingTotal, out.AbsorbingComputed)

	e.compareTotals("supplying", out.SupplyingTotal, out.SupplyingComputed, spec.Tolerance)
	e.compareTotals("absorbing", out.AbsorbingTotal, out.AbsorbingComputed, spec.Tolerance)

	switch {
	case supplying == nil:
		warns.Addf("integrity check skipped: %s unavailable", spec.SupplyingTotal)
		return out, warns
	case absorbing == nil:
		warns.Addf("integrity check skipped: %s unavailable", spec.AbsorbingTotal)
		return out, warns
	case out.Balance == nil:
		warns.Addf("integrity check skipped: %s unavailable", spec.Balance)
		return out, warns
	}

	switch {
	case fromDocS && fromDocA:
		out.TotalsSource = TotalsDocument
	case !fromDocS && !fromDocA:
		out.TotalsSource = TotalsComputed
	default:
		out.TotalsSource = TotalsMixed
	}

	computed := *supplying - *absorbing
	out.Computed = &computed
	out.Checked = true
	out.Delta, out.OK = Reconcile(*supplying, *absorbing, *out.Balance, spec.Tolerance)
	if !out.OK {
		warns.Addf("integrity mismatch: %s - %s = %.0f, %s = %.0f (delta %.0f, tolerance %.0f)",
			spec.SupplyingTotal, spec.AbsorbingTotal, computed, spec.Balance, *out.Balance, out.Delta, spec.Tolerance)
	}
	return out, warns
}

func (e *Engine) sectionSum(rec *Record, name string) *float64 {
	res, ok := rec.Section(name)
	if !ok {
		return nil
	}
	for _, cs := range e.sections {
		if cs.spec.Name == name {
			return sumSummable(cs.spec, res)
		}
	}
	return nil
}

// compareTotals logs the gap between a document total and its line-item sum.
// Configured line items need not cover every row of the report.
func (e *Engine) compareTotals(side string, document, computed *float64, tolerance float64) {
	if document == nil || computed == nil {
		return
	}
	if gap := math.Abs(*document - *computed); gap > tolerance {
		e.log.Debug("line items do not sum to document total",
			zap.String("side", side),
			zap.Float64("document", *document),
			zap.Float64("computed", *computed),
			zap.Float64("gap", gap))
	}
}

// pick returns the document figure when present, else the computed one.
func pick(document, computed *float64) (*float64, bool) {
	if document != nil {
		return document, true
	}
	return computed, false
}
