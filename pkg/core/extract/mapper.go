package extract

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// =============================================================================
// CANONICAL FIELD MAPPER - Raw row labels onto a fixed key vocabulary
// =============================================================================

// Rule classifies a row label to a canonical key, either by a regex on the
// normalized label or by a candidate label set.
type Rule struct {
	Key     FieldKey
	Source  string // Pattern or candidate set as configured, for diagnostics
	pattern *regexp.Regexp
	matcher *Matcher
}

func (r Rule) matches(label, normalized string) bool {
	if r.pattern != nil {
		return r.pattern.MatchString(normalized)
	}
	_, ok := r.matcher.Match(label)
	return ok
}

// Mapper classifies raw rows of one section.
type Mapper struct {
	rules []Rule
	log   *zap.Logger
}

// NewMapper compiles the classification rules of a section. Field patterns
// are tried first, then extra rules, then candidate label sets; within each
// group the declaration order is the priority order.
func NewMapper(fields []FieldSpec, extra []RuleSpec) (*Mapper, error) {
	m := &Mapper{log: zap.NewNop()}

	for _, f := range fields {
		for _, p := range f.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("field %s: pattern %q: %w", f.Key, p, err)
			}
			m.rules = append(m.rules, Rule{Key: f.Key, Source: p, pattern: re})
		}
	}
	for _, r := range extra {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: pattern %q: %w", r.Key, r.Pattern, err)
		}
		m.rules = append(m.rules, Rule{Key: r.Key, Source: r.Pattern, pattern: re})
	}
	for _, f := range fields {
		if len(f.Candidates) == 0 {
			continue
		}
		m.rules = append(m.rules, Rule{
			Key:     f.Key,
			Source:  fmt.Sprintf("%q", f.Candidates),
			matcher: NewMatcher(f.Candidates),
		})
	}
	return m, nil
}

// Classify returns the key of the first rule matching the label.
func (m *Mapper) Classify(label string) (FieldKey, bool) {
	normalized := NormalizeLabel(label)
	if normalized == "" {
		return "", false
	}
	for _, r := range m.rules {
		if r.matches(label, normalized) {
			return r.Key, true
		}
	}
	return "", false
}

// Map classifies the rows and keeps one row per whitelisted key.
// On collision the first row with a non-zero value wins, else the first
// seen. Output follows the whitelist order; keys with no row are left out.
func (m *Mapper) Map(rows []ExtractedRow, whitelist []FieldKey) ([]ExtractedRow, Warnings) {
	var warns Warnings
	allowed := make(map[FieldKey]bool, len(whitelist))
	for _, k := range whitelist {
		allowed[k] = true
	}

	kept := make(map[FieldKey]ExtractedRow, len(whitelist))
	for _, row := range rows {
		key, ok := m.Classify(row.Label)
		if !ok {
			warns.Addf("unmatched label %q", row.Label)
			continue
		}
		if !allowed[key] {
			m.log.Debug("dropping row outside whitelist",
				zap.String("label", row.Label), zap.String("key", string(key)))
			continue
		}
		row.Key = key
		prev, seen := kept[key]
		if !seen || (!prev.hasNonZeroValue() && row.hasNonZeroValue()) {
			kept[key] = row
		}
	}

	out := make([]ExtractedRow, 0, len(kept))
	for _, k := range whitelist {
		if row, ok := kept[k]; ok {
			out = append(out, row)
		}
	}
	return out, warns
}
