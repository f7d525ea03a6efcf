package extract

// =============================================================================
// ENGINE CONFIGURATION - Sections, anchors and label sets as data
// =============================================================================

// Strategy selects how a section turns table rows into fields.
type Strategy string

const (
	// StrategyClassify sweeps every data row and classifies it with the
	// section's rules (Canonical Field Mapper).
	StrategyClassify Strategy = "classify"
	// StrategyLookup looks up each field by its candidate labels (Row Extractor).
	StrategyLookup Strategy = "lookup"
)

// DefaultMinRows is the smallest table considered a data table.
const DefaultMinRows = 5

// FieldSpec declares one canonical field of a section.
//
// Candidates are historical spellings, highest priority first. Patterns are
// regexes on the normalized label and are tried before the candidates.
// Summable fields count toward the section's line-item total.
type FieldSpec struct {
	Key        FieldKey `json:"key" yaml:"key"`
	Title      string   `json:"title" yaml:"title"`
	Candidates []string `json:"candidates" yaml:"candidates"`
	Patterns   []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Summable   bool     `json:"summable" yaml:"summable"`
}

// RuleSpec maps a label pattern to a key without declaring an output field.
// Rows classified to keys outside the section's fields are dropped quietly.
type RuleSpec struct {
	Key     FieldKey `json:"key" yaml:"key"`
	Pattern string   `json:"pattern" yaml:"pattern"`
}

// SectionSpec declares one report section and the table that carries it.
//
// Keywords are section heading phrases tried in order; Anchors are labels
// expected inside the right table. StartAfter and StopBefore bound the rows a
// classify section sweeps (both exclusive).
type SectionSpec struct {
	Name       string       `json:"name" yaml:"name"`
	Title      string       `json:"title" yaml:"title"`
	Keywords   []string     `json:"keywords" yaml:"keywords"`
	Anchors    []string     `json:"anchors" yaml:"anchors"`
	MinRows    int          `json:"min_rows,omitempty" yaml:"min_rows,omitempty"`
	Strategy   Strategy     `json:"strategy" yaml:"strategy"`
	Expected   int          `json:"expected,omitempty" yaml:"expected,omitempty"`
	StartAfter []string     `json:"start_after,omitempty" yaml:"start_after,omitempty"`
	StopBefore []string     `json:"stop_before,omitempty" yaml:"stop_before,omitempty"`
	Rules      []RuleSpec   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Header     *HeaderRules `json:"header,omitempty" yaml:"header,omitempty"`
	Fields     []FieldSpec  `json:"fields" yaml:"fields"`
}

// minRows returns the configured minimum row count or the default.
func (s SectionSpec) minRows() int {
	if s.MinRows > 0 {
		return s.MinRows
	}
	return DefaultMinRows
}

// Whitelist returns the section's field keys in display order.
func (s SectionSpec) Whitelist() []FieldKey {
	keys := make([]FieldKey, 0, len(s.Fields))
	for _, f := range s.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// HeaderRules holds the phrases used to assign column roles.
type HeaderRules struct {
	AsOf          []string `json:"as_of" yaml:"as_of"`
	WeekChange    []string `json:"week_change" yaml:"week_change"`
	YearChange    []string `json:"year_change" yaml:"year_change"`
	ChangeMarker  []string `json:"change_marker" yaml:"change_marker"`
	Average       []string `json:"average" yaml:"average"`
	MaxHeaderRows int      `json:"max_header_rows,omitempty" yaml:"max_header_rows,omitempty"`
}

// DefaultHeaderRules returns the header phrases of the weekly release.
func DefaultHeaderRules() HeaderRules {
	return HeaderRules{
		AsOf:          []string{"week ended", "wednesday"},
		WeekChange:    []string{"change from week ago", "change from previous week", "change since previous week"},
		YearChange:    []string{"change from year ago", "change since year ago"},
		ChangeMarker:  []string{"change from", "change since"},
		Average:       []string{"averages of daily figures"},
		MaxHeaderRows: 5,
	}
}

// withDefaults fills empty phrase lists from DefaultHeaderRules.
func (h HeaderRules) withDefaults() HeaderRules {
	d := DefaultHeaderRules()
	if len(h.AsOf) == 0 {
		h.AsOf = d.AsOf
	}
	if len(h.WeekChange) == 0 {
		h.WeekChange = d.WeekChange
	}
	if len(h.YearChange) == 0 {
		h.YearChange = d.YearChange
	}
	if len(h.ChangeMarker) == 0 {
		h.ChangeMarker = d.ChangeMarker
	}
	if len(h.Average) == 0 {
		h.Average = d.Average
	}
	if h.MaxHeaderRows <= 0 {
		h.MaxHeaderRows = d.MaxHeaderRows
	}
	return h
}

// IntegritySpec names the fields cross-checked by the reconciler.
type IntegritySpec struct {
	SupplyingSection string   `json:"supplying_section" yaml:"supplying_section"`
	SupplyingTotal   FieldKey `json:"supplying_total" yaml:"supplying_total"`
	AbsorbingSection string   `json:"absorbing_section" yaml:"absorbing_section"`
	AbsorbingTotal   FieldKey `json:"absorbing_total" yaml:"absorbing_total"`
	Balance          FieldKey `json:"balance" yaml:"balance"`
	Tolerance        float64  `json:"tolerance" yaml:"tolerance"`
}

// Config is the full configuration bundle consumed by the engine.
type Config struct {
	Sections  []SectionSpec `json:"sections" yaml:"sections"`
	Header    HeaderRules   `json:"header" yaml:"header"`
	Integrity IntegritySpec `json:"integrity" yaml:"integrity"`
}

// headerFor returns the header rules that apply to a section.
func (c Config) headerFor(sec SectionSpec) HeaderRules {
	if sec.Header != nil {
		return sec.Header.withDefaults()
	}
	return c.Header.withDefaults()
}
