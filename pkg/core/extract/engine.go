package extract

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// EXTRACTION REPORT - Per-document orchestration into a fixed-shape record
// =============================================================================

var (
	// ErrNoTables marks a document without any table element.
	ErrNoTables = errors.New("document contains no tables")
	// ErrNoAnchorTables marks a document whose tables carry too few anchor
	// labels of any section, such as a block page laid out as a table.
	ErrNoAnchorTables = errors.New("document contains no anchor table")
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the clock used for ExtractedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunID sets the run identifier generator.
func WithRunID(next func() string) Option {
	return func(e *Engine) {
		if next != nil {
			e.runID = next
		}
	}
}

type compiledSection struct {
	spec    SectionSpec
	header  HeaderRules
	mapper  *Mapper
	lookups []*Matcher // Per field, lookup strategy only
	start   *Matcher
	stop    *Matcher
}

// Engine extracts records from documents with one configuration. It holds
// no per-document state and is safe for concurrent use.
type Engine struct {
	cfg      Config
	sections []compiledSection
	log      *zap.Logger
	now      func() time.Time
	runID    func() string
}

// NewEngine validates the configuration and compiles its matchers.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:   cfg,
		log:   zap.NewNop(),
		now:   time.Now,
		runID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, spec := range cfg.Sections {
		cs := compiledSection{
			spec:   spec,
			header: cfg.headerFor(spec),
			start:  NewMatcher(spec.StartAfter),
			stop:   NewMatcher(spec.StopBefore),
		}
		switch spec.Strategy {
		case StrategyClassify:
			m, err := NewMapper(spec.Fields, spec.Rules)
			if err != nil {
				return nil, fmt.Errorf("section %s: %w", spec.Name, err)
			}
			m.log = e.log
			cs.mapper = m
		default:
			for _, f := range spec.Fields {
				cs.lookups = append(cs.lookups, NewMatcher(f.Candidates))
			}
		}
		e.sections = append(e.sections, cs)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Keys returns every configured field key in output order.
func (e *Engine) Keys() []FieldKey {
	var keys []FieldKey
	for _, cs := range e.sections {
		keys = append(keys, cs.spec.Whitelist()...)
	}
	return keys
}

// Extract runs every configured section against the document. It never
// fails: resolution gaps become warnings and missing fields. A document
// without any table, or without a single anchor table anywhere, is unusable.
func (e *Engine) Extract(doc *Document, source string) *Record {
	if doc == nil || doc.TableCount() == 0 {
		return e.Unusable(source, ErrNoTables)
	}

	rec := e.newRecord(source)
	rec.OK = true
	var warns Warnings

	found := false
	for _, cs := range e.sections {
		res, w := e.extractSection(doc, cs)
		warns.Merge(w)
		rec.Sections = append(rec.Sections, res)
		found = found || res.Found
	}
	if !found && !e.hasAnchorTable(doc) {
		return e.Unusable(source, ErrNoAnchorTables)
	}

	integrity, w := e.checkIntegrity(rec)
	warns.Merge(w)
	rec.Integrity = integrity
	rec.Warnings = warns.Strings()

	e.logSummary(rec)
	return rec
}

// Unusable returns the all-missing record for a document that could not be
// obtained or used.
func (e *Engine) Unusable(source string, err error) *Record {
	rec := e.newRecord(source)
	for _, cs := range e.sections {
		rec.Sections = append(rec.Sections, missingSection(cs.spec))
	}
	if err == nil {
		err = errors.New("document unusable")
	}
	rec.Error = err.Error()
	rec.Integrity = Integrity{Tolerance: e.cfg.Integrity.Tolerance}
	rec.Warnings = []string{}

	e.log.Warn("document unusable", zap.String("run_id", rec.RunID), zap.String("source", source), zap.Error(err))
	return rec
}

// hasAnchorTable reports whether any table in the document, regardless of
// headings, qualifies for at least one section.
func (e *Engine) hasAnchorTable(doc *Document) bool {
	for _, cs := range e.sections {
		if _, ok := SelectTable(doc, doc.Selection(), cs.spec.Anchors, cs.spec.minRows()); ok {
			return true
		}
	}
	return false
}

func (e *Engine) newRecord(source string) *Record {
	return &Record{
		RunID:       e.runID(),
		Source:      source,
		ExtractedAt: e.now().UTC(),
		Sections:    make([]SectionResult, 0, len(e.sections)),
	}
}

func (e *Engine) extractSection(doc *Document, cs compiledSection) (SectionResult, Warnings) {
	var warns Warnings
	spec := cs.spec
	res := missingSection(spec)

	// Step 1: section root (no keywords means the whole document)
	var scope = doc.Selection()
	if len(spec.Keywords) > 0 {
		root, _, found := LocateSection(doc, spec.Keywords)
		if !found {
			warns.Addf("section %s: heading not found (%q)", spec.Name, spec.Keywords)
			return res, warns
		}
		scope = root
	}

	// Step 2: data table
	choice, ok := SelectTable(doc, scope, spec.Anchors, spec.minRows())
	if !ok {
		warns.Addf("section %s: no table with %d+ rows and %d+ anchor labels", spec.Name, spec.minRows(), MinAnchorScore)
		return res, warns
	}
	res.Found = true

	// Step 3: column roles
	header, w := choice.Table.ResolveColumns(cs.header)
	for _, msg := range w {
		warns.Addf("section %s: %s", spec.Name, msg)
	}
	if _, ok := header.Columns.Get(RoleValue); !ok {
		warns.Addf("section %s: table skipped, value column not resolved", spec.Name)
		return res, warns
	}
	res.AsOf = header.AsOf()

	// Step 4: rows
	var rows []ExtractedRow
	switch spec.Strategy {
	case StrategyClassify:
		swept, w := choice.Table.Sweep(header, cs.start, cs.stop)
		warns.Merge(prefixed(spec.Name, w))
		mapped, w := cs.mapper.Map(swept, spec.Whitelist())
		warns.Merge(prefixed(spec.Name, w))
		rows = mapped
	default:
		for i, f := range spec.Fields {
			row, found, w := choice.Table.ExtractRow(f.Key, cs.lookups[i], header)
			warns.Merge(prefixed(spec.Name, w))
			if found {
				rows = append(rows, row)
			}
		}
	}

	res.Fields = fieldsFor(spec, rows)
	if spec.Expected > 0 {
		if n := resolvedCount(res.Fields); n != spec.Expected {
			warns.Addf("section %s: resolved %d fields, expected %d", spec.Name, n, spec.Expected)
		}
	}
	return res, warns
}

// fieldsFor lays the rows out in whitelist order, one field per key.
func fieldsFor(spec SectionSpec, rows []ExtractedRow) []Field {
	byKey := make(map[FieldKey]ExtractedRow, len(rows))
	for _, r := range rows {
		if _, dup := byKey[r.Key]; !dup {
			byKey[r.Key] = r
		}
	}

	fields := make([]Field, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		out := Field{Key: f.Key, Title: f.Title, Status: StatusMissing}
		if r, ok := byKey[f.Key]; ok {
			out.Matched = r.Label
			out.Value = r.Value
			out.WeekChange = r.WeekChange
			out.YearChange = r.YearChange
			out.Average = r.Average
			if r.Value != nil {
				out.Status = StatusOK
			}
		}
		fields = append(fields, out)
	}
	return fields
}

func missingSection(spec SectionSpec) SectionResult {
	return SectionResult{
		Name:   spec.Name,
		Title:  spec.Title,
		Fields: fieldsFor(spec, nil),
	}
}

func resolvedCount(fields []Field) int {
	n := 0
	for _, f := range fields {
		if !f.Missing() {
			n++
		}
	}
	return n
}

func prefixed(section string, w Warnings) Warnings {
	out := make(Warnings, 0, len(w))
	for _, msg := range w {
		out.Addf("section %s: %s", section, msg)
	}
	return out
}

func (e *Engine) logSummary(rec *Record) {
	total, resolved := 0, 0
	for _, sec := range rec.Sections {
		total += len(sec.Fields)
		resolved += resolvedCount(sec.Fields)
	}
	e.log.Debug("extraction complete",
		zap.String("run_id", rec.RunID),
		zap.String("source", rec.Source),
		zap.Int("resolved", resolved),
		zap.Int("fields", total),
		zap.Int("warnings", len(rec.Warnings)),
		zap.Bool("integrity_checked", rec.Integrity.Checked),
		zap.Bool("integrity_ok", rec.Integrity.OK))
}

// =============================================================================
// CONFIGURATION CHECKS
// =============================================================================

// Validate reports the first structural problem of the configuration.
func (c Config) Validate() error {
	if len(c.Sections) == 0 {
		return errors.New("no sections configured")
	}

	names := make(map[string]bool)
	keys := make(map[FieldKey]string)
	for _, sec := range c.Sections {
		if sec.Name == "" {
			return errors.New("section without name")
		}
		if names[sec.Name] {
			return fmt.Errorf("duplicate section %q", sec.Name)
		}
		names[sec.Name] = true

		switch sec.Strategy {
		case StrategyClassify, StrategyLookup, "":
		default:
			return fmt.Errorf("section %s: unknown strategy %q", sec.Name, sec.Strategy)
		}
		if len(sec.Fields) == 0 {
			return fmt.Errorf("section %s: no fields", sec.Name)
		}
		for _, f := range sec.Fields {
			if f.Key == "" {
				return fmt.Errorf("section %s: field without key", sec.Name)
			}
			if owner, dup := keys[f.Key]; dup {
				return fmt.Errorf("section %s: key %s already declared in section %s", sec.Name, f.Key, owner)
			}
			keys[f.Key] = sec.Name
			if len(f.Candidates) == 0 && len(f.Patterns) == 0 {
				return fmt.Errorf("section %s: field %s has no candidates or patterns", sec.Name, f.Key)
			}
			if len(f.Candidates) == 0 && sec.Strategy != StrategyClassify {
				return fmt.Errorf("section %s: lookup field %s needs candidates", sec.Name, f.Key)
			}
		}
	}

	in := c.Integrity
	if in.Tolerance < 0 {
		return fmt.Errorf("integrity: negative tolerance %v", in.Tolerance)
	}
	if in.Balance != "" {
		for _, k := range []FieldKey{in.Balance, in.SupplyingTotal, in.AbsorbingTotal} {
			if k == "" {
				continue
			}
			if _, ok := keys[k]; !ok {
				return fmt.Errorf("integrity: unknown key %s", k)
			}
		}
		for _, s := range []string{in.SupplyingSection, in.AbsorbingSection} {
			if s != "" && !names[s] {
				return fmt.Errorf("integrity: unknown section %q", s)
			}
		}
	}
	return nil
}
