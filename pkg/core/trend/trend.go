// Package trend assembles several weekly records into per-field time series.
package trend

import (
	"context"
	"fmt"
	"time"

	"reserve_monitor/pkg/core/extract"
	"reserve_monitor/pkg/core/ingest"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit bounds concurrent loads when Collect is given no limit.
const DefaultLimit = 4

// Loader returns the record for the week ended on date.
type Loader func(ctx context.Context, date time.Time) (*extract.Record, error)

// Point is one weekly observation of a field. Value is nil when the field was
// missing that week.
type Point struct {
	Date       time.Time `json:"date"`
	Value      *float64  `json:"value"`
	WeekChange *float64  `json:"week_change,omitempty"`
}

// Series is the history of one field, oldest first.
type Series struct {
	Key    extract.FieldKey `json:"key"`
	Title  string           `json:"title"`
	Points []Point          `json:"points"`
}

// Table is the joined result of a Collect run.
type Table struct {
	Dates    []time.Time `json:"dates"`
	Series   []Series    `json:"series"`
	Unusable []time.Time `json:"unusable"` // Weeks whose document could not be used
	Runs     []string    `json:"run_ids"`
}

// Get returns the series for key.
func (t *Table) Get(key extract.FieldKey) (Series, bool) {
	for _, s := range t.Series {
		if s.Key == key {
			return s, true
		}
	}
	return Series{}, false
}

// ReleaseDates lists the week-ended Wednesdays of the last weeks weeks up to
// and including the week containing anchor, oldest first.
// Examples:
//
//	ReleaseDates(Thu Jan 8 2026, 3) → Dec 24, Dec 31, Jan 7
//	ReleaseDates(anchor, 0)         → nil
func ReleaseDates(anchor time.Time, weeks int) []time.Time {
	if weeks <= 0 {
		return nil
	}
	last := ingest.WeekEnded(anchor)
	dates := make([]time.Time, weeks)
	for i := range dates {
		dates[i] = last.AddDate(0, 0, -7*(weeks-1-i))
	}
	return dates
}

// Collect loads a record per date with at most limit loads in flight and
// joins them in the order of dates. The first loader error cancels the rest.
func Collect(ctx context.Context, dates []time.Time, load Loader, limit int) (*Table, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	records := make([]*extract.Record, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			rec, err := load(gctx, date)
			if err != nil {
				return fmt.Errorf("week ended %s: %w", date.Format(time.DateOnly), err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Build(dates, records), nil
}

// Build joins records, one per date, into a table. Series follow the field
// order of the first non-nil record.
func Build(dates []time.Time, records []*extract.Record) *Table {
	t := &Table{
		Dates:    dates,
		Series:   []Series{},
		Unusable: []time.Time{},
		Runs:     make([]string, len(records)),
	}

	index := make(map[extract.FieldKey]int)
	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, sec := range rec.Sections {
			for _, f := range sec.Fields {
				if _, seen := index[f.Key]; seen {
					continue
				}
				index[f.Key] = len(t.Series)
				t.Series = append(t.Series, Series{Key: f.Key, Title: f.Title, Points: make([]Point, 0, len(dates))})
			}
		}
		break
	}

	for i, date := range dates {
		rec := records[i]
		if rec == nil || !rec.OK {
			t.Unusable = append(t.Unusable, date)
		}
		if rec != nil {
			t.Runs[i] = rec.RunID
		}
		for si := range t.Series {
			p := Point{Date: date}
			if rec != nil {
				if f, ok := rec.Field(t.Series[si].Key); ok {
					p.Value = f.Value
					p.WeekChange = f.WeekChange
				}
			}
			t.Series[si].Points = append(t.Series[si].Points, p)
		}
	}
	return t
}
