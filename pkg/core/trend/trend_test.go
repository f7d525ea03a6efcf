package trend

import (
	"context"
	"errors"
	"testing"
	"time"

	"reserve_monitor/pkg/core/extract"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// TREND TESTS - Calendar, Parallel Collect, Series Join
// =============================================================================

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fptr(v float64) *float64 { return &v }

// weekRecord builds a two-field record whose TGA value encodes the date.
func weekRecord(date time.Time, ok bool) *extract.Record {
	rec := &extract.Record{RunID: "run-" + date.Format("0102"), OK: ok}
	tga := extract.Field{Key: "TGA", Title: "U.S. Treasury, General Account", Status: extract.StatusMissing}
	rb := extract.Field{Key: "RESERVE_BALANCES", Title: "Reserve balances", Status: extract.StatusMissing}
	if ok {
		tga.Status, tga.Value, tga.WeekChange = extract.StatusOK, fptr(float64(date.Day())), fptr(1)
		rb.Status, rb.Value = extract.StatusOK, fptr(3000)
	}
	rec.Sections = []extract.SectionResult{
		{Name: "absorbing", Fields: []extract.Field{tga}},
		{Name: "totals", Fields: []extract.Field{rb}},
	}
	return rec
}

func TestReleaseDates(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		weeks  int
		want   []time.Time
	}{
		{"thursday anchor", time.Date(2026, time.January, 8, 18, 0, 0, 0, time.UTC), 3,
			[]time.Time{day(2025, time.December, 24), day(2025, time.December, 31), day(2026, time.January, 7)}},
		{"wednesday anchor", day(2026, time.January, 7), 1, []time.Time{day(2026, time.January, 7)}},
		{"zero weeks", day(2026, time.January, 7), 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ReleaseDates(tt.anchor, tt.weeks)); diff != "" {
				t.Errorf("ReleaseDates (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCollect_OrderedByDate(t *testing.T) {
	dates := ReleaseDates(day(2026, time.January, 7), 4)

	// Older weeks finish last, so completion order is the reverse of dates.
	load := func(ctx context.Context, date time.Time) (*extract.Record, error) {
		delay := time.Duration(dates[len(dates)-1].Sub(date).Hours()/24) * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return weekRecord(date, true), nil
	}

	table, err := Collect(context.Background(), dates, load, 4)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if diff := cmp.Diff(dates, table.Dates); diff != "" {
		t.Errorf("dates (-want +got):\n%s", diff)
	}

	tga, ok := table.Get("TGA")
	if !ok {
		t.Fatal("TGA series missing")
	}
	var got []float64
	for _, p := range tga.Points {
		got = append(got, *p.Value)
	}
	want := []float64{17, 24, 31, 7}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TGA values (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"run-1217", "run-1224", "run-1231", "run-0107"}, table.Runs); diff != "" {
		t.Errorf("run ids (-want +got):\n%s", diff)
	}
	if len(table.Unusable) != 0 {
		t.Errorf("Unusable = %v, want none", table.Unusable)
	}
}

func TestCollect_UnusableWeek(t *testing.T) {
	dates := ReleaseDates(day(2026, time.January, 7), 3)
	load := func(_ context.Context, date time.Time) (*extract.Record, error) {
		return weekRecord(date, !date.Equal(dates[1])), nil
	}

	table, err := Collect(context.Background(), dates, load, 2)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if diff := cmp.Diff([]time.Time{dates[1]}, table.Unusable); diff != "" {
		t.Errorf("unusable (-want +got):\n%s", diff)
	}
	rb, _ := table.Get("RESERVE_BALANCES")
	if rb.Points[1].Value != nil {
		t.Errorf("unusable week value = %v, want nil", *rb.Points[1].Value)
	}
	if rb.Points[0].Value == nil || rb.Points[2].Value == nil {
		t.Error("usable weeks lost their values")
	}
}

func TestCollect_LoaderError(t *testing.T) {
	dates := ReleaseDates(day(2026, time.January, 7), 5)
	boom := errors.New("boom")
	load := func(ctx context.Context, date time.Time) (*extract.Record, error) {
		if date.Equal(dates[2]) {
			return nil, boom
		}
		select {
		case <-time.After(time.Second):
			return weekRecord(date, true), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	_, err := Collect(context.Background(), dates, load, 0)
	if !errors.Is(err, boom) {
		t.Errorf("Collect error = %v, want boom", err)
	}
}

func TestBuild_Empty(t *testing.T) {
	table := Build(nil, nil)
	if table.Series == nil || table.Unusable == nil {
		t.Errorf("Build(nil) = %+v, want non-nil empty slices", table)
	}
}
