package reserves

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reserve_monitor/pkg/core/extract"
	"reserve_monitor/pkg/core/monitor"
	"reserve_monitor/pkg/core/trend"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// RESERVES API TESTS - Routes, Parameters, Errors
// =============================================================================

type fakeMonitor struct {
	gotDate  time.Time
	gotWeeks int
	err      error
}

func (f *fakeMonitor) result(source string) monitor.Result {
	return monitor.Result{Record: &extract.Record{RunID: "run-1", Source: source, OK: true, Warnings: []string{}}}
}

func (f *fakeMonitor) Latest(context.Context) (monitor.Result, error) {
	if f.err != nil {
		return monitor.Result{}, f.err
	}
	return f.result("current"), nil
}

func (f *fakeMonitor) ForDate(_ context.Context, date time.Time) (monitor.Result, error) {
	f.gotDate = date
	if f.err != nil {
		return monitor.Result{}, f.err
	}
	return f.result(date.Format(time.DateOnly)), nil
}

func (f *fakeMonitor) Trend(_ context.Context, weeks int) (*trend.Table, error) {
	f.gotWeeks = weeks
	if f.err != nil {
		return nil, f.err
	}
	dates := trend.ReleaseDates(time.Date(2026, time.January, 7, 0, 0, 0, 0, time.UTC), weeks)
	return trend.Build(dates, make([]*extract.Record, len(dates))), nil
}

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s: response is not a JSON object: %v (%s)", path, err, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("%s: Content-Type = %q", path, ct)
	}
	return rec, body
}

func TestHandler_Latest(t *testing.T) {
	h := NewHandler(&fakeMonitor{}, nil, 8)
	rec, body := serve(t, h, "/api/reserves/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	record, _ := body["record"].(map[string]any)
	if record["source"] != "current" || record["ok"] != true {
		t.Errorf("record = %v", record)
	}
}

func TestHandler_Date(t *testing.T) {
	fm := &fakeMonitor{}
	h := NewHandler(fm, nil, 8)

	rec, _ := serve(t, h, "/api/reserves/2026-01-07")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if want := time.Date(2026, time.January, 7, 0, 0, 0, 0, time.UTC); !fm.gotDate.Equal(want) {
		t.Errorf("ForDate called with %v, want %v", fm.gotDate, want)
	}
}

func TestHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"malformed date", "/api/reserves/01-07-2026"},
		{"impossible date", "/api/reserves/2026-02-30"},
		{"non-numeric weeks", "/api/reserves/trend?weeks=many"},
		{"zero weeks", "/api/reserves/trend?weeks=0"},
		{"too many weeks", "/api/reserves/trend?weeks=53"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeMonitor{}, nil, 8)
			rec, body := serve(t, h, tt.path)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if _, ok := body["error"]; !ok {
				t.Errorf("body %v has no error message", body)
			}
		})
	}
}

func TestHandler_Trend(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantWeeks int
	}{
		{"default weeks", "/api/reserves/trend", 6},
		{"explicit weeks", "/api/reserves/trend?weeks=3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := &fakeMonitor{}
			h := NewHandler(fm, nil, 6)
			rec, body := serve(t, h, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if fm.gotWeeks != tt.wantWeeks {
				t.Errorf("Trend called with %d weeks, want %d", fm.gotWeeks, tt.wantWeeks)
			}
			dates, _ := body["dates"].([]any)
			if len(dates) != tt.wantWeeks {
				t.Errorf("dates = %v, want %d entries", dates, tt.wantWeeks)
			}
			unusable, _ := body["unusable"].([]any)
			if len(unusable) != tt.wantWeeks {
				t.Errorf("unusable = %v, want every week (no records)", unusable)
			}
		})
	}
}

func TestHandler_ServiceError(t *testing.T) {
	h := NewHandler(&fakeMonitor{err: context.DeadlineExceeded}, nil, 8)
	for _, path := range []string{"/api/reserves/latest", "/api/reserves/2026-01-07", "/api/reserves/trend"} {
		rec, body := serve(t, h, path)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
		if diff := cmp.Diff(map[string]any{"error": context.DeadlineExceeded.Error()}, body); diff != "" {
			t.Errorf("%s: body (-want +got):\n%s", path, diff)
		}
	}
}

func TestHandler_Health(t *testing.T) {
	rec, body := serve(t, NewHandler(&fakeMonitor{}, nil, 8), "/healthz")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("healthz = %d %v", rec.Code, body)
	}
}
