// Package ingest fetches weekly H.4.1 releases from the Federal Reserve and
// hands them to the extraction engine as parsed documents.
package ingest

import (
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the release index of the H.4.1 statistical release.
	DefaultBaseURL = "https://www.federalreserve.gov/releases/h41"

	// DefaultUserAgent identifies the monitor to the publisher.
	DefaultUserAgent = "reserve-monitor/1.0"
)

// =============================================================================
// RELEASE CALENDAR
// =============================================================================

// WeekEnded returns the Wednesday that ends the reporting week containing t
// (t itself when t is a Wednesday). Dates are normalized to UTC midnight.
func WeekEnded(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(d.Weekday()) - int(time.Wednesday) + 7) % 7
	return d.AddDate(0, 0, -back)
}

// ReleaseDate returns the publication date for the week ended on weekEnded.
// The release is published the following day.
func ReleaseDate(weekEnded time.Time) time.Time {
	return WeekEnded(weekEnded).AddDate(0, 0, 1)
}

// ReleaseURL addresses one weekly release.
// Examples:
//
//	ReleaseURL(base, time.Time{})   → base + "/current/"
//	ReleaseURL(base, Jan 7, 2026)   → base + "/20260108/"
func ReleaseURL(base string, weekEnded time.Time) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if weekEnded.IsZero() {
		return base + "/current/"
	}
	return base + "/" + ReleaseDate(weekEnded).Format("20060102") + "/"
}
