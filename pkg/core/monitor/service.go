// Package monitor ties release fetching, extraction and caching together.
package monitor

import (
	"context"
	"errors"
	"time"

	"reserve_monitor/pkg/core/cache"
	"reserve_monitor/pkg/core/extract"
	"reserve_monitor/pkg/core/ingest"
	"reserve_monitor/pkg/core/trend"

	"go.uber.org/zap"
)

// latestKey caches the "current" release separately from dated ones.
const latestKey = "current"

// DocumentFetcher retrieves a parsed release page.
// Implemented by ingest.Fetcher.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*ingest.Document, error)
}

// Result is a record together with how it was served.
type Result struct {
	Record   *extract.Record `json:"record"`
	Cached   bool            `json:"cached"`
	Stale    bool            `json:"stale"`
	LoadedAt time.Time       `json:"loaded_at"`
}

// unusableError carries the all-missing record of a failed refresh through
// the cache, which only keeps usable records.
type unusableError struct {
	rec *extract.Record
}

func (e *unusableError) Error() string {
	return "document unusable: " + e.rec.Error
}

// Service answers record and trend queries for the weekly release.
type Service struct {
	fetcher    DocumentFetcher
	engine     *extract.Engine
	cache      *cache.TTL[*extract.Record]
	baseURL    string
	trendLimit int
	log        *zap.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBaseURL sets the release index URL.
func WithBaseURL(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// WithCache replaces the default one-hour cache.
func WithCache(c *cache.TTL[*extract.Record]) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithTrendLimit bounds concurrent release loads during Trend.
func WithTrendLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.trendLimit = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock used to pick trend weeks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a monitor service.
func NewService(fetcher DocumentFetcher, engine *extract.Engine, opts ...Option) *Service {
	s := &Service{
		fetcher:    fetcher,
		engine:     engine,
		baseURL:    ingest.DefaultBaseURL,
		trendLimit: trend.DefaultLimit,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.New[*extract.Record](time.Hour, cache.WithLogger(s.log))
	}
	return s
}

// Extract fetches and extracts one page without caching. Fetch failures
// produce an unusable record, never an error.
func (s *Service) Extract(ctx context.Context, url string) *extract.Record {
	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return s.engine.Unusable(url, err)
	}
	return s.engine.Extract(doc.Parsed, url)
}

// Latest returns the record of the current release.
func (s *Service) Latest(ctx context.Context) (Result, error) {
	return s.load(ctx, latestKey, ingest.ReleaseURL(s.baseURL, time.Time{}))
}

// ForDate returns the record of the week containing date.
func (s *Service) ForDate(ctx context.Context, date time.Time) (Result, error) {
	week := ingest.WeekEnded(date)
	return s.load(ctx, week.Format(time.DateOnly), ingest.ReleaseURL(s.baseURL, week))
}

// Trend collects the last weeks published releases. The newest week is the
// one ended at least two days ago, so an unpublished week is never asked for.
func (s *Service) Trend(ctx context.Context, weeks int) (*trend.Table, error) {
	dates := trend.ReleaseDates(s.now().AddDate(0, 0, -2), weeks)
	return trend.Collect(ctx, dates, func(ctx context.Context, date time.Time) (*extract.Record, error) {
		res, err := s.ForDate(ctx, date)
		if err != nil {
			return nil, err
		}
		return res.Record, nil
	}, s.trendLimit)
}

// load serves key from the cache. An unusable refresh falls back to the
// stale record when there is one and to the unusable record otherwise. The
// only errors returned come from ctx.
func (s *Service) load(ctx context.Context, key, url string) (Result, error) {
	res, err := s.cache.Get(ctx, key, func(ctx context.Context) (*extract.Record, error) {
		rec := s.Extract(ctx, url)
		if !rec.OK {
			return nil, &unusableError{rec: rec}
		}
		return rec, nil
	})
	if err != nil {
		var ue *unusableError
		if errors.As(err, &ue) {
			return Result{Record: ue.rec, LoadedAt: ue.rec.ExtractedAt}, nil
		}
		return Result{}, err
	}

	if res.Stale {
		s.log.Info("serving stale record", zap.String("key", key), zap.Time("loaded_at", res.LoadedAt))
	}
	return Result{Record: res.Value, Cached: res.Hit, Stale: res.Stale, LoadedAt: res.LoadedAt}, nil
}
