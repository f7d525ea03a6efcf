package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"reserve_monitor/pkg/core/ingest"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadRuntime.
const (
	EnvBaseURL      = "RESERVES_BASE_URL"
	EnvCacheTTL     = "RESERVES_CACHE_TTL"
	EnvConfig       = "RESERVES_CONFIG"
	EnvAddr         = "RESERVES_ADDR"
	EnvUserAgent    = "RESERVES_USER_AGENT"
	EnvTrendWeeks   = "RESERVES_TREND_WEEKS"
	EnvFetchTimeout = "RESERVES_FETCH_TIMEOUT"
)

// Runtime holds process settings that are not part of the extraction bundle.
type Runtime struct {
	BaseURL      string
	CacheTTL     time.Duration
	ConfigPath   string
	Addr         string
	UserAgent    string
	TrendWeeks   int
	FetchTimeout time.Duration
}

// DefaultRuntime returns the settings used when nothing is configured.
func DefaultRuntime() Runtime {
	return Runtime{
		BaseURL:      ingest.DefaultBaseURL,
		CacheTTL:     time.Hour,
		Addr:         ":8080",
		UserAgent:    ingest.DefaultUserAgent,
		TrendWeeks:   8,
		FetchTimeout: 30 * time.Second,
	}
}

// LoadRuntime loads .env files (missing files are skipped) and overlays the
// environment on DefaultRuntime. Variables already set in the process win
// over .env values.
func LoadRuntime(envFiles ...string) (Runtime, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Runtime{}, fmt.Errorf("load env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv overlays variables from lookup on DefaultRuntime.
func FromEnv(lookup func(string) (string, bool)) (Runtime, error) {
	rt := DefaultRuntime()

	if v, ok := lookup(EnvBaseURL); ok && v != "" {
		rt.BaseURL = v
	}
	if v, ok := lookup(EnvConfig); ok {
		rt.ConfigPath = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		rt.Addr = v
	}
	if v, ok := lookup(EnvUserAgent); ok && v != "" {
		rt.UserAgent = v
	}

	var err error
	if rt.CacheTTL, err = durationVar(lookup, EnvCacheTTL, rt.CacheTTL); err != nil {
		return Runtime{}, err
	}
	if rt.FetchTimeout, err = durationVar(lookup, EnvFetchTimeout, rt.FetchTimeout); err != nil {
		return Runtime{}, err
	}
	if v, ok := lookup(EnvTrendWeeks); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Runtime{}, fmt.Errorf("%s: want a positive integer, got %q", EnvTrendWeeks, v)
		}
		rt.TrendWeeks = n
	}
	return rt, nil
}

func durationVar(lookup func(string) (string, bool), name string, fallback time.Duration) (time.Duration, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: want a positive duration, got %q", name, v)
	}
	return d, nil
}
