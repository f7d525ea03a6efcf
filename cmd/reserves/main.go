// Command reserves extracts the weekly H.4.1 "Factors Affecting Reserve
// Balances" report into JSON records, builds trend tables and serves both
// over HTTP.
package main

import (
	"fmt"
	"os"
	"time"

	"reserve_monitor/pkg/core/cache"
	"reserve_monitor/pkg/core/config"
	"reserve_monitor/pkg/core/extract"
	"reserve_monitor/pkg/core/ingest"
	"reserve_monitor/pkg/core/monitor"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	baseURL    string
	timeout    time.Duration

	logger   *zap.Logger
	settings config.Runtime
)

var rootCmd = &cobra.Command{
	Use:   "reserves",
	Short: "Weekly reserve balance monitor for the H.4.1 release",
	Long: `reserves reads the Federal Reserve H.4.1 statistical release and turns
the "Factors Affecting Reserve Balances" table into a fixed-shape JSON record:
every configured field, its week and year changes, an integrity check of
supplying minus absorbing factors against reserve balances, and warnings for
anything that could not be resolved.

Settings come from RESERVES_* environment variables (and .env); flags win.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		settings, err = config.LoadRuntime(".env")
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("config") {
			settings.ConfigPath = configPath
		}
		if flags.Changed("base-url") {
			settings.BaseURL = baseURL
		}
		if flags.Changed("timeout") {
			settings.FetchTimeout = timeout
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&configPath, "config", "", "extraction bundle (.yaml, .hjson or .json); built-in bundle when empty")
	pf.StringVar(&baseURL, "base-url", ingest.DefaultBaseURL, "release index URL")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "fetch timeout per release")

	rootCmd.AddCommand(extractCmd, trendCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wired components of one command run.
type app struct {
	engine  *extract.Engine
	fetcher *ingest.Fetcher
	service *monitor.Service
}

func newApp() (*app, error) {
	bundle, err := config.Bundle(settings)
	if err != nil {
		return nil, err
	}
	engine, err := extract.NewEngine(bundle, extract.WithLogger(logger.Named("extract")))
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	fetcher := ingest.NewFetcher(
		ingest.WithTimeout(settings.FetchTimeout),
		ingest.WithUserAgent(settings.UserAgent),
		ingest.WithLogger(logger.Named("ingest")),
	)
	records := cache.New[*extract.Record](settings.CacheTTL, cache.WithLogger(logger.Named("cache")))
	service := monitor.NewService(fetcher, engine,
		monitor.WithBaseURL(settings.BaseURL),
		monitor.WithCache(records),
		monitor.WithLogger(logger.Named("monitor")),
	)
	return &app{engine: engine, fetcher: fetcher, service: service}, nil
}
