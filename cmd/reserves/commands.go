package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"reserve_monitor/pkg/api/reserves"
	"reserve_monitor/pkg/core/extract"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	extractDate string
	trendWeeks  int
	serveAddr   string
)

// =============================================================================
// EXTRACT
// =============================================================================

var extractCmd = &cobra.Command{
	Use:   "extract [file|url]",
	Short: "Extract one release into a JSON record",
	Long: `Extract reads a saved release page or fetches one by URL and prints the
record as JSON. Without an argument the current release is fetched, or the
release of the week containing --date.

The record is printed even when the document is unusable; the command then
exits with an error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		var rec *extract.Record
		switch {
		case len(args) == 0 && extractDate != "":
			date, err := time.Parse(time.DateOnly, extractDate)
			if err != nil {
				return fmt.Errorf("--date: want YYYY-MM-DD: %w", err)
			}
			res, err := a.service.ForDate(ctx, date)
			if err != nil {
				return err
			}
			rec = res.Record
		case len(args) == 0:
			res, err := a.service.Latest(ctx)
			if err != nil {
				return err
			}
			rec = res.Record
		case isURL(args[0]):
			rec = a.service.Extract(ctx, args[0])
		default:
			rec = a.extractFile(args[0])
		}

		if err := printJSON(cmd.OutOrStdout(), rec); err != nil {
			return err
		}
		if !rec.OK {
			return fmt.Errorf("document unusable: %s", rec.Error)
		}
		return nil
	},
}

func (a *app) extractFile(path string) *extract.Record {
	body, err := os.ReadFile(path)
	if err != nil {
		return a.engine.Unusable(path, err)
	}
	doc, err := a.fetcher.Parse(body, path)
	if err != nil {
		return a.engine.Unusable(path, err)
	}
	return a.engine.Extract(doc.Parsed, path)
}

// =============================================================================
// TREND
// =============================================================================

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Print per-field series for the last published weeks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		weeks := settings.TrendWeeks
		if cmd.Flags().Changed("weeks") {
			weeks = trendWeeks
		}
		if weeks < 1 || weeks > reserves.MaxTrendWeeks {
			return fmt.Errorf("--weeks must be between 1 and %d", reserves.MaxTrendWeeks)
		}

		ctx, cancel := signalContext()
		defer cancel()

		table, err := a.service.Trend(ctx, weeks)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), table)
	},
}

// =============================================================================
// SERVE
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve records and trends over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		addr := settings.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		handler := reserves.NewHandler(a.service, logger.Named("api"), settings.TrendWeeks)
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, cancel := signalContext()
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Listening", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("Received shutdown signal")
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractDate, "date", "", "week to fetch (YYYY-MM-DD) when no argument is given")
	trendCmd.Flags().IntVar(&trendWeeks, "weeks", 8, "number of weeks")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

// =============================================================================
// HELPERS
// =============================================================================

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func isURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
