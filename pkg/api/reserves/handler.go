// Package reserves exposes extracted H.4.1 records over HTTP as JSON.
package reserves

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"reserve_monitor/pkg/core/monitor"
	"reserve_monitor/pkg/core/trend"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// MaxTrendWeeks caps the trend window of one request.
const MaxTrendWeeks = 52

// Monitor answers record queries. Implemented by monitor.Service.
type Monitor interface {
	Latest(ctx context.Context) (monitor.Result, error)
	ForDate(ctx context.Context, date time.Time) (monitor.Result, error)
	Trend(ctx context.Context, weeks int) (*trend.Table, error)
}

// Handler serves the reserves API.
type Handler struct {
	svc          Monitor
	log          *zap.Logger
	defaultWeeks int
}

// NewHandler creates a handler. defaultWeeks applies when a trend request
// has no weeks parameter.
func NewHandler(svc Monitor, log *zap.Logger, defaultWeeks int) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultWeeks <= 0 || defaultWeeks > MaxTrendWeeks {
		defaultWeeks = 8
	}
	return &Handler{svc: svc, log: log, defaultWeeks: defaultWeeks}
}

// Router returns a chi router with the API and a health check mounted.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	h.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the API routes on r.
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Route("/api/reserves", func(r chi.Router) {
		r.Get("/latest", h.handleLatest)
		r.Get("/trend", h.handleTrend)
		r.Get("/{date}", h.handleDate)
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

// handleLatest handles GET /api/reserves/latest
func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Latest(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDate handles GET /api/reserves/{date} with date as YYYY-MM-DD.
func (h *Handler) handleDate(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "date")
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date "+strconv.Quote(raw)+", want YYYY-MM-DD")
		return
	}
	res, err := h.svc.ForDate(r.Context(), date)
	if err != nil {
		h.fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTrend handles GET /api/reserves/trend?weeks=N
func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	weeks := h.defaultWeeks
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxTrendWeeks {
			writeError(w, http.StatusBadRequest, "weeks must be an integer between 1 and "+strconv.Itoa(MaxTrendWeeks))
			return
		}
		weeks = n
	}
	table, err := h.svc.Trend(r.Context(), weeks)
	if err != nil {
		h.fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeError(w, status, err.Error())
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
