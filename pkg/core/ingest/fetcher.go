package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"reserve_monitor/pkg/core/extract"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var (
	// ErrDocumentUnusable marks a fetch that produced no usable document.
	ErrDocumentUnusable = errors.New("document unusable")
	// ErrBlocked marks an anti-automation or access-denied response.
	ErrBlocked = errors.New("blocked by publisher")
)

const (
	// DefaultMaxBytes caps the size of a fetched release page.
	DefaultMaxBytes = 8 << 20
	// DefaultTimeout bounds one fetch, body included.
	DefaultTimeout = 30 * time.Second
)

// Document is a fetched and sanitized release page.
type Document struct {
	URL       string
	FetchedAt time.Time
	Size      int // Raw body size in bytes
	Parsed    *extract.Document
}

// Fetcher downloads release pages. Each fetch is bounded by the fetcher's
// timeout and the caller's context; the fetcher never retries.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	maxBytes  int64
	policy    *bluemonday.Policy
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client. The client is used as is
// and never modified.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the per-fetch deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithLogger sets the fetcher logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFetcher creates a fetcher with DefaultTimeout per fetch.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		maxBytes:  DefaultMaxBytes,
		policy:    tablePolicy(),
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// tablePolicy keeps document structure and table layout (including spans)
// and drops scripts, styles, event handlers and embedded content.
func tablePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"div", "section", "article", "main", "header", "footer", "nav", "span", "p", "br",
		"h1", "h2", "h3", "h4", "h5", "h6", "strong", "b", "em", "i", "sup", "sub",
		"ul", "ol", "li", "title",
	)
	p.AllowTables()
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowAttrs("scope").OnElements("th")
	p.AllowAttrs("class", "id", "role").Globally()
	return p
}

// Fetch downloads, screens and parses one release page. Every failure wraps
// ErrDocumentUnusable; block pages additionally wrap ErrBlocked.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	start := f.now()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrDocumentUnusable, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrDocumentUnusable, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w: %s returned status %d", ErrDocumentUnusable, ErrBlocked, url, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s returned status %d", ErrDocumentUnusable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDocumentUnusable, url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDocumentUnusable, url, f.maxBytes)
	}
	doc, err := f.Parse(body, url)
	if err != nil {
		return nil, err
	}

	f.log.Debug("release fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Int("tables", doc.Parsed.TableCount()),
		zap.Duration("elapsed", f.now().Sub(start)))

	doc.FetchedAt = start.UTC()
	return doc, nil
}

// Parse screens, sanitizes and parses a page already in memory, such as a
// saved release file.
func (f *Fetcher) Parse(body []byte, source string) (*Document, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrDocumentUnusable, source)
	}
	if d := Inspect(body); d.Blocked {
		f.log.Warn("release page rejected", zap.String("source", source), zap.String("reason", d.Reason))
		return nil, fmt.Errorf("%w: %w: %s", ErrDocumentUnusable, ErrBlocked, d.Reason)
	}

	parsed, err := extract.ParseDocumentBytes(f.policy.SanitizeBytes(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnusable, err)
	}
	return &Document{URL: source, FetchedAt: f.now().UTC(), Size: len(body), Parsed: parsed}, nil
}
