// Package fetcher is the HTTP-only acquisition path: one GET, no browser,
// no script execution. Its sufficiency signal tells auto mode whether the
// static HTML is worth walking or the page needs a browser.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// MaxBody caps how much of a response is read.
const MaxBody = 10 << 20

// MaxRedirects is how many redirects a fetch follows.
const MaxRedirects = 5

// DefaultUserAgent identifies the fetcher when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (compatible; axtree/1.0)"

// Result is the outcome of a GET.
type Result struct {
	URL         string // final URL after redirects
	Body        []byte
	StatusCode  int
	ContentType string
	Sufficient  bool // enough content that no browser is needed
}

// Fetcher performs HTTP GETs.
type Fetcher struct {
	client   *http.Client
	ua       string
	validate func(ctx context.Context, rawURL string) error
	logger   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client. Its own redirect policy replaces the
// default one, so redirect targets are no longer validated.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithURLValidator checks the requested URL and every redirect target.
func WithURLValidator(fn func(ctx context.Context, rawURL string) error) Option {
	return func(f *Fetcher) { f.validate = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher with a 30s client timeout that follows at most
// MaxRedirects redirects.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		ua:     DefaultUserAgent,
		logger: slog.Default(),
	}
	f.client = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("too many redirects (%d)", len(via))
			}
			if f.validate == nil {
				return nil
			}
			if err := f.validate(req.Context(), req.URL.String()); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs pageURL. Non-2xx responses are returned with Sufficient false
// rather than as errors; callers decide whether to escalate.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	if f.validate != nil {
		if err := f.validate(ctx, pageURL); err != nil {
			return nil, fmt.Errorf("fetcher: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBody))
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	res := &Result{
		URL:         resp.Request.URL.String(),
		Body:        body,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	res.Sufficient = resp.StatusCode >= 200 && resp.StatusCode < 300 && IsSufficient(body)

	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "sufficient", res.Sufficient)
	return res, nil
}
