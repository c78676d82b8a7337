package feeds

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/marketsentry/marketsentry/internal/common"
)

// Identity is the request identity presented to a feed host.
type Identity struct {
	UserAgent string
	Referer   string
}

// FetchError is a typed failure carrying the HTTP status of a non-2xx
// response, or the transport error for network failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher retrieves raw feed content over HTTP with explicit connect/read
// timeouts, configurable identity headers, transparent gzip handling and a
// per-host politeness limiter.
type Fetcher struct {
	client      *http.Client
	cfg         common.FeedsConfig
	logger      arbor.ILogger
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	maxBodySize int64
}

// NewFetcher creates a fetcher from the feeds configuration.
func NewFetcher(cfg common.FeedsConfig, logger arbor.ILogger) (*Fetcher, error) {
	connectTimeout, err := cfg.ConnectTimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid connect timeout: %w", err)
	}
	readTimeout, err := cfg.ReadTimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
		// gzip is handled explicitly so the Accept-Encoding header stays
		// under our control for identity purposes.
		DisableCompression: true,
	}

	maxBody := int64(cfg.MaxBodySize)
	if maxBody <= 0 {
		maxBody = 4 * 1024 * 1024
	}

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   readTimeout,
		},
		cfg:         cfg,
		logger:      logger,
		limiters:    make(map[string]*rate.Limiter),
		maxBodySize: maxBody,
	}, nil
}

// PrimaryIdentity returns the configured default request identity.
func (f *Fetcher) PrimaryIdentity() Identity {
	return Identity{UserAgent: f.cfg.UserAgent, Referer: f.cfg.Referer}
}

// AlternateIdentity returns the anti-blocking fallback identity used for the
// single retry.
func (f *Fetcher) AlternateIdentity() Identity {
	return Identity{UserAgent: f.cfg.AltUserAgent, Referer: f.cfg.AltReferer}
}

// Get performs a single GET with the given identity, returning the body and
// the response content type. Non-200 responses return a *FetchError carrying
// the status.
func (f *Fetcher) Get(ctx context.Context, rawURL string, identity Identity) ([]byte, string, error) {
	if err := f.waitForHost(ctx, rawURL); err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}

	if identity.UserAgent != "" {
		req.Header.Set("User-Agent", identity.UserAgent)
	}
	if identity.Referer != "" {
		req.Header.Set("Referer", identity.Referer)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/html, */*")
	req.Header.Set("Accept-Encoding", "gzip")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, "", &FetchError{URL: rawURL, Err: fmt.Errorf("gzip decode: %w", err)}
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodySize))
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}

	f.logger.Debug().
		Str("url", rawURL).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Fetched feed content")

	return body, resp.Header.Get("Content-Type"), nil
}

// waitForHost applies the per-host politeness limiter.
func (f *Fetcher) waitForHost(ctx context.Context, rawURL string) error {
	if f.cfg.RatePerHost <= 0 {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil // unparseable URLs fail later in the request itself
	}

	f.mu.Lock()
	limiter, ok := f.limiters[parsed.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.cfg.RatePerHost), 1)
		f.limiters[parsed.Host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}
