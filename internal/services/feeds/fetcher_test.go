package feeds

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/common"
)

func testFetcherConfig() common.FeedsConfig {
	return common.FeedsConfig{
		ConnectTimeout: "2s",
		ReadTimeout:    "5s",
		UserAgent:      "MarketSentry/1.0",
		Referer:        "https://marketsentry.example.com/",
		AltUserAgent:   "Mozilla/5.0 (compatible)",
		AltReferer:     "https://www.google.com/",
		MaxBodySize:    1 << 20,
	}
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(testFetcherConfig(), arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return f
}

func TestFetcherGet(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	body, contentType, err := f.Get(context.Background(), srv.URL, f.PrimaryIdentity())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != sampleRSS {
		t.Error("body mismatch")
	}
	if contentType != "application/rss+xml" {
		t.Errorf("unexpected content type %q", contentType)
	}
	if gotUA != "MarketSentry/1.0" {
		t.Errorf("expected primary user agent, got %q", gotUA)
	}
	if gotReferer != "https://marketsentry.example.com/" {
		t.Errorf("expected primary referer, got %q", gotReferer)
	}
}

func TestFetcherGetAlternateIdentity(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	if _, _, err := f.Get(context.Background(), srv.URL, f.AlternateIdentity()); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotUA != "Mozilla/5.0 (compatible)" {
		t.Errorf("expected alternate user agent, got %q", gotUA)
	}
}

func TestFetcherGetGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip accept-encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/xml")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(sampleRSS))
		gz.Close()
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	body, _, err := f.Get(context.Background(), srv.URL, f.PrimaryIdentity())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != sampleRSS {
		t.Error("expected transparently decompressed body")
	}
}

func TestFetcherGetNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, _, err := f.Get(context.Background(), srv.URL, f.PrimaryIdentity())
	if err == nil {
		t.Fatal("expected error for 403 response")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fetchErr.Status != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", fetchErr.Status)
	}
}

func TestFetcherBodySizeLimit(t *testing.T) {
	cfg := testFetcherConfig()
	cfg.MaxBodySize = 16

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	f, err := NewFetcher(cfg, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	body, _, err := f.Get(context.Background(), srv.URL, f.PrimaryIdentity())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(body) != 16 {
		t.Errorf("expected body truncated to 16 bytes, got %d", len(body))
	}
}

func TestNewFetcherInvalidTimeout(t *testing.T) {
	cfg := testFetcherConfig()
	cfg.ConnectTimeout = "soon"
	if _, err := NewFetcher(cfg, arbor.NewLogger()); err == nil {
		t.Error("expected error for invalid connect timeout")
	}
}
