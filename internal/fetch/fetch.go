// Package fetch downloads newsletter archive pages with bounded retry and an
// optional conditional-GET cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/nldigest/internal/cache"
)

const (
	DefaultUserAgent   = "ALF Newsletter Bot (+https://artliberationfront.org)"
	DefaultAccept      = "text/html,application/xhtml+xml"
	DefaultMaxAttempts = 3
	DefaultBackoff     = 250 * time.Millisecond
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

// Client wraps http.Client with per-request timeouts, linear backoff retry
// and conditional requests against an on-disk cache.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	Accept     string
	// MaxAttempts includes the initial attempt. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Backoff is multiplied by the 1-based attempt number after each failure.
	Backoff time.Duration
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.HTTPCache
	// If true, skip conditional headers but still save the latest response.
	BypassCache bool

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches rawURL and returns the body and its Content-Type. Every failed
// attempt i is followed by a wait of Backoff*i; after the last attempt the
// error from that attempt is returned.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return nil, "", fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}

	var cached cache.Entry
	haveCached := false
	if c.Cache != nil && !c.BypassCache {
		if e, err := c.Cache.Lookup(ctx, rawURL); err == nil {
			cached = e
			haveCached = true
		}
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		res, err := c.tryOnce(ctx, rawURL, cached)
		if err == nil {
			if res.status == http.StatusNotModified && haveCached {
				if body, err := c.Cache.Body(ctx, rawURL); err == nil {
					return body, cached.ContentType, nil
				}
				// Body went missing; fall through to an unconditional attempt.
				haveCached = false
				cached = cache.Entry{}
				lastErr = errors.New("cached body missing after 304")
			} else if res.status != http.StatusNotModified {
				if c.Cache != nil {
					_ = c.Cache.Save(ctx, cache.Entry{
						URL:          rawURL,
						ContentType:  res.contentType,
						ETag:         res.etag,
						LastModified: res.lastModified,
					}, res.body)
				}
				return res.body, res.contentType, nil
			} else {
				lastErr = &StatusError{Code: http.StatusNotModified}
			}
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if err := c.sleep(ctx, time.Duration(i)*backoff); err != nil {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, cached cache.Entry) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	accept := c.Accept
	if accept == "" {
		accept = DefaultAccept
	}
	req.Header.Set("Accept", accept)
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	httpClient := c.getHTTPClient()
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return response{status: resp.StatusCode}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return response{status: resp.StatusCode}, &StatusError{Code: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	return response{
		body:         b,
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
