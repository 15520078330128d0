package systembolaget

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/apkrank/apk/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the retailer's public assortment export
	DefaultURL = "https://www.systembolaget.se/api/assortment/products/xml"

	defaultUserAgent   = "apk/1.0"
	defaultTimeout     = 60 * time.Second
	defaultMaxAttempts = 3

	// maxBodyBytes caps how much of a response is buffered
	maxBodyBytes = 256 << 20
)

// Config holds catalog client settings. Zero values fall back to defaults.
type Config struct {
	URL               string
	UserAgent         string
	Timeout           time.Duration
	MaxAttempts       int
	RequestsPerSecond float64 // <= 0 means unlimited
	Burst             int
}

// Client downloads the catalog document over HTTP
type Client struct {
	httpClient  *http.Client
	url         string
	userAgent   string
	maxAttempts int
	rateLimiter *rate.Limiter
	log         logrus.FieldLogger
}

// NewClient creates a new catalog client
func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		url:         cfg.URL,
		userAgent:   cfg.UserAgent,
		maxAttempts: cfg.MaxAttempts,
		rateLimiter: rate.NewLimiter(limit, cfg.Burst),
		log:         log.WithField("component", "systembolaget"),
	}
}

// URL returns the catalog address the client downloads from
func (c *Client) URL() string {
	return c.url
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/xml, text/xml")

	return c.httpClient.Do(req)
}

// FetchCatalog downloads the catalog, making at most maxAttempts requests.
// Transport errors, 429 and 5xx responses are retried; other non-2xx
// statuses fail at once. Every failure is a *domain.FetchError.
func (c *Client) FetchCatalog(ctx context.Context) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		log := c.log.WithFields(logrus.Fields{"url": c.url, "attempt": attempt})

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, &domain.FetchError{URL: c.url, Attempts: attempt - 1, Err: err}
		}

		resp, err := c.doRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &domain.FetchError{URL: c.url, Attempts: attempt, Err: ctx.Err()}
			}
			log.WithError(err).Warn("catalog request failed")
			lastErr = err
			continue
		}

		body, err := readLimitedBody(resp.Body, maxBodyBytes)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			if !retryable(resp.StatusCode) {
				log.WithField("status", resp.StatusCode).Error("catalog request rejected")
				return nil, &domain.FetchError{URL: c.url, Attempts: attempt, Err: lastErr}
			}
			log.WithField("status", resp.StatusCode).Warn("catalog request failed")
			continue
		}

		if err != nil {
			log.WithError(err).Warn("reading catalog body failed")
			lastErr = err
			continue
		}

		log.WithField("bytes", len(body)).Debug("catalog downloaded")
		return body, nil
	}

	c.log.WithField("url", c.url).Errorf("all %d attempts failed", c.maxAttempts)
	return nil, &domain.FetchError{URL: c.url, Attempts: c.maxAttempts, Err: lastErr}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// readLimitedBody reads r fully, failing when it holds more than limit bytes
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}
