// Package inaturalist is a client for the iNaturalist observation search API.
package inaturalist

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gingerhendrix/my-nat/internal/errors"
	"github.com/gingerhendrix/my-nat/internal/httpclient"
	"github.com/gingerhendrix/my-nat/internal/logger"
	"github.com/gingerhendrix/my-nat/internal/observability/metrics"
)

const componentName = "inaturalist"

// Endpoint label values
const (
	endpointUser   = "user"
	endpointGlobal = "global"
)

// Client fetches observation pages. Safe for concurrent use.
type Client struct {
	baseURL *url.URL
	timeout time.Duration
	http    *httpclient.Client
	limiter *rate.Limiter
	log     logger.Logger
	metrics *metrics.SearchMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. with one using a mock transport.
func WithHTTPClient(hc *httpclient.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger. The default is the global "inaturalist" module logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics enables request instrumentation.
func WithMetrics(m *metrics.SearchMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new iNaturalist API client. Zero config values fall back
// to DefaultConfig, except RequestsPerSecond where a negative value disables pacing.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = defaults.RequestsPerSecond
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		if err == nil {
			err = errors.NewStd("base URL must be absolute")
		}
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("base_url", cfg.BaseURL).
			Build()
	}

	c := &Client{
		baseURL: base,
		timeout: cfg.Timeout,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = httpclient.New(&httpclient.Config{
			DefaultTimeout: cfg.Timeout,
			UserAgent:      cfg.UserAgent,
		})
	}
	if c.log == nil {
		c.log = logger.Global().Module(componentName)
	}

	c.log.Debug("client initialized",
		logger.String("base_url", base.String()),
		logger.Duration("timeout", cfg.Timeout),
		logger.Float64("requests_per_second", cfg.RequestsPerSecond))

	return c, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

// Fetch retrieves one page of observations matching q. Pages below 1 are
// requested as page 1. Non-success statuses return a *RemoteError and bodies
// that cannot be decoded return a *ParseError, both wrapped in an
// *errors.EnhancedError. Nothing is retried.
func (c *Client) Fetch(ctx context.Context, q Query) (*Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	endpoint := endpointGlobal
	if q.Username != "" {
		endpoint = endpointUser
	}
	reqURL := c.buildURL(q)
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			waited := time.Since(start)
			c.metrics.RecordAPIRequest(endpoint, metrics.OutcomeCanceled, waited)
			return nil, errors.New(err).
				Component(componentName).
				Category(errors.CategoryCancellation).
				Timing("rate_limit_wait", waited).
				Build()
		}
	}

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, c.transportError(ctx, err, endpoint, reqURL, start)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug("failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		elapsed := time.Since(start)
		c.metrics.RecordAPIRequest(endpoint, metrics.OutcomeRemoteError, elapsed)
		return nil, errors.New(&RemoteError{StatusCode: resp.StatusCode}).
			Component(componentName).
			Category(errors.CategoryRemoteAPI).
			Timing("fetch_observations", elapsed).
			Context("status_code", resp.StatusCode).
			Context("endpoint", endpoint).
			Context("page", q.Page).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, c.transportError(ctx, err, endpoint, reqURL, start)
	}

	observations, err := decodeObservations(body, c.baseURL.String())
	if err != nil {
		elapsed := time.Since(start)
		c.metrics.RecordAPIRequest(endpoint, metrics.OutcomeParseError, elapsed)
		return nil, errors.New(err).
			Component(componentName).
			Category(errors.CategoryFileParsing).
			Timing("fetch_observations", elapsed).
			Context("endpoint", endpoint).
			Context("body_size", len(body)).
			Build()
	}

	total := parseTotalEntries(resp.Header.Get(TotalEntriesHeader))
	duration := time.Since(start)
	c.metrics.RecordAPIRequest(endpoint, metrics.OutcomeSuccess, duration)
	c.metrics.RecordResults(len(observations))

	c.log.Debug("fetched observations",
		logger.String("endpoint", endpoint),
		logger.Int("page", q.Page),
		logger.Int("results", len(observations)),
		logger.Int("total_entries", total),
		logger.Duration("duration", duration))

	return &Page{
		Observations: observations,
		TotalEntries: total,
		Page:         q.Page,
	}, nil
}

func (c *Client) transportError(ctx context.Context, err error, endpoint, reqURL string, start time.Time) error {
	outcome, category := metrics.OutcomeNetwork, errors.CategoryNetwork
	switch {
	case ctx.Err() == context.Canceled:
		outcome, category = metrics.OutcomeCanceled, errors.CategoryCancellation
	case ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded):
		category = errors.CategoryTimeout
	}
	elapsed := time.Since(start)
	c.metrics.RecordAPIRequest(endpoint, outcome, elapsed)
	return errors.New(err).
		Component(componentName).
		Category(category).
		NetworkContext(reqURL, c.timeout).
		Timing("fetch_observations", elapsed).
		Context("endpoint", endpoint).
		Build()
}

// buildURL composes the request URL for q.
func (c *Client) buildURL(q Query) string {
	u := *c.baseURL
	if q.Username != "" {
		// the login is a single path segment; keep '/' and '..' escaped
		base := u.EscapedPath()
		u.Path += "/observations/" + q.Username + ".json"
		u.RawPath = base + "/observations/" + url.PathEscape(q.Username) + ".json"
	} else {
		u.Path += "/observations.json"
	}

	params := url.Values{}
	if bb := q.BoundingBox; bb != nil {
		params.Set("swlat", formatDegrees(bb.SWLat))
		params.Set("swlng", formatDegrees(bb.SWLng))
		params.Set("nelat", formatDegrees(bb.NELat))
		params.Set("nelng", formatDegrees(bb.NELng))
	}
	params.Set("per_page", strconv.Itoa(PerPage))
	params.Set("page", strconv.Itoa(q.Page))
	u.RawQuery = params.Encode()

	return u.String()
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseTotalEntries reads the total count header; absent or invalid means 0.
func parseTotalEntries(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
