package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/placekit-labs/placekit/internal/branding"
	"github.com/placekit-labs/placekit/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client calls the portal REST API over HTTP. It is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *metrics.Metrics
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout bounds every HTTP round trip. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d <= 0 {
			return
		}
		hc := *cl.httpClient
		hc.Timeout = d
		cl.httpClient = &hc
	}
}

// WithTokenSource authenticates calls with OAuth access tokens.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(cl *Client) {
		cl.tokens = ts
	}
}

// WithRateLimit throttles outgoing calls to qps with the given burst.
// A non-positive qps disables throttling.
func WithRateLimit(qps float64, burst int) Option {
	return func(cl *Client) {
		if qps <= 0 {
			cl.limiter = nil
			return
		}
		if burst <= 0 {
			burst = max(1, int(qps))
		}
		cl.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithMetrics records request counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New creates a Client for the given endpoint. The endpoint is a webhook
// base URL or https://<domain>/rest/; a trailing slash is added if missing.
// Options are applied in order, so WithTimeout should follow WithHTTPClient.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("endpoint %q must be an http(s) URL", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
		userAgent:  branding.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OAuthEndpoint returns the REST endpoint for a portal domain. The domain
// must reduce to a bare host, see PortalHost.
func OAuthEndpoint(domain string) (string, error) {
	host, err := PortalHost(domain)
	if err != nil {
		return "", err
	}
	return "https://" + host + "/rest/", nil
}

// PortalHost normalises a portal domain to a lower-case host with an
// optional port. A leading scheme and trailing slash are tolerated; paths,
// queries, fragments and userinfo are rejected.
func PortalHost(domain string) (string, error) {
	host := strings.TrimSpace(domain)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	host = strings.ToLower(strings.TrimSuffix(host, "/"))
	if host == "" {
		return "", errors.New("portal domain is empty")
	}

	u, err := url.Parse("https://" + host)
	if err != nil {
		return "", fmt.Errorf("invalid portal domain %q: %w", domain, err)
	}
	if u.Host != host || u.User != nil || u.Path != "" || u.RawQuery != "" || u.ForceQuery || u.Fragment != "" || u.Hostname() == "" {
		return "", fmt.Errorf("invalid portal domain %q: want a host name with an optional port", domain)
	}
	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			return "", fmt.Errorf("invalid portal domain %q: bad port", domain)
		}
	}
	return host, nil
}

// Endpoint returns the base URL calls are made against.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// envelope is the raw JSON shape of every portal response.
type envelope struct {
	Result           json.RawMessage `json:"result"`
	Next             int             `json:"next"`
	Total            int             `json:"total"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// CallMethod invokes a single REST method.
func (c *Client) CallMethod(ctx context.Context, method string, params Params) (*Response, error) {
	return c.do(ctx, method, params)
}

func (c *Client) do(ctx context.Context, method string, params any) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	if params == nil {
		params = Params{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding params for %s: %w", method, err)
	}

	target := c.endpoint + method + ".json"
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("obtaining access token: %w", err)
		}
		target += "?" + url.Values{"auth": {tok.AccessToken}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequest(method, false, time.Since(start))
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	out, err := c.decode(method, resp)
	elapsed := time.Since(start)
	c.metrics.RecordRequest(method, err == nil, elapsed)
	c.logger.Debug("rest call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)
	return out, err
}

func (c *Client) decode(method string, resp *http.Response) (*Response, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &Error{Code: http.StatusText(resp.StatusCode), Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("parsing %s response: %w", method, err)
	}

	if env.Error != "" {
		return nil, &Error{Code: env.Error, Description: env.ErrorDescription, Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Code: http.StatusText(resp.StatusCode), Status: resp.StatusCode}
	}

	return &Response{Result: env.Result, Next: env.Next, Total: env.Total}, nil
}
