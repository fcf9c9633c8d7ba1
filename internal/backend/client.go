// Package backend is the REST client of the relief backend. The backend owns
// cases, users and sessions; this client forwards the caller's credentials and
// never retries a mutation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/sethvargo/go-retry"
)

type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     uint64
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        Config
	logger     *slog.Logger
	metrics    *Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3001/api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 4 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        any
	raw         []byte
	contentType string
	retry       bool
}

type result struct {
	status int
	header http.Header
	body   []byte
}

// read issues an idempotent GET, retried with capped exponential backoff.
func (c *Client) read(ctx context.Context, op, path string, query url.Values, out any) error {
	_, err := c.do(ctx, call{op: op, method: http.MethodGet, path: path, query: query, retry: true}, out)
	return err
}

// mutate issues a single attempt. Workflow actions are not idempotent.
func (c *Client) mutate(ctx context.Context, op, method, path string, body, out any) (http.Header, error) {
	res, err := c.do(ctx, call{op: op, method: method, path: path, body: body}, out)
	if res != nil {
		return res.header, err
	}
	return nil, err
}

func (c *Client) do(ctx context.Context, cl call, out any) (*result, error) {
	var res *result

	attempt := func(ctx context.Context) error {
		r, err := c.send(ctx, cl)
		res = r
		return err
	}

	var err error
	if cl.retry && c.cfg.MaxRetries > 0 {
		b := retry.NewExponential(c.cfg.RetryBaseDelay)
		b = retry.WithCappedDuration(c.cfg.RetryMaxDelay, b)
		b = retry.WithMaxRetries(c.cfg.MaxRetries, b)

		tries := 0
		err = retry.Do(ctx, b, func(ctx context.Context) error {
			if tries > 0 {
				c.metrics.retried(cl.op)
			}
			tries++
			err := attempt(ctx)
			if err != nil && retryable(err) {
				c.logger.Warn("backend read failed, retrying", "operation", cl.op, "attempt", tries, "error", err)
				return retry.RetryableError(err)
			}
			return err
		})
	} else {
		err = attempt(ctx)
	}
	if err != nil {
		return res, err
	}

	if out != nil && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			return res, fmt.Errorf("backend %s: decode response: %w", cl.op, err)
		}
	}
	return res, nil
}

func (c *Client) send(ctx context.Context, cl call) (*result, error) {
	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	var body io.Reader
	contentType := cl.contentType
	switch {
	case cl.raw != nil:
		body = bytes.NewReader(cl.raw)
	case cl.body != nil:
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("backend %s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("backend %s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if creds := internal.CredentialsFromContext(ctx); !creds.IsZero() {
		req.Header.Set("Cookie", creds.Cookie)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(cl.op, 0, time.Since(start))
		return nil, fmt.Errorf("backend %s: %w", cl.op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	c.metrics.observe(cl.op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("backend %s: read response: %w", cl.op, err)
	}

	res := &result{status: resp.StatusCode, header: resp.Header, body: payload}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeAPIError(resp.StatusCode, payload)
		c.logger.Debug("backend rejected request",
			"operation", cl.op,
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"title", apiErr.Title)
		return res, apiErr
	}

	return res, nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
