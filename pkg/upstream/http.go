package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/telemetry/tracing"
)

// maxErrorBody caps how much of an error response is kept in the error.
const maxErrorBody = 4 << 10

// HTTPCaller posts JSON payloads to an upstream service endpoint.
type HTTPCaller struct {
	service string
	url     string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// HTTPOption configures an HTTPCaller.
type HTTPOption func(*HTTPCaller)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPCaller) {
		if client != nil {
			c.client = client
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(c *HTTPCaller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTPCaller creates a caller for service that POSTs to cfg.BaseURL+cfg.Path.
func NewHTTPCaller(service string, cfg *config.UpstreamConfig, opts ...HTTPOption) *HTTPCaller {
	c := &HTTPCaller{
		service: service,
		url:     joinURL(cfg.BaseURL, cfg.Path),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.Timeout}
	}
	c.logger = c.logger.With("component", "upstream.http", "service", service)
	return c
}

// URL returns the endpoint the caller posts to.
func (c *HTTPCaller) URL() string {
	return c.url
}

// Call implements Caller.
func (c *HTTPCaller) Call(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Service: c.service, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	tracing.Inject(ctx, req.Header)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		msg := "request failed"
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			msg = fmt.Sprintf("request timeout after %s", c.timeout)
		}
		return nil, &Error{Service: c.service, Message: msg, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &Error{Service: c.service, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
		}
		c.logger.Debug("upstream call completed",
			"status", resp.StatusCode,
			"duration", time.Since(start),
			"response_bytes", len(body),
		)
		return body, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))

	c.logger.Warn("upstream call failed",
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Service: c.service, Message: msg}
	case http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Service:    c.service,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Message:    msg,
		}
	default:
		return nil, &Error{Service: c.service, StatusCode: resp.StatusCode, Message: msg}
	}
}

// parseRetryAfter parses a Retry-After header in delay-seconds or HTTP-date
// form. Unparseable or past values yield zero.
func parseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
