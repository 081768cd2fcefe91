// Package transport is the shared JSON-over-HTTP plumbing used by the
// provider adapters: auth headers, request correlation IDs, bounded
// retries for idempotent reads, and typed status errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus3301/whatsfuse/core"
)

// StatusError is a non-2xx provider response. Adapters map it into the
// unified error taxonomy; the transport does not guess provider
// semantics.
type StatusError struct {
	Code       int
	Body       []byte
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, truncate(e.Body, 200))
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

// Options configures a transport client.
type Options struct {
	BaseURL        string
	Headers        map[string]string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	Provider       string
	Logger         *zap.Logger
}

// Client performs JSON HTTP calls against one provider base URL.
type Client struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	provider   string
	logger     *zap.Logger
}

// New creates a transport client. The logger must be non-nil.
func New(opts Options) *Client {
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		headers: opts.Headers,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		provider:   opts.Provider,
		logger:     opts.Logger,
	}
}

// GetJSON performs a GET and decodes the JSON response into out.
// Network errors, 5xx and 429 are retried up to MaxRetries with a
// fixed delay; GETs are idempotent on every provider we front.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := c.do(ctx, http.MethodGet, u, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= c.maxRetries || !retryable(err) {
			return lastErr
		}
		c.logger.Debug("retrying request",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return &core.NetworkError{
				BaseError: core.BaseError{Provider: c.provider, Message: "request canceled"},
				Err:       ctx.Err(),
			}
		}
	}
}

// PostJSON performs a POST with a JSON body and decodes the response
// into out. Sends are never retried here; duplicate delivery is worse
// than a reported failure.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.baseURL+path, body, out)
}

func (c *Client) do(ctx context.Context, method, u string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return core.ErrTransformation(c.provider, "marshal request: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return core.ErrInvalidRequest(c.provider, "build request: %v", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.NetworkError{
			BaseError: core.BaseError{Provider: c.provider, Message: fmt.Sprintf("%s %s: %v", method, req.URL.Path, err)},
			Err:       err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.NetworkError{
			BaseError: core.BaseError{Provider: c.provider, Message: fmt.Sprintf("read response: %v", err)},
			Err:       err,
		}
	}

	c.logger.Debug("provider request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:       resp.StatusCode,
			Body:       respBody,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return core.ErrTransformation(c.provider, "decode response: %v", err)
	}
	return nil
}

// Close releases idle connections held by the underlying client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func retryable(err error) bool {
	switch e := err.(type) {
	case *core.NetworkError:
		return true
	case *StatusError:
		return e.Code >= 500 || e.Code == http.StatusTooManyRequests
	default:
		return false
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
