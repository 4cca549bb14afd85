// ABOUTME: This file implements the authenticated HTTP transport for the Cafe24 Admin API
// ABOUTME: It attaches bearer tokens, retries transient failures and re-authenticates once on 401/403
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cafe24-admin/models"
	"cafe24-admin/utils"
)

const (
	// DefaultRetryCount bounds retries for transient upstream failures.
	DefaultRetryCount = 3
	// DefaultRetryBaseDelay is multiplied by the attempt number between retries.
	DefaultRetryBaseDelay = 2 * time.Second
	// DefaultAPIVersion is sent as X-Cafe24-Api-Version unless configured otherwise.
	DefaultAPIVersion = "2025-06-01"

	// apiBasePath prefixes every Admin API path. Callers pass resource paths
	// like /admin/products; the base URL stays a bare mall origin.
	apiBasePath = "/api/v2"
)

// TokenSource supplies bearer tokens for outgoing requests. Refresh is called
// when the upstream rejects a token the clock still considers valid.
type TokenSource interface {
	CurrentAccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) error
}

// APIClientConfig configures the authenticated transport.
type APIClientConfig struct {
	BaseURL        string
	APIVersion     string
	RetryCount     int
	RetryBaseDelay time.Duration
	Timeout        time.Duration
}

// APIClient performs authenticated requests against the Cafe24 Admin API.
// Every resource operation funnels through Do, which owns header handling,
// retry policy and error classification.
type APIClient struct {
	baseURL        string
	apiVersion     string
	retryCount     int
	retryBaseDelay time.Duration
	httpClient     *http.Client
	tokens         TokenSource
	breaker        *utils.CircuitBreaker
	metrics        MetricsCollector
	logger         *slog.Logger
}

// NewAPIClient creates an authenticated API client.
func NewAPIClient(cfg APIClientConfig, tokens TokenSource, logger *slog.Logger) *APIClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = DefaultRetryCount
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &APIClient{
		baseURL:        cfg.BaseURL,
		apiVersion:     cfg.APIVersion,
		retryCount:     cfg.RetryCount,
		retryBaseDelay: cfg.RetryBaseDelay,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		tokens:         tokens,
		metrics:        NoOpMetricsCollector{},
		logger:         logger,
	}
}

// SetCircuitBreaker installs a circuit breaker around upstream calls.
func (c *APIClient) SetCircuitBreaker(cb *utils.CircuitBreaker) {
	c.breaker = cb
}

// SetMetricsCollector installs a metrics collector. The default is a no-op.
func (c *APIClient) SetMetricsCollector(m MetricsCollector) {
	if m != nil {
		c.metrics = m
	}
}

// Do issues one authenticated request and returns the raw response body.
// op names the resource operation for logs and metrics. body, when non-nil,
// is JSON-encoded once and reissued unchanged on every retry.
//
// Policy: 401/403 triggers exactly one token refresh and reissue; 429 honours
// Retry-After; 5xx and transport errors retry with a linear backoff. All
// failures are returned as *models.APIError.
func (c *APIClient) Do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &models.APIError{
				Kind:    models.ErrKindValidation,
				Op:      op,
				Message: fmt.Sprintf("failed to encode request body: %v", err),
				Err:     err,
			}
		}
	}

	reqURL := c.baseURL + apiBasePath + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	start := time.Now()
	refreshed := false
	skipBackoff := false
	var lastErr error

	// Attempts cover transient failures; a refresh-and-reissue after 401/403
	// does not consume an attempt.
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 && !skipBackoff {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		skipBackoff = false

		respBody, status, retryAfterHeader, err := c.issue(ctx, op, method, reqURL, payload)
		if err != nil {
			if errors.Is(err, utils.ErrCircuitBreakerOpen) {
				return nil, &models.APIError{
					Kind:    models.ErrKindUpstream5xx,
					Op:      op,
					Message: "upstream circuit open; request rejected locally",
					Err:     err,
				}
			}
			// Token lifecycle failures come back already classified and are
			// not retriable here.
			var apiErr *models.APIError
			if errors.As(err, &apiErr) {
				return nil, apiErr
			}
			if ctx.Err() != nil {
				return nil, &models.APIError{
					Kind:    models.ErrKindTransport,
					Op:      op,
					Message: "request cancelled",
					Err:     ctx.Err(),
				}
			}
			lastErr = &models.APIError{
				Kind:    models.ErrKindTransport,
				Op:      op,
				Message: fmt.Sprintf("request failed: %v", err),
				Err:     err,
			}
			c.logger.Warn("Upstream request failed; will retry",
				"operation", op, "attempt", attempt+1, "error", err)
			continue
		}

		c.metrics.IncrementUpstreamRequest(method, op, strconv.Itoa(status))

		switch {
		case status >= 200 && status < 300:
			c.metrics.RecordUpstreamLatency(op, time.Since(start))
			return respBody, nil

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			if refreshed {
				return nil, models.NewAPIError(models.ErrKindAuthRejected, op, status,
					"request rejected after token refresh", string(respBody))
			}
			c.logger.Info("Upstream rejected access token; refreshing and reissuing",
				"operation", op, "status", status)
			if refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
				// The original rejection is the answer; the failed refresh
				// rides along as the cause.
				apiErr := models.NewAPIError(models.ErrKindAuthRejected, op, status,
					"request rejected and token refresh failed", string(respBody))
				apiErr.Err = refreshErr
				return nil, apiErr
			}
			refreshed = true
			attempt-- // the reissue is not a retry
			continue

		case status == http.StatusTooManyRequests:
			if attempt == c.retryCount {
				return nil, models.NewAPIError(models.ErrKindRateLimited, op, status,
					"rate limited by upstream", string(respBody))
			}
			// A 429 consumes an attempt; its wait replaces the standard backoff.
			retryAfter := parseRetryAfter(retryAfterHeader, c.retryBaseDelay*time.Duration(attempt+1))
			c.logger.Warn("Rate limited by upstream; backing off",
				"operation", op, "retry_after", retryAfter)
			if err := c.wait(ctx, retryAfter); err != nil {
				return nil, err
			}
			skipBackoff = true
			continue

		case status >= 500:
			lastErr = models.NewAPIError(models.ErrKindUpstream5xx, op, status,
				"upstream server error", string(respBody))
			c.logger.Warn("Upstream server error; will retry",
				"operation", op, "status", status, "attempt", attempt+1)
			continue

		default:
			return nil, models.NewAPIError(models.ErrKindUpstream4xx, op, status,
				"upstream rejected request", string(respBody))
		}
	}

	return nil, lastErr
}

// issue sends one HTTP request and reads the full response body. It returns
// the body, status code and Retry-After header value.
//
// Token lookup and request construction happen outside the breaker: those
// failures are local, not upstream health.
func (c *APIClient) issue(ctx context.Context, op, method, reqURL string, payload []byte) ([]byte, int, string, error) {
	token, err := c.tokens.CurrentAccessToken(ctx)
	if err != nil {
		return nil, 0, "", err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, 0, "", err
	}

	// Set, not Add: exactly one Authorization header per request.
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cafe24-Api-Version", c.apiVersion)

	var respBody []byte
	var status int
	var retryAfter string

	call := func(ctx context.Context) error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		retryAfter = resp.Header.Get("Retry-After")
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		// Server errors count as failures for the breaker; 4xx responses are
		// the caller's problem, not an upstream outage.
		if status >= 500 {
			return fmt.Errorf("upstream returned %d", status)
		}
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil && status >= 500 && respBody != nil {
		// A 5xx is reported through the status code, not as a transport error.
		return respBody, status, retryAfter, nil
	}
	if err != nil {
		return nil, 0, "", err
	}
	return respBody, status, retryAfter, nil
}

// backoff waits before a retry, scaling linearly with the attempt number.
func (c *APIClient) backoff(ctx context.Context, attempt int) error {
	return c.wait(ctx, c.retryBaseDelay*time.Duration(attempt))
}

func (c *APIClient) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &models.APIError{
			Kind:    models.ErrKindTransport,
			Message: "request cancelled while waiting to retry",
			Err:     ctx.Err(),
		}
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter resolves the wait before retrying a rate-limited request.
// The Retry-After header wins when present and parseable as seconds.
func parseRetryAfter(header string, fallback time.Duration) time.Duration {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// DecodeJSON unmarshals an upstream response body, classifying failures as
// decode errors so callers can distinguish them from upstream rejections.
func DecodeJSON(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &models.APIError{
			Kind:    models.ErrKindDecode,
			Op:      op,
			Message: fmt.Sprintf("failed to decode upstream response: %v", err),
			Body:    models.TruncateBody(string(body)),
			Err:     err,
		}
	}
	return nil
}
