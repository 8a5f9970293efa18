package surfline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/surflog/surf-forecast-service/internal/observability"
)

const (
	// DefaultBaseURL is the public Surfline API host.
	DefaultBaseURL = "https://services.surfline.com"

	// DefaultProxyURL is the scraping proxy every request is routed through.
	// Surfline blocks many data-center source IPs, so direct calls from a
	// hosted deployment tend to 403.
	DefaultProxyURL = "https://api.scrape.do"

	maxAttempts = 3
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")

	// ErrUpstream is wrapped around any provider failure that survived the
	// retry policy.
	ErrUpstream = errors.New("surfline request failed")
)

// statusError marks a non-retryable HTTP status from the upstream.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

// Client performs outbound calls to Surfline through the scraping proxy,
// with sequential retries, linear backoff, and a circuit breaker.
type Client struct {
	baseURL    string
	proxyURL   string
	token      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger

	// backoff maps a completed attempt number (1-based) to the wait before
	// the next attempt. Overridable in tests.
	backoff func(attempt int) time.Duration
}

// NewClient creates a Surfline client. The token authenticates against the
// scraping proxy, not Surfline itself.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "surfline",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL:    DefaultBaseURL,
		proxyURL:   DefaultProxyURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
		metrics:    metrics,
		logger:     logger,
		backoff:    linearBackoff,
	}
}

// linearBackoff waits n seconds after the n-th failed attempt: 1s, then 2s.
func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * time.Second
}

// get fetches path on the Surfline API, routed through the proxy. The
// endpoint label is only used for logging and metrics. Retries up to
// maxAttempts times on network errors, 5xx, and 429; other 4xx responses
// fail immediately.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	proxied := url.Values{
		"token": {c.token},
		"url":   {target},
		"super": {"false"},
	}
	requestURL := c.proxyURL + "/?" + proxied.Encode()

	start := time.Now()
	defer func() {
		c.metrics.ProviderDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt > 1 {
			c.metrics.ProviderRetries.Inc()
			c.logger.Info("retrying surfline request", "endpoint", endpoint, "attempt", attempt)
		}

		body, err := c.doOnce(ctx, requestURL)
		if err == nil {
			c.metrics.ProviderRequests.WithLabelValues(endpoint, "success").Inc()
			return body, nil
		}

		c.metrics.ProviderRequests.WithLabelValues(endpoint, "error").Inc()

		if !retryable(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, endpoint, err)
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		delay := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			delay.Stop()
			return nil, ctx.Err()
		case <-delay.C:
		}
	}

	return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrUpstream, endpoint, maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, requestURL string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			return nil, errServerError
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &statusError{code: resp.StatusCode}
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, errors.New("unexpected result type from circuit breaker")
	}
	return body, nil
}

// retryable reports whether an attempt error is worth another try. Network
// errors and timeouts retry; so do 429 and 5xx. Any other upstream status,
// and an open circuit, fail fast.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return true
}
