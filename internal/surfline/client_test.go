package surfline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surflog/surf-forecast-service/internal/observability"
)

const testToken = "test-token"

// testClient builds a client pointed at a fake proxy with instant backoff.
func testClient(proxyURL string) *Client {
	return &Client{
		baseURL:  DefaultBaseURL,
		proxyURL: proxyURL,
		token:    testToken,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"}),
		metrics: observability.NewMetricsForTesting(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		backoff: func(int) time.Duration { return 0 },
	}
}

func TestClientGet_ProxiesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, testToken, q.Get("token"))
		assert.Equal(t, "false", q.Get("super"))
		assert.Equal(t, DefaultBaseURL+"/kbyg/spots/forecasts/wave?days=1&intervalHours=1&spotId=abc", q.Get("url"))

		_, _ = w.Write([]byte(`{"data":{"wave":[]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Wave(context.Background(), "abc")
	require.NoError(t, err)
}

func TestClientGet_RetriesNetworkThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			// Simulate a mid-flight network error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		_, _ = w.Write([]byte(`{"data":{"tides":[{"timestamp":1,"height":0.5,"type":"LOW"}]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	tides, err := c.Tides(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, tides, 1)
	assert.Equal(t, "LOW", tides[0].Type)
	assert.Equal(t, int32(3), calls.Load(), "expected exactly 2 retries after the initial attempt")
}

func TestClientGet_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"wind":[]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Wind(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientGet_NoRetryOn403(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Wave(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(1), calls.Load(), "4xx other than 429 must not retry")
}

func TestClientGet_ExhaustsRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Wave(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestClientGet_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(srv.URL)
	_, err := c.Wave(ctx, "abc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinearBackoff(t *testing.T) {
	assert.Equal(t, 1*time.Second, linearBackoff(1))
	assert.Equal(t, 2*time.Second, linearBackoff(2))
}
