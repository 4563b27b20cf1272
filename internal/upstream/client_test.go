package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = zerolog.New(io.Discard)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "http://localhost:8000/"}, quiet)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/forecast", c.ForecastURL())
	assert.Equal(t, "http://localhost:8000/transfer-plan", c.TransferURL())
	assert.Equal(t, DefaultTimeout, c.http.HTTPClient.Timeout)
	assert.Zero(t, c.http.RetryMax)
}

func TestNewClientCustomPaths(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "https://api.example.com/v2", ForecastPath: "demand", TransferPath: "/plan"}, quiet)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v2/demand", c.ForecastURL())
	assert.Equal(t, "https://api.example.com/v2/plan", c.TransferURL())
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{}, quiet)
	require.Error(t, err)
	_, err = NewClient(Options{BaseURL: "not a url"}, quiet)
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/forecast":
			_, _ = w.Write([]byte(`[{"Zone":"North"}]`))
		case "/transfer-plan":
			_, _ = w.Write([]byte(`[{"SKU":"A"}]`))
		default:
			http.NotFound(w, r)
		}
	})

	c, err := NewClient(Options{BaseURL: srv.URL}, quiet)
	require.NoError(t, err)

	body, err := c.FetchForecast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[{"Zone":"North"}]`, string(body))

	body, err = c.FetchTransfers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[{"SKU":"A"}]`, string(body))
}

func TestFetchNonSuccessStatus(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c, err := NewClient(Options{BaseURL: srv.URL}, quiet)
	require.NoError(t, err)

	_, err = c.FetchForecast(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.Equal(t, srv.URL+"/forecast", te.Endpoint)
	assert.Equal(t, int32(1), hits.Load(), "failures are not retried by default")
}

func TestFetchNotFound(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c, err := NewClient(Options{BaseURL: srv.URL}, quiet)
	require.NoError(t, err)

	_, err = c.FetchTransfers(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchRetriesWhenConfigured(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	c, err := NewClient(Options{BaseURL: srv.URL, RetryMax: 3}, quiet)
	require.NoError(t, err)
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = 5 * time.Millisecond

	body, err := c.FetchForecast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: base, Timeout: time.Second}, quiet)
	require.NoError(t, err)

	_, err = c.FetchForecast(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.NotNil(t, te.Unwrap())
}

func TestFetchTimeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, quiet)
	require.NoError(t, err)

	_, err = c.FetchForecast(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
}

func TestLeveledLogger(t *testing.T) {
	var buf bytes.Buffer
	l := leveledLogger{log: zerolog.New(&buf)}
	l.Warn("retrying", "url", "http://x", "attempt", 2)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"url":"http://x"`)
	assert.Contains(t, buf.String(), `"attempt":2`)
	assert.Contains(t, buf.String(), `"message":"retrying"`)

	buf.Reset()
	l.Info("request", "method", "GET")
	assert.Contains(t, buf.String(), `"level":"debug"`)
}

func TestFetchBodyLimit(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"Zone":"North"}]`)) // 18 bytes
	})

	c, err := NewClient(Options{BaseURL: srv.URL}, quiet)
	require.NoError(t, err)

	c.maxBody = 18
	body, err := c.FetchForecast(context.Background())
	require.NoError(t, err, "a body exactly at the limit is accepted")
	assert.Len(t, body, 18)

	c.maxBody = 17
	_, err = c.FetchForecast(context.Background())
	require.Error(t, err)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
	assert.Contains(t, err.Error(), "exceeds 17 byte limit")
}
