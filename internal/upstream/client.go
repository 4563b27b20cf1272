// Package upstream fetches the raw forecast and transfer-plan payloads from
// the optimization service.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	DefaultForecastPath = "/forecast"
	DefaultTransferPath = "/transfer-plan"
	DefaultTimeout      = 15 * time.Second
	maxBodyBytes        = 32 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	ForecastPath string
	TransferPath string
	Timeout      time.Duration
	RetryMax     int // 0 disables retries
}

// TransportError reports an unreachable endpoint or a non-success status.
type TransportError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the upstream JSON endpoints.
type Client struct {
	forecastURL string
	transferURL string
	http        *retryablehttp.Client
	maxBody     int64
	log         zerolog.Logger
}

// NewClient creates a Client. BaseURL is required; other options default.
func NewClient(opts Options, log zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parsing upstream base URL: %w", err)
	}
	if opts.ForecastPath == "" {
		opts.ForecastPath = DefaultForecastPath
	}
	if opts.TransferPath == "" {
		opts.TransferPath = DefaultTransferPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}

	log = log.With().Str("component", "upstream").Logger()

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = opts.Timeout
	rc.RetryMax = opts.RetryMax
	rc.Logger = leveledLogger{log: log}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		forecastURL: base + "/" + strings.TrimLeft(opts.ForecastPath, "/"),
		transferURL: base + "/" + strings.TrimLeft(opts.TransferPath, "/"),
		http:        rc,
		maxBody:     maxBodyBytes,
		log:         log,
	}, nil
}

// ForecastURL returns the forecast endpoint.
func (c *Client) ForecastURL() string { return c.forecastURL }

// TransferURL returns the transfer-plan endpoint.
func (c *Client) TransferURL() string { return c.transferURL }

// FetchForecast returns the raw forecast payload.
func (c *Client) FetchForecast(ctx context.Context) ([]byte, error) {
	return c.get(ctx, c.forecastURL)
}

// FetchTransfers returns the raw transfer-plan payload.
func (c *Client) FetchTransfers(ctx context.Context) ([]byte, error) {
	return c.get(ctx, c.transferURL)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBody))
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("response body exceeds %d byte limit", c.maxBody)}
	}

	c.log.Debug().
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Fetched payload")
	return body, nil
}
