package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns defaults suited to short lookups against another
// internal service.
func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 32,
	}
}

// Client wraps http.Client with retries on transport errors and 5xx
// responses. Only requests without a body (or with GetBody set) are retried.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a client with its own pooled transport.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config:     cfg,
	}
}

func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryWaitMin
	b.MaxInterval = c.config.RetryWaitMax
	return b
}

// Do executes req, retrying transport failures and 5xx responses other than
// 501. The final 5xx response is returned to the caller unchanged.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	attempts := 0
	canRetry := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		attempts++
		attempt := req.Clone(ctx)
		if attempts > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			attempt.Body = body
		}

		resp, err := c.httpClient.Do(attempt)
		if err != nil {
			if !canRetry || !isRetryableError(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if canRetry && resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented &&
			attempts <= c.config.MaxRetries {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("server returned %d", resp.StatusCode)
		}
		return resp, nil
	},
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(uint(c.config.MaxRetries+1)),
	)
	if err != nil {
		return nil, fmt.Errorf("http request failed after %d attempts: %w", attempts, err)
	}
	return resp, nil
}

// Get performs an HTTP GET request with retry.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
