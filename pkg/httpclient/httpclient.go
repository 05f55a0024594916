// Package httpclient contains a small HTTP client that retries transport errors and
// server errors with exponential backoff and hands back the fully read body.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxAttempts     = 3
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 3 * time.Second
)

// ServerError is returned when every attempt ended with a 5xx status.
type ServerError struct {
	StatusCode int
	Body       []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server responded with status %d", e.StatusCode)
}

type Option func(c *RetryableHTTPClient)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RetryableHTTPClient) {
		c.internalClient = hc
	}
}

// WithMaxAttempts bounds the number of requests sent for one call, the first one included.
func WithMaxAttempts(n int) Option {
	return func(c *RetryableHTTPClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the first and the largest wait between two attempts.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(c *RetryableHTTPClient) {
		c.initialInterval = initial
		c.maxInterval = maxInterval
	}
}

type RetryableHTTPClient struct {
	internalClient  *http.Client
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
}

func NewRetryableHTTPClient(opts ...Option) *RetryableHTTPClient {
	c := &RetryableHTTPClient{
		internalClient:  &http.Client{},
		maxAttempts:     defaultMaxAttempts,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches url. Transport errors and 5xx statuses are retried until the attempts are
// exhausted; any other status is returned to the caller on the first attempt.
func (client *RetryableHTTPClient) Get(ctx context.Context, url string) (*http.Response, []byte, error) {
	var body []byte
	var resp *http.Response

	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = client.initialInterval
	backoffPolicy.MaxInterval = client.maxInterval
	backoffPolicy.MaxElapsedTime = 0

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoffPolicy, uint64(client.maxAttempts-1)),
		ctx,
	)

	err := backoff.Retry(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return backoff.Permanent(err)
			}

			var doErr error
			resp, body, doErr = client.do(req)
			if doErr != nil {
				return doErr
			}

			if resp.StatusCode >= http.StatusInternalServerError {
				return &ServerError{StatusCode: resp.StatusCode, Body: body}
			}

			return nil
		},
		policy,
	)

	// All retries failed
	if err != nil {
		return nil, nil, err
	}

	return resp, body, nil
}

func (client *RetryableHTTPClient) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := client.internalClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return resp, body, nil
}
