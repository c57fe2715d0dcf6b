package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Client is a REST client with rate limiting and retries
type Client struct {
	rest            *resty.Client
	limiter         *rate.Limiter
	maxRetries      int
	maxRetryTimeout time.Duration
	initialBackoff  time.Duration
}

// ClientOptions holds options for creating a new Client
type ClientOptions struct {
	BaseURL         string
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
	InitialBackoff  time.Duration
}

// NewClient creates a new REST client with rate limiting
func NewClient(opts ClientOptions) *Client {
	// Set default values if not provided
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryTimeout == 0 {
		opts.MaxRetryTimeout = 30 * time.Second
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = backoff.DefaultInitialInterval
	}

	rest := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		rest:            rest,
		limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		maxRetries:      opts.MaxRetries,
		maxRetryTimeout: opts.MaxRetryTimeout,
		initialBackoff:  opts.InitialBackoff,
	}
}

// Get performs a GET with exponential backoff retries. Every attempt waits
// for the rate limiter. Client errors (4xx other than 429) are not retried.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		resp, err := c.rest.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if statusErr := statusError(resp); statusErr != nil {
			if !statusErr.Retryable() {
				return backoff.Permanent(statusErr)
			}
			return statusErr
		}
		body = resp.Body()
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.InitialInterval = c.initialBackoff
	backoffStrategy.MaxElapsedTime = c.maxRetryTimeout

	policy := backoff.WithContext(backoff.WithMaxRetries(backoffStrategy, uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}

// Post sends body as JSON exactly once. Trades and chat messages are not
// idempotent, so they are never retried.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, err
	}
	if statusErr := statusError(resp); statusErr != nil {
		return nil, statusErr
	}
	return resp.Body(), nil
}

func statusError(resp *resty.Response) *HTTPStatusError {
	if resp.IsSuccess() {
		return nil
	}
	return &HTTPStatusError{StatusCode: resp.StatusCode()}
}

// HTTPStatusError represents an error due to a non-2xx HTTP status code
type HTTPStatusError struct {
	StatusCode int
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-2xx status code: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the request may succeed when repeated
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}
