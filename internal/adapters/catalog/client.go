// Package catalog fetches and decodes the public catalogs the planner draws
// targets and field-of-view companions from. All outbound HTTP goes through
// BaseClient, which adds circuit breaking and retries with backoff.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultUserAgent = "tofo-planner/1.0"
	maxBodyBytes     = 256 << 20
)

// RetryPolicy configures the retry behavior for the BaseClient.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns defaults suited to slow public catalogs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// BaseClient wraps an *http.Client and a circuit breaker.
type BaseClient struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	userAgent   string
	sleepFn     func(ctx context.Context, d time.Duration) error
}

// BaseClientOption is a functional option for configuring a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc overrides the sleep used between retries.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) BaseClientOption {
	return func(c *BaseClient) {
		if fn != nil {
			c.sleepFn = fn
		}
	}
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) BaseClientOption {
	return func(c *BaseClient) { c.retryPolicy = p }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) BaseClientOption {
	return func(c *BaseClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewBaseClient creates a BaseClient whose breaker is named breakerName.
func NewBaseClient(httpClient *http.Client, breakerName string, opts ...BaseClientOption) *BaseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	bc := &BaseClient{
		client:      httpClient,
		breaker:     cb,
		retryPolicy: DefaultRetryPolicy(),
		userAgent:   defaultUserAgent,
		sleepFn:     sleepContext,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do executes req through the breaker, retrying 429 and 5xx responses.
// Other responses are returned as-is; the caller closes the body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req.Header.Set("User-Agent", c.userAgent)

	var (
		lastResp *http.Response
		lastErr  error
	)
	maxAttempts := 1 + c.retryPolicy.MaxRetries
	for attempt := range maxAttempts {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, &StatusError{URL: req.URL.Redacted(), Code: r.StatusCode}
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < maxAttempts-1 {
			if serr := c.sleepFn(ctx, c.computeBackoff(attempt, resp)); serr != nil {
				lastErr = serr
				break
			}
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, c.mapError(lastErr)
}

// Get fetches url and returns the body of a 2xx response.
func (c *BaseClient) Get(ctx context.Context, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: req.URL.Redacted(), Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	return body, nil
}

// computeBackoff honors Retry-After when present, otherwise uses exponential
// backoff with jitter clamped to [MinWait, MaxWait].
func (c *BaseClient) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				return min(time.Duration(seconds)*time.Second, c.retryPolicy.MaxWait)
			}
			if t, err := http.ParseTime(retryAfter); err == nil {
				wait := time.Until(t)
				if wait <= 0 {
					return c.retryPolicy.MinWait
				}
				return min(wait, c.retryPolicy.MaxWait)
			}
		}
	}

	base := min(float64(c.retryPolicy.MinWait)*math.Pow(2, float64(attempt)), float64(c.retryPolicy.MaxWait))
	minWait := float64(c.retryPolicy.MinWait)
	if base <= minWait {
		return c.retryPolicy.MinWait
	}
	return time.Duration(minWait + rand.Float64()*(base-minWait))
}

func (c *BaseClient) mapError(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrUpstream):
		return fmt.Errorf("after retries: %w", err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}
