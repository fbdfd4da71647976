// Package httpretry wraps an HTTP client with exponential backoff and
// jitter for calls to external feeds and provider APIs.
package httpretry

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Doer executes HTTP requests. Both *http.Client and *Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client retries transient failures with exponential backoff and full jitter.
type Client struct {
	inner      Doer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// New wraps the given Doer. A nil inner client gets a 30s-timeout
// http.Client; maxRetries <= 0 defaults to 3.
func New(inner Doer, maxRetries int) *Client {
	if inner == nil {
		inner = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do executes the request, retrying on 429/5xx and transient network
// errors. Client errors and context cancellation are never retried.
// The final attempt's response is returned as-is so the caller can
// inspect the status and body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			delay := c.delay(attempt)
			log.Printf("[httpretry] retry %d/%d for %s %s%s after %s",
				attempt, c.maxRetries, req.Method, req.URL.Host, req.URL.Path, delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := c.inner.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == c.maxRetries {
			return resp, nil
		}

		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// delay is exponential backoff with full jitter, floored at 100ms.
func (c *Client) delay(attempt int) time.Duration {
	exp := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
	if exp > float64(c.maxDelay) {
		exp = float64(c.maxDelay)
	}
	jittered := time.Duration(rand.Float64() * exp)
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
