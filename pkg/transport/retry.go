package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DoWithRetry retries Do on transport errors and 5xx statuses using a fixed
// inter-attempt delay, per §4.2 ("Retries are performed only on transport
// errors and 5xx statuses, with a fixed inter-attempt delay").
func (c *Client) DoWithRetry(ctx context.Context, req Request) Response {
	delay := req.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxAttempts := req.RetryCount
	if maxAttempts < 0 {
		maxAttempts = 0
	}

	var last Response
	operation := func() (Response, error) {
		if c.RateLimiter != nil {
			if err := c.RateLimiter.Wait(ctx); err != nil {
				return Response{Err: err}, err
			}
		}

		resp := c.Do(ctx, req)
		last = resp

		// 429 is a 4xx and, per §4.2, not itself a retry trigger — it is
		// surfaced to the caller like any other status. The limiter still
		// backs off so a caller that does retry at a higher layer (a
		// provider adapter honoring Retry-After) does not immediately
		// re-hammer the provider.
		if c.RateLimiter != nil {
			if resp.Err == nil && resp.StatusCode == 429 {
				c.RateLimiter.ObserveTooManyRequests()
			} else if resp.Err == nil && resp.StatusCode < 500 {
				c.RateLimiter.ObserveSuccess()
			}
		}

		if resp.Err != nil {
			return resp, fmt.Errorf("transport error: %w", resp.Err)
		}
		if resp.StatusCode >= 500 {
			return resp, fmt.Errorf("server error: %d", resp.StatusCode)
		}
		return resp, nil
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(uint(maxAttempts+1)),
	)
	if err != nil {
		return last
	}
	return result
}
