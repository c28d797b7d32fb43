package transport

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles DoWithRetry's retry loop so repeated 429 responses
// back off instead of hammering the provider, grounded on the AIMD token
// bucket in goa-ai's model/middleware.AdaptiveRateLimiter: a rate.Limiter
// whose burst/rate is halved on a 429 and recovered gradually on success,
// scaled down here to a single process-local limiter (no cluster
// coordination — out of scope for this transport layer).
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current float64
	min     float64
	max     float64
	step    float64
}

// NewRateLimiter builds a limiter starting at requestsPerSecond, never
// backing off below 10% of that rate and recovering by 5% of it per
// success.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	min := requestsPerSecond * 0.1
	if min < 0.1 {
		min = 0.1
	}
	step := requestsPerSecond * 0.05
	if step < 0.05 {
		step = 0.05
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1),
		current: requestsPerSecond,
		min:     min,
		max:     requestsPerSecond,
		step:    step,
	}
}

// Wait blocks until the limiter admits one request.
func (l *RateLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// ObserveTooManyRequests halves the limiter's rate (never below the floor).
func (l *RateLimiter) ObserveTooManyRequests() {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.current * 0.5
	if next < l.min {
		next = l.min
	}
	l.current = next
	l.limiter.SetLimit(rate.Limit(next))
	l.limiter.SetBurst(int(next) + 1)
}

// ObserveSuccess nudges the limiter's rate back toward its ceiling.
func (l *RateLimiter) ObserveSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.current + l.step
	if next > l.max {
		next = l.max
	}
	if next == l.current {
		return
	}
	l.current = next
	l.limiter.SetLimit(rate.Limit(next))
	l.limiter.SetBurst(int(next) + 1)
}
