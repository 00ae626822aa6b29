// Package retry implements the exponential-backoff retry engine and named
// circuit breakers of §4.5, following the same failure-tracking and
// backoff-calculation shape as the connection-retry logic in MCP server
// lifecycle management.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/dotsetlabs/bellwether/internal/bwerrors"
)

// Policy configures backoff behavior for Do.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// Jitter is the fraction (0..1) of the computed backoff that is
	// randomized away, smoothing out thundering-herd retries from
	// multiple interview workers failing at the same moment.
	Jitter float64
}

// DefaultPolicy mirrors the backoff constants used for MCP server
// reconnection: a 30-second initial interval, doubling, capped at 30
// minutes would be far too slow for interactive retries, so the defaults
// here are scaled for an in-process LLM/MCP call rather than a background
// reconciliation loop.
var DefaultPolicy = Policy{
	MaxAttempts:    4,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	Multiplier:     2.0,
	Jitter:         0.2,
}

// backoffForAttempt calculates InitialBackoff * Multiplier^(attempt-1),
// capped at MaxBackoff, then applies jitter. attempt is 1-indexed.
func (p Policy) backoffForAttempt(attempt int) time.Duration {
	d := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt-1))
	if cap := float64(p.MaxBackoff); d > cap {
		d = cap
	}
	if p.Jitter > 0 {
		delta := d * p.Jitter
		d = d - delta + rand.Float64()*2*delta
	}
	return time.Duration(d)
}

// Do runs op, retrying on retryable failures up to policy.MaxAttempts
// times. A server-provided retry-after hint (bwerrors.RetryAfterOf) takes
// precedence over the computed backoff, capped at policy.MaxBackoff so a
// misbehaving server can't stall a retry past the interview's deadline.
// Do returns the last error once attempts are exhausted or op returns a
// terminal/non-Bellwether error.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if bwerrors.IsCancelled(lastErr) || ctx.Err() != nil {
			return lastErr
		}
		if !bwerrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		wait := policy.backoffForAttempt(attempt)
		if hint, ok := bwerrors.RetryAfterOf(lastErr); ok {
			wait = hint
			if policy.MaxBackoff > 0 && wait > policy.MaxBackoff {
				wait = policy.MaxBackoff
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
