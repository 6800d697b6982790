// Package backoff implements capped exponential retry shared by the RMS
// subscription, event listener setup and the reconnect supervisor.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted is returned by Retry when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes a retry schedule. Delay for attempt n (zero based) is
// Base * Factor^n, capped at Max. Attempts <= 0 means retry until the context
// ends.
type Policy struct {
	Base     time.Duration
	Factor   float64
	Max      time.Duration
	Attempts int
}

// RMS is the schedule for subscribing to the audio level stream.
var RMS = Policy{Base: 200 * time.Millisecond, Factor: 1.5, Max: 3 * time.Second, Attempts: 10}

// Reconnect is the schedule for re-establishing the backend connection.
var Reconnect = Policy{Base: time.Second, Factor: 2, Max: 30 * time.Second}

// Delay returns the wait before retrying after the given number of failures.
func (p Policy) Delay(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.Base) * math.Pow(factor, float64(failures))
	if p.Max > 0 && (d > float64(p.Max) || math.IsInf(d, 1)) {
		return p.Max
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
// fn receives the zero-based attempt number. A pending wait is abandoned as
// soon as ctx is cancelled so no timer outlives the caller.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error
	for attempt := 0; p.Attempts <= 0 || attempt < p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
		if p.Attempts > 0 && attempt == p.Attempts-1 {
			break
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.Attempts, lastErr)
}
