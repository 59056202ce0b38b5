// Package retry decides when a dropped sync connection is dialed again.
//
// Only the session is re-established. Calls that were in flight when the
// connection dropped fail with constants.ErrConnectionClosed and are never
// replayed.
package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Retryer yields the delay before reconnect attempt number attempt (0-based).
// The boolean is false once no further attempt should be made.
type Retryer interface {
	NextDelay(attempt int, lastErr error) (time.Duration, bool)
	// Reset is called after a successful reconnect.
	Reset()
}

// ExponentialBackoffRetryer multiplies the delay on every attempt, up to MaxDelay.
type ExponentialBackoffRetryer struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// MaxRetries of 0 retries forever.
	MaxRetries int
	// JitterFactor spreads each delay by up to ±JitterFactor of its value.
	JitterFactor float64
}

func NewExponentialBackoffRetryer() *ExponentialBackoffRetryer {
	return &ExponentialBackoffRetryer{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}
}

func (r *ExponentialBackoffRetryer) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}

	delay := float64(r.InitialDelay) * math.Pow(r.Multiplier, float64(attempt))
	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	if r.JitterFactor > 0 {
		//nolint:gosec // jitter is not security sensitive
		delay += delay * r.JitterFactor * (2*rand.Float64() - 1)
		if delay < 0 {
			delay = float64(r.InitialDelay)
		}
	}

	return time.Duration(delay), true
}

func (r *ExponentialBackoffRetryer) Reset() {}

// FixedDelayRetryer waits the same Delay before every attempt.
type FixedDelayRetryer struct {
	Delay time.Duration
	// MaxRetries of 0 retries forever.
	MaxRetries int
}

func NewFixedDelayRetryer(delay time.Duration, maxRetries int) *FixedDelayRetryer {
	return &FixedDelayRetryer{
		Delay:      delay,
		MaxRetries: maxRetries,
	}
}

func (r *FixedDelayRetryer) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if r.MaxRetries > 0 && attempt >= r.MaxRetries {
		return 0, false
	}
	return r.Delay, true
}

func (r *FixedDelayRetryer) Reset() {}
