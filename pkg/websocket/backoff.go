package websocket

import (
	"math"
	"math/rand/v2"
	"time"
)

// DefaultReconnectDelay is the fixed delay between a lost connection and the next dial.
const DefaultReconnectDelay = time.Second

// floorDelay replaces a non-positive Min.
const floorDelay = 100 * time.Millisecond

// DefaultBackoff provides the reconnect default: a fixed one second delay, retried forever.
func DefaultBackoff() Backoff {
	return FixedBackoff(DefaultReconnectDelay)
}

// FixedBackoff returns a policy that waits d before every attempt.
func FixedBackoff(d time.Duration) Backoff {
	return Backoff{Min: d, Max: d, Factor: 1}
}

// ExponentialBackoff doubles the wait from base on every failed attempt until it reaches ceiling.
func ExponentialBackoff(base, ceiling time.Duration) Backoff {
	return Backoff{Min: base, Max: ceiling, Factor: 2}
}

// IsZero reports whether no field of the policy is set.
func (b Backoff) IsZero() bool {
	return b == Backoff{}
}

// Next returns the wait before the given reconnect attempt, counted from 1.
//
// Attempt n waits Min*Factor^(n-1), never more than Max. A Factor of exactly 1 keeps the
// wait fixed; a Factor below 1 means 2. Jitter then moves the wait uniformly within
// ±Jitter of itself.
func (b Backoff) Next(attempt int) time.Duration {
	base := b.Min
	if base <= 0 {
		base = floorDelay
	}
	ceiling := max(b.Max, base)
	factor := b.Factor
	if factor < 1 {
		factor = 2
	}

	wait := base
	if attempt > 1 && factor > 1 {
		grown := float64(base) * math.Pow(factor, float64(attempt-1))
		if grown >= float64(ceiling) {
			wait = ceiling
		} else {
			wait = time.Duration(grown)
		}
	}
	return b.spread(wait)
}

func (b Backoff) spread(wait time.Duration) time.Duration {
	if b.Jitter <= 0 {
		return wait
	}
	span := time.Duration(float64(wait) * min(b.Jitter, 1))
	return wait - span + rand.N(2*span+1)
}
