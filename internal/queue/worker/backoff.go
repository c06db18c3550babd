package worker

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
	maxJitter   = 250 * time.Millisecond
)

// ExponentialBackoff returns the delay before retry number attempt (0-based):
// 2s, 4s, 8s ... capped at 5m, plus up to 250ms of jitter.
func ExponentialBackoff(attempt int) time.Duration {
	return backoff(attempt, backoffBase, backoffCap) + time.Duration(rand.Int64N(int64(maxJitter)))
}

func backoff(attempt int, base, capDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(base) * math.Pow(2, float64(attempt))
	if delay > float64(capDelay) {
		return capDelay
	}
	return time.Duration(delay)
}
