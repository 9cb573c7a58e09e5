package shared

import "time"

// ExponentialBackoff computes a deterministic capped backoff duration:
// base, 2*base, 4*base, ... never exceeding limit.
func ExponentialBackoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}
