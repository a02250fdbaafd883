package backoff

import (
	"math"
	"time"
)

// Linear grows the delay by base per attempt: base, 2*base, 3*base, capped
// at max.
func Linear(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	d := time.Duration(attempt) * base
	if d > max || d < 0 {
		return max
	}
	return d
}

// ExponentialJitter doubles per attempt with +/- 20% jitter, capped at max
// before the jitter is applied.
func ExponentialJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	mul := math.Pow(2, float64(attempt-1))
	d := min(time.Duration(float64(base)*mul), max)

	j := time.Duration(float64(d) * 0.2)
	if j <= 0 {
		return d
	}
	return d - j + time.Duration(time.Now().UnixNano()%int64(2*j))
}
