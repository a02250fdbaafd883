package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinear(t *testing.T) {
	base := 5 * time.Second
	max := time.Minute

	assert.Equal(t, 5*time.Second, Linear(base, max, 1))
	assert.Equal(t, 10*time.Second, Linear(base, max, 2))
	assert.Equal(t, 15*time.Second, Linear(base, max, 3))
	assert.Equal(t, base, Linear(base, max, 0), "attempt floor is 1")
	assert.Equal(t, max, Linear(base, max, 100), "capped at max")
}

func TestLinearMonotonic(t *testing.T) {
	base := 250 * time.Millisecond
	max := 10 * time.Second

	prev := time.Duration(0)
	for attempt := 1; attempt <= 50; attempt++ {
		d := Linear(base, max, attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestExponentialJitterBounds(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second

	for attempt := 1; attempt <= 6; attempt++ {
		expected := base << (attempt - 1)
		if expected > max {
			expected = max
		}
		d := ExponentialJitter(base, max, attempt)
		assert.GreaterOrEqual(t, d, time.Duration(float64(expected)*0.8), "attempt %d", attempt)
		assert.LessOrEqual(t, d, time.Duration(float64(expected)*1.2), "attempt %d", attempt)
	}
}

func TestExponentialJitterAttemptFloor(t *testing.T) {
	base := 100 * time.Millisecond
	max := 10 * time.Second

	d := ExponentialJitter(base, max, 0)
	assert.GreaterOrEqual(t, d, time.Duration(float64(base)*0.8))
	assert.LessOrEqual(t, d, time.Duration(float64(base)*1.2))
}
