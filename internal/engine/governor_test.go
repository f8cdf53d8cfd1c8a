package engine

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestBackoffSchedule(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:  3,
		BackoffBase: time.Second,
		BackoffMax:  10 * time.Second,
	}

	assert.Equal(t, time.Second, policy.Backoff(0))
	assert.Equal(t, 2*time.Second, policy.Backoff(1))
	assert.Equal(t, 4*time.Second, policy.Backoff(2))
	assert.Equal(t, 8*time.Second, policy.Backoff(3))
	assert.Equal(t, 10*time.Second, policy.Backoff(4))
	assert.Equal(t, 10*time.Second, policy.Backoff(20))
}

func TestBackoffZeroBase(t *testing.T) {
	policy := RetryPolicy{BackoffBase: 0, BackoffMax: 10 * time.Second}
	assert.Equal(t, time.Duration(0), policy.Backoff(0))
	assert.Equal(t, time.Duration(0), policy.Backoff(5))
}

// TestBackoffProperty checks that for any policy the backoff sequence is
// nondecreasing in the attempt number and never exceeds the cap.
func TestBackoffProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("backoff is nondecreasing and capped", prop.ForAll(
		func(baseMs int, capMs int, attempt int) bool {
			policy := RetryPolicy{
				BackoffBase: time.Duration(baseMs) * time.Millisecond,
				BackoffMax:  time.Duration(capMs) * time.Millisecond,
			}

			cur := policy.Backoff(attempt)
			next := policy.Backoff(attempt + 1)
			if next < cur {
				return false
			}
			return cur <= policy.BackoffMax
		},
		gen.IntRange(1, 5000),
		gen.IntRange(5000, 60000),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}

func TestBudgetAccounting(t *testing.T) {
	b := &budget{policy: RetryPolicy{
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
		BackoffMax:  4 * time.Millisecond,
	}}

	assert.False(t, b.exhausted())
	assert.Equal(t, time.Millisecond, b.next())
	assert.False(t, b.exhausted())
	assert.Equal(t, 2*time.Millisecond, b.next())
	assert.True(t, b.exhausted())
	assert.Equal(t, 2, b.used)
}
