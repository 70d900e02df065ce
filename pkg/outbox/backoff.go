package outbox

import (
	"math/rand"
	"time"
)

// retryDelay doubles from one second per prior attempt, capped at max.
func retryDelay(attempts int, max time.Duration) time.Duration {
	if attempts <= 0 {
		return 0
	}
	if attempts > 30 {
		return max
	}
	d := time.Second << uint(attempts-1)
	if d > max || d <= 0 {
		return max
	}
	return d
}

// jitter draws uniformly from [0, max] to spread retries out.
func jitter(r *rand.Rand, max time.Duration) time.Duration {
	if max <= 0 || r == nil {
		return 0
	}
	return time.Duration(r.Int63n(int64(max) + 1)) //nolint:gosec
}
