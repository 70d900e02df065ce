package outbox

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	max := 60 * time.Second
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 0},
		{attempts: 1, want: 1 * time.Second},
		{attempts: 2, want: 2 * time.Second},
		{attempts: 3, want: 4 * time.Second},
		{attempts: 7, want: 60 * time.Second}, // cap
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, retryDelay(tc.attempts, max), "attempts=%d", tc.attempts)
	}
}

// The delay must never regress or leave [0, max], including attempt
// counts large enough to overflow the shift.
func TestRetryDelayMonotone(t *testing.T) {
	t.Parallel()

	max := 60 * time.Second
	prev := time.Duration(0)
	for attempts := 0; attempts <= 70; attempts++ {
		d := retryDelay(attempts, max)
		require.GreaterOrEqual(t, d, prev, "attempts=%d", attempts)
		require.LessOrEqual(t, d, max, "attempts=%d", attempts)
		prev = d
	}
}

func TestJitterDeterministic(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(1))
	max := 200 * time.Millisecond

	got := jitter(r, max)
	require.GreaterOrEqual(t, got, time.Duration(0))
	require.LessOrEqual(t, got, max)

	r2 := rand.New(rand.NewSource(1))
	assert.Equal(t, got, jitter(r2, max))
}

func TestJitterZeroWithoutSource(t *testing.T) {
	t.Parallel()

	assert.Zero(t, jitter(nil, 200*time.Millisecond))
	assert.Zero(t, jitter(rand.New(rand.NewSource(1)), 0))
}
