package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newTestBreaker(threshold int, coolOff time.Duration) (*Breaker, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	b := New(WithThreshold(threshold), WithCoolOff(coolOff))
	b.nowFn = func() time.Time { return now }
	return b, &now
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	opened := 0
	b := New(WithThreshold(3), WithOnOpen(func() { opened++ }))

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.Record(errBoom)
	}
	require.NoError(t, b.Allow())
	b.Record(errBoom)

	assert.ErrorIs(t, b.Allow(), ErrOpen)
	assert.Equal(t, 1, opened)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := New(WithThreshold(2))

	b.Record(errBoom)
	b.Record(nil)
	b.Record(errBoom)

	assert.NoError(t, b.Allow())
}

func TestBreaker_ProbesAfterCoolOff(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(1, 10*time.Second)
	b.Record(errBoom)
	require.ErrorIs(t, b.Allow(), ErrOpen)

	*now = now.Add(11 * time.Second)

	// One probe admitted, concurrent calls still rejected.
	require.NoError(t, b.Allow())
	require.ErrorIs(t, b.Allow(), ErrOpen)

	// Successful probe closes the breaker.
	b.Record(nil)
	assert.NoError(t, b.Allow())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(1, 10*time.Second)
	b.Record(errBoom)

	*now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	b.Record(errBoom)

	require.ErrorIs(t, b.Allow(), ErrOpen)

	// And the cool-off starts over from the failed probe.
	*now = now.Add(9 * time.Second)
	require.ErrorIs(t, b.Allow(), ErrOpen)
	*now = now.Add(2 * time.Second)
	assert.NoError(t, b.Allow())
}
