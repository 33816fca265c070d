package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAndCloses(t *testing.T) {
	b := New("upstream", WithFailureThreshold(3), WithSuccessThreshold(2))
	assert.Equal(t, "upstream", b.Name())
	assert.Equal(t, StateClosed, b.State())

	// Two failures stay under the threshold.
	for range 2 {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback)
		assert.False(t, change.Opened)
	}

	// The third opens exactly once.
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened)

	// One success is not enough to close, the second is.
	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreakerOutcomesResetOpposingCount(t *testing.T) {
	b := New("upstream", WithFailureThreshold(2), WithSuccessThreshold(2))

	// A success wipes accumulated failures.
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	// A failure while open wipes accumulated successes.
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreakerReset(t *testing.T) {
	b := New("upstream", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}
