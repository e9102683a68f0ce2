package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("anthropic", DefaultOptions())

	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("anthropic", DefaultOptions())

	// Four failures keep the breaker closed.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State(), "breaker opened after %d failures", i+1)
		assert.NoError(t, b.Allow())
	}

	// The fifth consecutive failure opens it.
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	err := b.Allow()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New("openai", DefaultOptions())

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, 3, b.ConsecutiveFailures())

	b.RecordSuccess()
	assert.Equal(t, 0, b.ConsecutiveFailures())
	assert.Equal(t, StateClosed, b.State())

	// Four fresh failures must not open the breaker; the count restarted.
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenAfterCooldown(t *testing.T) {
	b := New("gemini", Options{Threshold: 1, Cooldown: 25 * time.Millisecond})

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrOpen)

	time.Sleep(40 * time.Millisecond)

	// First call after cooldown is the trial.
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	// A second caller while the trial is in flight is rejected.
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestBreakerHalfOpenTrialSuccessCloses(t *testing.T) {
	b := New("anthropic", Options{Threshold: 1, Cooldown: 25 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.RecordSuccess()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.ConsecutiveFailures())
	assert.NoError(t, b.Allow())
}

func TestBreakerHalfOpenTrialFailureReopens(t *testing.T) {
	b := New("anthropic", Options{Threshold: 1, Cooldown: 25 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.RecordFailure()

	assert.Equal(t, StateOpen, b.State())
	// Cooldown restarted; the very next call is rejected again.
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestBreakerZeroOptionsFallBackToDefaults(t *testing.T) {
	b := New("openai", Options{})

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}
