package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New(review.OpReview, Config{Threshold: 3, OpenDuration: time.Minute, BackoffFactor: 2, MaxOpenDuration: time.Hour})

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Admit())
		b.Record(false)
	}

	assert.Equal(t, review.BreakerOpen, b.Snapshot().Phase)
	err := b.Admit()
	assert.Error(t, err)
	var openErr ErrOpen
	assert.ErrorAs(t, err, &openErr)
}

func TestBreakerResetsOnSuccessWhileClosed(t *testing.T) {
	b := New(review.OpReview, DefaultConfig())
	b.Record(false)
	b.Record(false)
	b.Record(true)
	assert.Equal(t, 0, b.Snapshot().ConsecutiveFailures)
	assert.Equal(t, review.BreakerClosed, b.Snapshot().Phase)
}

func TestBreakerHalfOpenAdmitsExactlyOneProbe(t *testing.T) {
	b := New(review.OpReview, Config{Threshold: 1, OpenDuration: time.Millisecond, BackoffFactor: 2, MaxOpenDuration: time.Second})

	require.NoError(t, b.Admit())
	b.Record(false) // opens

	time.Sleep(5 * time.Millisecond)

	require.NoError(t, b.Admit()) // transitions to half-open, admits this caller
	err := b.Admit()              // second concurrent caller must be rejected
	assert.Error(t, err)
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	b := New(review.OpReview, Config{Threshold: 1, OpenDuration: time.Millisecond, BackoffFactor: 2, MaxOpenDuration: time.Second})

	require.NoError(t, b.Admit())
	b.Record(false)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, b.Admit())
	b.Record(true)

	assert.Equal(t, review.BreakerClosed, b.Snapshot().Phase)
}

func TestBreakerHalfOpenFailureExtendsBackoff(t *testing.T) {
	cfg := Config{Threshold: 1, OpenDuration: 10 * time.Millisecond, BackoffFactor: 4, MaxOpenDuration: time.Hour}
	b := New(review.OpReview, cfg)

	require.NoError(t, b.Admit())
	b.Record(false)
	time.Sleep(15 * time.Millisecond)

	require.NoError(t, b.Admit())
	b.Record(false) // half-open failure, should extend the window

	snap := b.Snapshot()
	assert.Equal(t, review.BreakerOpen, snap.Phase)
	assert.Equal(t, 1, snap.ConsecutiveHalfOpenFails)

	// Original OpenDuration would have elapsed again by now, but the
	// backoff-extended window should not have.
	time.Sleep(15 * time.Millisecond)
	err := b.Admit()
	assert.Error(t, err, "backoff-extended window should still be open")
}

func TestRegistryLazilyCreatesDefault(t *testing.T) {
	r := NewRegistry(map[review.OperationClass]Config{})
	b := r.Get(review.OpSummary)
	require.NotNil(t, b)
	assert.Equal(t, review.OpSummary, b.Snapshot().Class)

	// Same instance returned on subsequent lookups.
	assert.Same(t, b, r.Get(review.OpSummary))
}
