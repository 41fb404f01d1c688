package reviewer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anishi1222/reviewcrew/pkg/audit"
	"github.com/anishi1222/reviewcrew/pkg/resilience/breaker"
	"github.com/anishi1222/reviewcrew/pkg/resilience/watchdog"
	"github.com/anishi1222/reviewcrew/pkg/review"
	"github.com/anishi1222/reviewcrew/pkg/transport"
)

func newTestReviewer(t *testing.T, open transport.OpenSession, rctx *review.ReviewContext) *Reviewer {
	t.Helper()
	breakers := breaker.NewRegistry(nil)
	scheduler := watchdog.NewScheduler()
	t.Cleanup(scheduler.Shutdown)
	auditLog := audit.New(slog.Default())
	agent := review.AgentConfig{Name: "security", ModelID: "test-model", ReviewPasses: 1}
	return New(agent, rctx, open, breakers, scheduler, auditLog)
}

func TestReviewPassesSucceedsOnFirstAttempt(t *testing.T) {
	ft := transport.NewFakeTransport(transport.FakeScript{Chunks: []string{"### 1. Finding\n\n| **Priority** | Low |\n\nbody"}})
	rctx := &review.ReviewContext{AttemptTimeout: time.Second, IdleTimeout: time.Second, MaxRetries: 1}
	r := newTestReviewer(t, ft.Open, rctx)

	results := r.ReviewPasses(context.Background(), review.Repository{Slug: "o/r"}, 1)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Contains(t, results[0].Content, "Finding")
}

func TestReviewPassesZeroCountReturnsNil(t *testing.T) {
	ft := transport.NewFakeTransport(transport.FakeScript{Chunks: []string{"x"}})
	rctx := &review.ReviewContext{AttemptTimeout: time.Second, IdleTimeout: time.Second, MaxRetries: 1}
	r := newTestReviewer(t, ft.Open, rctx)

	results := r.ReviewPasses(context.Background(), review.Repository{Slug: "o/r"}, 0)
	assert.Nil(t, results)
}

func TestReviewPassesRetriesOnEmptyResponseThenSucceeds(t *testing.T) {
	ft := transport.NewFakeTransport(
		transport.FakeScript{Chunks: []string{}}, // empty -> transient, retried
		transport.FakeScript{Chunks: []string{"### 1. Finding\n\n| **Priority** | Low |\n\nbody"}},
	)
	rctx := &review.ReviewContext{AttemptTimeout: time.Second, IdleTimeout: time.Second, MaxRetries: 1}
	r := newTestReviewer(t, ft.Open, rctx)

	results := r.ReviewPasses(context.Background(), review.Repository{Slug: "o/r"}, 1)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 2, ft.CallCount())
}

func TestReviewPassesSessionOpenFailureRetries(t *testing.T) {
	ft := transport.NewFakeTransport(
		transport.FakeScript{Err: assert.AnError},
		transport.FakeScript{Chunks: []string{"### 1. Finding\n\n| **Priority** | Low |\n\nbody"}},
	)
	rctx := &review.ReviewContext{AttemptTimeout: time.Second, IdleTimeout: time.Second, MaxRetries: 3}
	r := newTestReviewer(t, ft.Open, rctx)

	results := r.ReviewPasses(context.Background(), review.Repository{Slug: "o/r"}, 1)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success, "session establishment failure is transient and must be retried")
	assert.Equal(t, 2, ft.CallCount())
}

func TestReviewPassesFatalStreamErrorDoesNotRetry(t *testing.T) {
	ft := transport.NewFakeTransport(transport.FakeScript{
		Chunks: []string{"partial"},
		Fail:   &transport.Event{Kind: transport.EventError, ErrKind: transport.ErrorKindFatal, Message: "authentication failed"},
	})
	rctx := &review.ReviewContext{AttemptTimeout: time.Second, IdleTimeout: time.Second, MaxRetries: 3}
	r := newTestReviewer(t, ft.Open, rctx)

	results := r.ReviewPasses(context.Background(), review.Repository{Slug: "o/r"}, 1)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, 1, ft.CallCount())
}

func TestReviewPassesAttemptDeadlineBoundsStalledStream(t *testing.T) {
	ft := transport.NewFakeTransport(transport.FakeScript{Stall: true})
	rctx := &review.ReviewContext{AttemptTimeout: 10 * time.Millisecond, IdleTimeout: time.Second, MaxRetries: 0}
	r := newTestReviewer(t, ft.Open, rctx)

	start := time.Now()
	results := r.ReviewPasses(context.Background(), review.Repository{Slug: "o/r"}, 1)
	elapsed := time.Since(start)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Less(t, elapsed, 2*time.Second, "attempt deadline must bound the call even when the stream stalls forever")
}

func TestReviewPassesWarnsViaAuditLogWhenWatchdogUnavailable(t *testing.T) {
	var buf bytes.Buffer
	auditLog := audit.New(slog.New(slog.NewTextHandler(&buf, nil)))

	scheduler := watchdog.NewScheduler()
	scheduler.Shutdown()

	ft := transport.NewFakeTransport(transport.FakeScript{Chunks: []string{"### 1. Finding\n\n| **Priority** | Low |\n\nbody"}})
	rctx := &review.ReviewContext{AttemptTimeout: time.Second, IdleTimeout: time.Second, MaxRetries: 0}
	agent := review.AgentConfig{Name: "security", ModelID: "test-model", ReviewPasses: 1}
	r := New(agent, rctx, ft.Open, breaker.NewRegistry(nil), scheduler, auditLog)

	results := r.ReviewPasses(context.Background(), review.Repository{Slug: "o/r"}, 1)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Contains(t, buf.String(), "watchdog scheduler unavailable")
}
