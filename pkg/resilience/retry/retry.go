// Package retry implements the retry policy (C5): Equal-Jitter backoff
// between attempts, with caller-supplied transient/fatal classification.
// The backoff shape and math/rand/v2 source follow the teacher's
// mcp.Client.CallTool and queue.Worker jittered-backoff idiom.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Classification is the caller's judgment about one failure.
type Classification struct {
	Transient bool
	Fatal     bool
}

// Transient builds a Classification for a retryable failure.
func Transient() Classification { return Classification{Transient: true} }

// Fatal builds a Classification for a non-retryable failure.
func Fatal() Classification { return Classification{Fatal: true} }

// Classify inspects an error returned by fn.
type Classify func(err error) Classification

// Config tunes the backoff schedule.
type Config struct {
	MaxAttempts int // additional attempts beyond the first; total calls <= MaxAttempts+1
	Base        time.Duration
}

// equalJitterWait computes the Equal-Jitter backoff for the given attempt
// (1-indexed): base * 2^(attempt-1) / 2 + rand(0, base * 2^(attempt-1) / 2).
// The minimum wait is never zero for base > 0, so a burst of failures
// cannot become a tight loop.
func equalJitterWait(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	full := base << (attempt - 1)
	half := full / 2
	if half <= 0 {
		half = 1
	}
	jitter := time.Duration(rand.Int64N(int64(half)))
	return half + jitter
}

// Do runs fn, retrying under cfg's schedule while classify reports
// transient failures. It returns immediately on success or on a fatal
// classification. At most cfg.MaxAttempts+1 invocations of fn occur. ctx
// cancellation aborts the wait between attempts.
func Do(ctx context.Context, cfg Config, classify Classify, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts+1; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		c := classify(err)
		if c.Fatal || !c.Transient {
			return err
		}
		if attempt == cfg.MaxAttempts+1 {
			break
		}

		wait := equalJitterWait(cfg.Base, attempt)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return lastErr
}
