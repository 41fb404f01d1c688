// Package reviewer implements the agent reviewer (C7): it runs one
// agent's review passes against a target, composing the prompt, racing the
// transport stream against the per-attempt deadline and idle watchdog, and
// sanitizing the result. One Reviewer is constructed per agent per run;
// ReviewPasses opens a fresh transport.Session per pass, generalizing the
// teacher's SubAgentRunner.runSubAgent dispatch shape down to a single
// function (the caller, the orchestrator, is what fans passes out
// concurrently).
package reviewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anishi1222/reviewcrew/pkg/audit"
	"github.com/anishi1222/reviewcrew/pkg/resilience/breaker"
	"github.com/anishi1222/reviewcrew/pkg/resilience/retry"
	"github.com/anishi1222/reviewcrew/pkg/resilience/watchdog"
	"github.com/anishi1222/reviewcrew/pkg/review"
	"github.com/anishi1222/reviewcrew/pkg/sanitize"
	"github.com/anishi1222/reviewcrew/pkg/transport"
)

// ErrCircuitOpen is recorded on a PassResult when the circuit breaker
// rejected the pass outright.
var ErrCircuitOpen = errors.New("circuit open")

// ErrEmptyResponse classifies an empty completed stream as transient.
var ErrEmptyResponse = errors.New("empty response")

// ErrIdleTimeout classifies a watchdog-triggered cancellation.
var ErrIdleTimeout = errors.New("idle timeout")

// ErrAttemptDeadline classifies a per-attempt deadline firing.
var ErrAttemptDeadline = errors.New("attempt deadline exceeded")

// Reviewer runs review passes for one agent.
type Reviewer struct {
	agent     review.AgentConfig
	rctx      *review.ReviewContext
	open      transport.OpenSession
	breakers  *breaker.Registry
	scheduler *watchdog.Scheduler
	auditLog  *audit.Logger
}

// New constructs a Reviewer for one agent. Constructed once per agent per
// run; callers must not allocate a fresh Reviewer per pass.
func New(agent review.AgentConfig, rctx *review.ReviewContext, open transport.OpenSession, breakers *breaker.Registry, scheduler *watchdog.Scheduler, auditLog *audit.Logger) *Reviewer {
	return &Reviewer{agent: agent, rctx: rctx, open: open, breakers: breakers, scheduler: scheduler, auditLog: auditLog}
}

// ReviewPasses runs passCount passes against target, returning exactly
// passCount PassResults (zero if passCount == 0, which is not a failure).
func (r *Reviewer) ReviewPasses(ctx context.Context, target review.Target, passCount int) []review.PassResult {
	if passCount == 0 {
		return nil
	}

	results := make([]review.PassResult, 0, passCount)
	b := r.breakers.Get(review.OpReview)
	cfg := retry.Config{MaxAttempts: r.rctx.MaxRetries, Base: 500 * time.Millisecond}

	for pass := 1; pass <= passCount; pass++ {
		results = append(results, r.runPass(ctx, target, pass, b, cfg))
	}
	return results
}

func (r *Reviewer) runPass(ctx context.Context, target review.Target, pass int, b *breaker.Breaker, cfg retry.Config) review.PassResult {
	start := time.Now()

	if err := b.Admit(); err != nil {
		return review.PassResult{
			AgentName: r.agent.Name,
			Pass:      pass,
			Success:   false,
			Error:     ErrCircuitOpen.Error(),
			Timestamp: start,
			Duration:  time.Since(start),
		}
	}

	var content string
	runErr := retry.Do(ctx, cfg, classify, func(ctx context.Context) error {
		out, err := r.attempt(ctx, target)
		if err != nil {
			return err
		}
		content = out
		return nil
	})

	b.Record(runErr == nil)

	pr := review.PassResult{
		AgentName: r.agent.Name,
		Pass:      pass,
		Timestamp: start,
		Duration:  time.Since(start),
	}
	if runErr != nil {
		pr.Success = false
		pr.Error = runErr.Error()
	} else {
		pr.Success = true
		pr.Content = sanitize.Sanitize(content)
	}
	return pr
}

// attempt performs one retry-loop iteration: open a fresh session, compose
// and send the prompt, race the stream against the per-attempt deadline and
// the idle watchdog.
func (r *Reviewer) attempt(ctx context.Context, target review.Target) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.rctx.AttemptTimeout)
	defer cancel()

	systemPrompt := r.composeSystemPrompt(target)
	userPrompt := r.composeUserPrompt(target)

	sess, err := r.open(attemptCtx, transport.OpenOptions{
		SystemPrompt:    systemPrompt,
		UserPrompt:      userPrompt,
		ModelID:         r.agent.ModelID,
		ReasoningEffort: r.rctx.ReasoningEffort,
		MCPServers:      []string{r.rctx.MCPServerName},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", transport.ErrSessionOpenFailed, err)
	}
	defer sess.Close()

	var wdLogger *slog.Logger
	if r.auditLog != nil {
		wdLogger = r.auditLog.Base()
	}
	wd := watchdog.Arm(r.scheduler, r.rctx.IdleTimeout, func() { sess.Cancel() }, wdLogger)
	defer wd.Disarm()

	var b strings.Builder
	for {
		select {
		case <-attemptCtx.Done():
			sess.Cancel()
			return "", ErrAttemptDeadline
		case ev, ok := <-sess.Events():
			if !ok {
				return finishOrEmpty(b.String())
			}
			wd.Touch()
			switch ev.Kind {
			case transport.EventTextChunk:
				b.WriteString(ev.Text)
			case transport.EventDone:
				return finishOrEmpty(b.String())
			case transport.EventError:
				// A partial-stream-then-fire is discarded, per the
				// documented open-question decision: do not return b here.
				switch ev.ErrKind {
				case transport.ErrorKindCancelled:
					return "", ErrIdleTimeout
				case transport.ErrorKindTransient:
					return "", fmt.Errorf("%w: %s", transport.ErrTransient, ev.Message)
				default:
					return "", errors.New(ev.Message)
				}
			case transport.EventToolCall:
				// tool-call events only reset the idle clock; they carry
				// no text payload for the review transcript.
			}
		}
	}
}

func finishOrEmpty(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyResponse
	}
	return s, nil
}

func classify(err error) retry.Classification {
	switch {
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrIdleTimeout), errors.Is(err, ErrAttemptDeadline):
		return retry.Transient()
	case errors.Is(err, context.DeadlineExceeded):
		return retry.Transient()
	case errors.Is(err, transport.ErrSessionOpenFailed), errors.Is(err, transport.ErrTransient):
		return retry.Transient()
	default:
		return retry.Fatal()
	}
}
