package orchestrator

import (
	"context"
	"sync"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

// executor runs one task per agent, in whichever concurrency discipline the
// concrete implementation prescribes, and collects one result per agent.
// Both implementations must be semantically equivalent in their outputs,
// differing only in how cancellation of the parent propagates.
type executor interface {
	run(ctx context.Context, agents []review.AgentConfig, task func(ctx context.Context, agent review.AgentConfig) review.AgentResult) []review.AgentResult
}

func newExecutor(structured bool) executor {
	if structured {
		return structuredExecutor{}
	}
	return asyncExecutor{}
}

// asyncExecutor submits one goroutine per agent onto an unbounded task
// pool (mirroring SubAgentRunner.Dispatch's one-goroutine-per-task model)
// and collects results independently; a cancelled ctx is observed by each
// task's own context-aware work, not by the executor itself.
type asyncExecutor struct{}

func (asyncExecutor) run(ctx context.Context, agents []review.AgentConfig, task func(ctx context.Context, agent review.AgentConfig) review.AgentResult) []review.AgentResult {
	results := make([]review.AgentResult, len(agents))
	var wg sync.WaitGroup
	wg.Add(len(agents))
	for i, agent := range agents {
		go func(i int, agent review.AgentConfig) {
			defer wg.Done()
			results[i] = task(ctx, agent)
		}(i, agent)
	}
	wg.Wait()
	return results
}

// structuredExecutor runs every agent task under one cancellation scope:
// the parent does not return until every child has completed or been
// cancelled as a group, and cancelling the parent context cancels every
// in-flight child immediately.
type structuredExecutor struct{}

func (structuredExecutor) run(ctx context.Context, agents []review.AgentConfig, task func(ctx context.Context, agent review.AgentConfig) review.AgentResult) []review.AgentResult {
	scopeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]review.AgentResult, len(agents))
	var wg sync.WaitGroup
	wg.Add(len(agents))
	for i, agent := range agents {
		go func(i int, agent review.AgentConfig) {
			defer wg.Done()
			results[i] = task(scopeCtx, agent)
		}(i, agent)
	}
	wg.Wait()
	return results
}
