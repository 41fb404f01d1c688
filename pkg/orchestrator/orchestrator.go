// Package orchestrator implements the orchestrator (C11): it fans out
// agent x pass review tasks under a bounded concurrency gate, merges each
// agent's passes via pkg/merge, and never aborts the whole run because one
// agent failed. The concurrency gate is golang.org/x/sync/semaphore.Weighted,
// a closer fit than a buffered-channel semaphore for the "N permits,
// released out of order" shape; the task-dispatch model generalizes the
// teacher's SubAgentRunner dispatch/collect/cancel-all shape from
// "sub-agents of one parent execution" to "agent x pass tasks of one run".
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/anishi1222/reviewcrew/pkg/audit"
	"github.com/anishi1222/reviewcrew/pkg/merge"
	"github.com/anishi1222/reviewcrew/pkg/resilience/breaker"
	"github.com/anishi1222/reviewcrew/pkg/resilience/watchdog"
	"github.com/anishi1222/reviewcrew/pkg/review"
)

// Config carries the run-level tuning consumed by the orchestrator.
type Config struct {
	Parallelism            int64
	ReviewPasses           int
	OrchestratorTimeout    time.Duration
	AgentTimeout           time.Duration
	IdleTimeout            time.Duration
	MaxRetries             int
	StructuredConcurrency  bool
	CheckpointDir          string // empty disables checkpoint writing
	RunID                  string // correlates checkpoints and audit records for one invocation
}

// ReviewerFactory constructs one Reviewer per agent. It is the seam
// pkg/reviewer's constructor satisfies; defined here as an interface to
// avoid an import cycle and to let tests substitute a fake.
type ReviewerFactory func(agent review.AgentConfig) PassRunner

// PassRunner is the subset of pkg/reviewer.Reviewer the orchestrator calls.
type PassRunner interface {
	ReviewPasses(ctx context.Context, target review.Target, passCount int) []review.PassResult
}

// RunSummary reports the run's overall health, matching the "always prints
// a completion summary" requirement. Grounded on the teacher's
// queue.WorkerPool.Health() PoolHealth snapshot-struct idiom.
type RunSummary struct {
	TotalAgents int
	Successful  int
	Failed      int
	ReportsPath string
}

// Orchestrator executes reviews for a set of agents against one target.
type Orchestrator struct {
	cfg       Config
	factory   ReviewerFactory
	breakers  *breaker.Registry
	scheduler *watchdog.Scheduler
	auditLog  *audit.Logger
	logger    *slog.Logger
}

// New constructs an Orchestrator. It validates that orchestratorTimeout is
// large enough to bound a single agent's worst case
// (agentTimeout x (maxRetries+1) x reviewPasses); if not, it logs a
// warning and an audit resource-budget event but proceeds, generalizing
// queue.WorkerPool.runOrphanDetection's "detect and log an inconsistency,
// recover automatically" posture.
func New(cfg Config, factory ReviewerFactory, breakers *breaker.Registry, scheduler *watchdog.Scheduler, auditLog *audit.Logger, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{cfg: cfg, factory: factory, breakers: breakers, scheduler: scheduler, auditLog: auditLog, logger: logger}
	o.checkResourceBudget()
	return o
}

func (o *Orchestrator) perAgentTimeout() time.Duration {
	return o.cfg.AgentTimeout * time.Duration(o.cfg.MaxRetries+1) * time.Duration(o.cfg.ReviewPasses)
}

func (o *Orchestrator) checkResourceBudget() {
	needed := o.perAgentTimeout()
	if o.cfg.OrchestratorTimeout >= needed {
		return
	}
	o.logger.Warn("orchestrator timeout may be too small for configured per-agent worst case",
		"orchestratorTimeout", o.cfg.OrchestratorTimeout, "computedAgentWorstCase", needed)
	if o.auditLog != nil {
		o.auditLog.Warn(audit.Event("resource-budget"), "timeout-check",
			"orchestrator timeout below computed agent worst case",
			"runID", o.cfg.RunID,
			"orchestratorTimeout", o.cfg.OrchestratorTimeout.String(),
			"computedAgentWorstCase", needed.String())
	}
}

// ExecuteReviews runs every agent against target, returning one
// AgentResult per agent plus a RunSummary. It returns no error value: a
// pass that could not acquire a permit because ctx was cancelled or timed
// out is recorded as a failed PassResult, and agent failures only show up
// in the results and the summary counts.
func (o *Orchestrator) ExecuteReviews(ctx context.Context, agents []review.AgentConfig, target review.Target) ([]review.AgentResult, RunSummary) {
	runCtx, cancel := context.WithTimeout(ctx, o.cfg.OrchestratorTimeout)
	defer cancel()

	exec := newExecutor(o.cfg.StructuredConcurrency)
	sem := semaphore.NewWeighted(o.cfg.Parallelism)

	results := exec.run(runCtx, agents, func(taskCtx context.Context, agent review.AgentConfig) review.AgentResult {
		return o.runAgent(taskCtx, sem, agent, target)
	})

	summary := RunSummary{TotalAgents: len(results), ReportsPath: o.cfg.CheckpointDir}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return results, summary
}

// runAgent dispatches one task per pass, each acquiring a permit, running
// one pass via the reviewer, and releasing the permit — the async
// execution mode's contract. Every dispatched goroutine always reports its
// slot, including when the semaphore is never acquired because ctx was
// already cancelled, so partial results are still passed to the merger,
// which tolerates missing passes.
func (o *Orchestrator) runAgent(ctx context.Context, sem *semaphore.Weighted, agent review.AgentConfig, target review.Target) review.AgentResult {
	reviewer := o.factory(agent)

	passCount := agent.ReviewPasses
	if passCount == 0 {
		passCount = o.cfg.ReviewPasses
	}

	passResults := make([]review.PassResult, passCount)
	var wg sync.WaitGroup
	wg.Add(passCount)

	for pass := 0; pass < passCount; pass++ {
		go func(pass int) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				passResults[pass] = review.PassResult{AgentName: agent.Name, Pass: pass + 1, Success: false, Error: err.Error()}
				return
			}
			single := reviewer.ReviewPasses(ctx, target, 1)
			sem.Release(1)
			if len(single) == 1 {
				single[0].Pass = pass + 1
				passResults[pass] = single[0]
			}
		}(pass)
	}
	wg.Wait()

	result := merge.Merge(agent.Name, passResults)
	o.writeCheckpoint(agent.Name, passResults)
	return result
}
