// reviewcrew runs parallel AI review agents against a remote repository or
// a local directory, merging findings across multiple passes and emitting
// per-agent reports plus an executive summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/anishi1222/reviewcrew/pkg/audit"
	"github.com/anishi1222/reviewcrew/pkg/collector"
	"github.com/anishi1222/reviewcrew/pkg/config"
	"github.com/anishi1222/reviewcrew/pkg/instructions"
	"github.com/anishi1222/reviewcrew/pkg/orchestrator"
	"github.com/anishi1222/reviewcrew/pkg/resilience/breaker"
	"github.com/anishi1222/reviewcrew/pkg/resilience/watchdog"
	"github.com/anishi1222/reviewcrew/pkg/review"
	"github.com/anishi1222/reviewcrew/pkg/reviewer"
	"github.com/anishi1222/reviewcrew/pkg/summary"
	"github.com/anishi1222/reviewcrew/pkg/transport"
	"github.com/anishi1222/reviewcrew/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("REVIEWCREW_CONFIG", "./reviewcrew.yaml"),
		"Path to the reviewcrew YAML configuration file")
	targetRepo := flag.String("repo", "", "Remote repository slug to review (mutually exclusive with -dir)")
	targetDir := flag.String("dir", "", "Local directory to review (mutually exclusive with -repo)")
	outputBase := flag.String("output", getEnv("REVIEWCREW_OUTPUT", "./reviews"), "Output base directory")
	trustDiscovered := flag.Bool("trust-discovered-instructions", false,
		"Load custom instructions discovered inside the review target")
	instructionsDir := flag.String("instructions", getEnv("REVIEWCREW_INSTRUCTIONS_DIR", ""),
		"Directory of explicit custom instruction files, one per agent focus area")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	if *targetRepo == "" && *targetDir == "" {
		log.Fatal("one of -repo or -dir is required")
	}
	if *targetRepo != "" && *targetDir != "" {
		log.Fatal("-repo and -dir are mutually exclusive")
	}

	log.Printf("reviewcrew %s starting", version.Full())

	cfg, err := config.Load(*configPath, config.FlagConfig{})
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	agents := config.ToReviewAgents(cfg.Agents, cfg.ReviewPasses)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	agentRegistry, err := config.NewAgentRegistry(agents)
	if err != nil {
		log.Fatalf("invalid agent configuration: %v", err)
	}

	runTimestamp := time.Now()
	runID := uuid.NewString()
	auditLog := audit.New(slog.Default().With("runID", runID))

	target, pre, err := resolveTarget(*targetRepo, *targetDir, cfg.LocalFiles)
	if err != nil {
		log.Fatalf("failed to resolve review target: %v", err)
	}
	if pre.FileCount > 0 {
		log.Printf("collected %s", pre.Summary)
	}

	authToken := resolveAuthToken()
	if authToken == "" {
		log.Println("warning: no authentication token configured; transport sessions will fail to open")
	}

	resilienceRegistry := config.NewResilienceRegistry(cfg.Resilience)
	breakerRegistry := breaker.NewRegistry(resilienceRegistry.BreakerConfigs())
	scheduler := watchdog.NewScheduler()
	defer scheduler.Shutdown()

	// The concrete LLM/MCP network transport is out of scope for this
	// repository; openSession is wired to a stub that fails fast so every
	// other component (retry, circuit breaker, merge, summary, reports)
	// still runs end to end against a deliberately unavailable transport.
	openSession := unimplementedTransport(authToken)

	stamp := runTimestamp.Format("2006-01-02-15-04-05")
	targetSubpath := subpathFor(target)
	reportsDir := filepath.Join(*outputBase, targetSubpath, stamp)
	checkpointDir := filepath.Join(reportsDir, ".checkpoints")

	reviewContext := &review.ReviewContext{
		AttemptTimeout:     cfg.AgentTimeout,
		IdleTimeout:        cfg.IdleTimeout,
		MaxRetries:         resilienceRegistry.MaxAttempts(review.OpReview),
		PreCollectedSource: pre.JoinedContent,
		MCPServerName:      "reviewcrew",
		Instructions:       instructions.LoadAndValidate(instructionCandidates(*instructionsDir, *targetDir), *trustDiscovered, auditLog),
	}

	factory := func(agent review.AgentConfig) orchestrator.PassRunner {
		return reviewer.New(agent, reviewContext, openSession, breakerRegistry, scheduler, auditLog)
	}

	orch := orchestrator.New(orchestrator.Config{
		Parallelism:           cfg.Parallelism,
		ReviewPasses:          cfg.ReviewPasses,
		OrchestratorTimeout:   cfg.OrchestratorTimeout,
		AgentTimeout:          cfg.AgentTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		MaxRetries:            resilienceRegistry.MaxAttempts(review.OpReview),
		StructuredConcurrency: cfg.StructuredConcurrency,
		CheckpointDir:         checkpointDir,
		RunID:                 runID,
	}, factory, breakerRegistry, scheduler, auditLog, slog.Default().With("runID", runID))

	ctx := context.Background()
	results, runSummary := orch.ExecuteReviews(ctx, agentRegistry.All(), target)

	if err := os.MkdirAll(reportsDir, 0o700); err != nil {
		log.Fatalf("failed to create reports directory: %v", err)
	}
	for _, r := range results {
		path := filepath.Join(reportsDir, r.AgentName+"-report.md")
		if err := os.WriteFile(path, []byte(r.Content), 0o600); err != nil {
			log.Printf("failed to write report for %s: %v", r.AgentName, err)
		}
	}

	summarizer := summary.New(summary.Config{
		MaxContentPerAgent:    cfg.Summary.MaxContentPerAgent,
		MaxTotalPromptContent: cfg.Summary.MaxTotalPromptContent,
		FallbackExcerptLength: cfg.Summary.FallbackExcerptLength,
		SummaryTimeout:        cfg.SummaryTimeout,
		MaxRetries:            resilienceRegistry.MaxAttempts(review.OpSummary),
	}, openSession, breakerRegistry)

	summaryPath := filepath.Join(*outputBase, targetSubpath, fmt.Sprintf("executive_summary_%s.md", stamp))
	if err := summarizer.Summarize(ctx, results, target.DisplayName(), summaryPath, runTimestamp); err != nil {
		log.Printf("failed to write executive summary: %v", err)
	}

	log.Printf("run %s complete: %d agents, %d succeeded, %d failed, reports at %s",
		runID, runSummary.TotalAgents, runSummary.Successful, runSummary.Failed, reportsDir)

	// The run always prints a completion summary and returns a zero exit
	// code whenever orchestration completed, even if some agents failed.
	os.Exit(0)
}

func resolveTarget(repoSlug, dirPath string, localCfg config.LocalFilesTuning) (review.Target, collector.Result, error) {
	if repoSlug != "" {
		return review.Repository{Slug: repoSlug}, collector.Result{}, nil
	}
	result, err := collector.Collect(dirPath, collector.Config{
		MaxFileSize:  localCfg.MaxFileSize,
		MaxTotalSize: localCfg.MaxTotalSize,
	})
	if err != nil {
		return nil, collector.Result{}, err
	}
	return review.LocalDirectory{Path: dirPath, Source: result.JoinedContent}, result, nil
}

func subpathFor(target review.Target) string {
	switch t := target.(type) {
	case review.Repository:
		return filepath.FromSlash(t.Slug)
	case review.LocalDirectory:
		return filepath.Base(t.Path)
	default:
		return "unknown-target"
	}
}

// resolveAuthToken reads the authentication token only from the
// REVIEWCREW_AUTH_TOKEN environment variable, never from a command-line
// flag, per the narrow-boundary token handling rule. It does not read stdin.
func resolveAuthToken() string {
	return os.Getenv("REVIEWCREW_AUTH_TOKEN")
}

// discoveredInstructionFile is the conventional filename a local review
// target may carry to suggest its own custom review instructions. It is
// only loaded when the operator passes -trust-discovered-instructions,
// since the target's content is otherwise untrusted input.
const discoveredInstructionFile = "REVIEWCREW_INSTRUCTIONS.md"

// instructionCandidates collects explicit instruction files from
// instructionsDir (always validated, never require the trust flag) and,
// when present, the discovered instruction file inside a local target
// directory (only loaded when the trust flag is set, enforced by
// instructions.LoadAndValidate).
func instructionCandidates(instructionsDir, targetDir string) []instructions.Candidate {
	var candidates []instructions.Candidate

	if instructionsDir != "" {
		entries, err := os.ReadDir(instructionsDir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				candidates = append(candidates, instructions.Candidate{
					Path:        filepath.Join(instructionsDir, e.Name()),
					Source:      review.InstructionExplicit,
					Description: e.Name(),
				})
			}
		}
	}

	if targetDir != "" {
		discovered := filepath.Join(targetDir, discoveredInstructionFile)
		if _, err := os.Stat(discovered); err == nil {
			candidates = append(candidates, instructions.Candidate{
				Path:        discovered,
				Source:      review.InstructionDiscovered,
				Description: discoveredInstructionFile,
			})
		}
	}

	return candidates
}

func unimplementedTransport(authToken string) transport.OpenSession {
	return func(ctx context.Context, opts transport.OpenOptions) (transport.Session, error) {
		return nil, fmt.Errorf("reviewcrew: no LLM transport configured (authToken set: %t)", authToken != "")
	}
}
