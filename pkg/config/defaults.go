package config

import "time"

// Defaults holds the compiled-in record defaults, the lowest-priority
// layer in the merge chain (defaults -> external file -> env -> flags).
type Defaults struct {
	Parallelism           int64
	ReviewPasses          int
	OrchestratorTimeout   time.Duration
	AgentTimeout          time.Duration
	IdleTimeout           time.Duration
	SummaryTimeout        time.Duration
	MaxRetries            int
	Resilience            map[string]ResilienceTuning
	Summary               SummaryTuning
	LocalFiles            LocalFilesTuning
	StructuredConcurrency bool
}

// ResilienceTuning is the per-operation-class C4/C5 tuning tuple.
type ResilienceTuning struct {
	Threshold     int
	OpenSeconds   int
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffCap    time.Duration
}

// SummaryTuning carries C12's character budgets.
type SummaryTuning struct {
	MaxContentPerAgent    int
	MaxTotalPromptContent int
	FallbackExcerptLength int
}

// LocalFilesTuning carries C8's byte caps.
type LocalFilesTuning struct {
	MaxFileSize  int64
	MaxTotalSize int64
}

// BuiltinDefaults returns the record defaults compiled into the binary.
func BuiltinDefaults() Defaults {
	return Defaults{
		Parallelism:         4,
		ReviewPasses:        2,
		OrchestratorTimeout: 20 * time.Minute,
		AgentTimeout:        3 * time.Minute,
		IdleTimeout:         30 * time.Second,
		SummaryTimeout:      2 * time.Minute,
		MaxRetries:          2,
		Resilience: map[string]ResilienceTuning{
			"review": {
				Threshold:   5,
				OpenSeconds: 30,
				MaxAttempts: 2,
				BackoffBase: 500 * time.Millisecond,
				BackoffCap:  10 * time.Minute,
			},
			"summary": {
				Threshold:   3,
				OpenSeconds: 30,
				MaxAttempts: 2,
				BackoffBase: 500 * time.Millisecond,
				BackoffCap:  10 * time.Minute,
			},
			"skill": {
				Threshold:   5,
				OpenSeconds: 30,
				MaxAttempts: 1,
				BackoffBase: 500 * time.Millisecond,
				BackoffCap:  10 * time.Minute,
			},
		},
		Summary: SummaryTuning{
			MaxContentPerAgent:    20000,
			MaxTotalPromptContent: 100000,
			FallbackExcerptLength: 500,
		},
		LocalFiles: LocalFilesTuning{
			MaxFileSize:  1 << 20,  // 1 MiB
			MaxTotalSize: 20 << 20, // 20 MiB
		},
		StructuredConcurrency: false,
	}
}
