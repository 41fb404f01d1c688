package review

import "time"

// Priority is a finding's severity level.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// OperationClass namespaces circuit-breaker and retry tuning.
type OperationClass string

const (
	OpReview  OperationClass = "review"
	OpSummary OperationClass = "summary"
	OpSkill   OperationClass = "skill"
)

// AgentConfig is the immutable, once-loaded configuration for one review
// agent. Names must be unique within a run; at least one agent must exist
// for a run to be valid (enforced by the registry that constructs these,
// see pkg/config).
type AgentConfig struct {
	Name               string
	DisplayName        string
	ModelID            string
	SystemPrompt       string
	InstructionPrompt  string // may contain ${repository}, ${displayName}, ${focusAreas}
	FocusAreas         []string
	OutputFormat       string
	ReasoningEffort    string
	ReviewPasses       int
}

// InstructionSource distinguishes how a custom instruction reached the run.
type InstructionSource int

const (
	// InstructionExplicit instructions were named directly by the operator
	// and do not require the trust flag.
	InstructionExplicit InstructionSource = iota
	// InstructionDiscovered instructions were found inside the review
	// target itself and are only loaded when the trust flag is set.
	InstructionDiscovered
)

// CustomInstruction is a single piece of custom guidance fed into an
// agent's prompt. Content must have passed through the instruction
// validator before it reaches the orchestrator.
type CustomInstruction struct {
	SourcePath  string
	Content     string
	Source      InstructionSource
	ApplyTo     string // optional glob scope; the reviewer does not filter on it, so every instruction reaches every agent
	Description string
}

// ReviewContext is shared, read-only state constructed once per run and
// handed to every agent task. Nothing in it may be mutated after
// construction. Circuit breakers and the watchdog scheduler, which carry
// their own internally-synchronized state, are not part of it; they are
// passed to each reviewer separately.
type ReviewContext struct {
	AttemptTimeout    time.Duration
	IdleTimeout       time.Duration
	MaxRetries        int
	ReasoningEffort   string
	OutputConstraints string
	MCPServerName     string
	PreCollectedSource string
	Instructions      []CustomInstruction
}

// Finding is a single issue reported by an agent in one pass.
type Finding struct {
	Title    string
	Priority Priority
	Summary  string
	Location string
	Body     string

	// CanonicalTitle and CanonicalLocation are normalized forms (lowercased,
	// punctuation collapsed) used to build DedupKey.
	CanonicalTitle    string
	CanonicalLocation string
}

// DedupKey is the canonical tuple identifying equivalent findings across
// passes: (priority lowercased, canonical title, canonical location).
type DedupKey struct {
	Priority          string
	CanonicalTitle    string
	CanonicalLocation string
}

// Key computes f's dedup key from its already-normalized fields.
func (f Finding) Key() DedupKey {
	return DedupKey{
		Priority:          lowerASCII(string(f.Priority)),
		CanonicalTitle:    f.CanonicalTitle,
		CanonicalLocation: f.CanonicalLocation,
	}
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// AggregatedFinding is the union of one dedup key's observations across
// passes. PassNumbers grows monotonically as the merger folds in each
// successful pass.
type AggregatedFinding struct {
	Finding     Finding
	PassNumbers []int
}

// AddPass records an additional pass observation, if not already present.
func (a *AggregatedFinding) AddPass(pass int) {
	for _, p := range a.PassNumbers {
		if p == pass {
			return
		}
	}
	a.PassNumbers = append(a.PassNumbers, pass)
}

// PassResult is the outcome of one agent pass.
type PassResult struct {
	AgentName string
	Pass      int
	Success   bool
	Content   string // sanitized content, empty on failure
	Error     string // non-empty on failure
	Timestamp time.Time
	Duration  time.Duration
}

// AgentResult is the merged outcome of all passes of one agent.
type AgentResult struct {
	AgentName string
	Success   bool // true iff at least one pass succeeded
	Content   string
	Passes    []PassResult // provenance: every pass attempted, success or not
	Error     string       // from the last pass, if all failed
}
