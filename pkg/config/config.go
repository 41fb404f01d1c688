package config

import (
	"time"
)

// FileConfig is the external YAML file's shape (after env-var expansion),
// the second layer of the merge chain. Pointer fields distinguish "unset"
// (fall through to the lower layer) from an explicit zero value, the same
// convention the teacher's *int/*time.Duration override fields use.
type FileConfig struct {
	Parallelism           *int64                       `yaml:"parallelism,omitempty"`
	ReviewPasses          *int                         `yaml:"reviewPasses,omitempty"`
	OrchestratorTimeout   *time.Duration               `yaml:"orchestratorTimeout,omitempty"`
	AgentTimeout          *time.Duration               `yaml:"agentTimeout,omitempty"`
	IdleTimeout           *time.Duration               `yaml:"idleTimeout,omitempty"`
	SummaryTimeout        *time.Duration               `yaml:"summaryTimeout,omitempty"`
	MaxRetries            *int                         `yaml:"maxRetries,omitempty"`
	Resilience            map[string]ResilienceTuning  `yaml:"resilience,omitempty"`
	Summary               *SummaryTuning               `yaml:"summary,omitempty"`
	LocalFiles            *LocalFilesTuning            `yaml:"localFiles,omitempty"`
	FeatureFlags          *FeatureFlags                `yaml:"featureFlags,omitempty"`
	Agents                []AgentFileEntry             `yaml:"agents,omitempty"`
}

// FeatureFlags selects optional runtime behaviors.
type FeatureFlags struct {
	StructuredConcurrency bool `yaml:"structuredConcurrency,omitempty"`
}

// AgentFileEntry is one agent's YAML representation.
type AgentFileEntry struct {
	Name              string   `yaml:"name"`
	DisplayName       string   `yaml:"displayName"`
	ModelID           string   `yaml:"modelId"`
	SystemPrompt      string   `yaml:"systemPrompt"`
	InstructionPrompt string   `yaml:"instructionPrompt"`
	FocusAreas        []string `yaml:"focusAreas,omitempty"`
	OutputFormat      string   `yaml:"outputFormat,omitempty"`
	ReasoningEffort   string   `yaml:"reasoningEffort,omitempty"`
	ReviewPasses      int      `yaml:"reviewPasses,omitempty"`
}

// EnvConfig is the process-environment layer, read from REVIEWCREW_*
// prefixed variables. Pointer fields again distinguish unset from zero.
type EnvConfig struct {
	Parallelism         *int64
	ReviewPasses        *int
	OrchestratorTimeout *time.Duration
	AgentTimeout        *time.Duration
	IdleTimeout         *time.Duration
	MaxRetries          *int
	AuthToken           string // REVIEWCREW_AUTH_TOKEN; never logged
}

// FlagConfig is the CLI-flag layer, the highest-priority override.
type FlagConfig struct {
	Parallelism           *int64
	ReviewPasses          *int
	OrchestratorTimeout   *time.Duration
	StructuredConcurrency *bool
}

// Config is the fully-merged, validated configuration surface.
type Config struct {
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
	Agents                []AgentFileEntry
	AuthToken             string
}

// Validate refuses to let a run start with an inconsistent configuration
// rather than silently using a bad value.
func (c Config) Validate() error {
	if len(c.Agents) == 0 {
		return NewValidationError("agents", "", "", ErrNoAgents)
	}
	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" {
			return NewValidationError("agent", "", "name", ErrMissingRequiredField)
		}
		if seen[a.Name] {
			return NewValidationError("agent", a.Name, "name", ErrDuplicateAgentName)
		}
		seen[a.Name] = true
	}
	if c.Parallelism <= 0 {
		return NewValidationError("config", "", "parallelism", ErrInvalidValue)
	}
	if c.ReviewPasses < 0 {
		return NewValidationError("config", "", "reviewPasses", ErrInvalidValue)
	}
	if c.OrchestratorTimeout <= 0 {
		return NewValidationError("config", "", "orchestratorTimeout", ErrInvalidValue)
	}
	return nil
}
