// Package config implements the layered configuration surface: compiled-in
// record defaults, an external YAML file (env-expanded), the process
// environment, and CLI flags, merged lowest to highest priority with
// dario.cat/mergo — the same merge library and mergo.WithOverride idiom
// the teacher's config.Initialize uses to layer queue/system overrides
// onto its base config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

// Load builds the final Config by merging, in increasing priority:
// BuiltinDefaults() -> the YAML file at filePath (if non-empty) ->
// REVIEWCREW_* environment variables -> flags. An empty filePath skips the
// file layer; a non-empty filePath that does not exist (ErrConfigNotFound),
// cannot be read, or does not parse is an error.
func Load(filePath string, flags FlagConfig) (Config, error) {
	defaults := BuiltinDefaults()

	cfg := Config{
		Parallelism:           defaults.Parallelism,
		ReviewPasses:          defaults.ReviewPasses,
		OrchestratorTimeout:   defaults.OrchestratorTimeout,
		AgentTimeout:          defaults.AgentTimeout,
		IdleTimeout:           defaults.IdleTimeout,
		SummaryTimeout:        defaults.SummaryTimeout,
		MaxRetries:            defaults.MaxRetries,
		Resilience:            defaults.Resilience,
		Summary:               defaults.Summary,
		LocalFiles:            defaults.LocalFiles,
		StructuredConcurrency: defaults.StructuredConcurrency,
	}

	if filePath != "" {
		fileCfg, err := loadFile(filePath)
		if err != nil {
			return Config{}, err
		}
		applyFileLayer(&cfg, fileCfg)
	}

	applyEnvLayer(&cfg, loadEnv())
	applyFlagLayer(&cfg, flags)

	return cfg, nil
}

func loadFile(filePath string) (FileConfig, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, NewLoadError(filePath, ErrConfigNotFound)
		}
		return FileConfig{}, NewLoadError(filePath, err)
	}
	expanded := ExpandEnv(raw)

	var fc FileConfig
	if err := yaml.Unmarshal(expanded, &fc); err != nil {
		return FileConfig{}, NewLoadError(filePath, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return fc, nil
}

// applyFileLayer overrides cfg's scalar fields with fc's set pointers and
// merges fc's map/struct fields on top of cfg's defaults via mergo, the
// same WithOverride semantics the teacher uses for its queue/system
// override merges.
func applyFileLayer(cfg *Config, fc FileConfig) {
	if fc.Parallelism != nil {
		cfg.Parallelism = *fc.Parallelism
	}
	if fc.ReviewPasses != nil {
		cfg.ReviewPasses = *fc.ReviewPasses
	}
	if fc.OrchestratorTimeout != nil {
		cfg.OrchestratorTimeout = *fc.OrchestratorTimeout
	}
	if fc.AgentTimeout != nil {
		cfg.AgentTimeout = *fc.AgentTimeout
	}
	if fc.IdleTimeout != nil {
		cfg.IdleTimeout = *fc.IdleTimeout
	}
	if fc.SummaryTimeout != nil {
		cfg.SummaryTimeout = *fc.SummaryTimeout
	}
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.Resilience != nil {
		_ = mergo.Merge(&cfg.Resilience, fc.Resilience, mergo.WithOverride)
	}
	if fc.Summary != nil {
		_ = mergo.Merge(&cfg.Summary, *fc.Summary, mergo.WithOverride)
	}
	if fc.LocalFiles != nil {
		_ = mergo.Merge(&cfg.LocalFiles, *fc.LocalFiles, mergo.WithOverride)
	}
	if fc.FeatureFlags != nil {
		cfg.StructuredConcurrency = fc.FeatureFlags.StructuredConcurrency
	}
	if fc.Agents != nil {
		cfg.Agents = fc.Agents
	}
}

func loadEnv() EnvConfig {
	var ec EnvConfig
	if v, ok := os.LookupEnv("REVIEWCREW_PARALLELISM"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			ec.Parallelism = &n
		}
	}
	if v, ok := os.LookupEnv("REVIEWCREW_REVIEW_PASSES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			ec.ReviewPasses = &n
		}
	}
	if v, ok := os.LookupEnv("REVIEWCREW_ORCHESTRATOR_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			ec.OrchestratorTimeout = &d
		}
	}
	if v, ok := os.LookupEnv("REVIEWCREW_AGENT_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			ec.AgentTimeout = &d
		}
	}
	if v, ok := os.LookupEnv("REVIEWCREW_IDLE_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			ec.IdleTimeout = &d
		}
	}
	if v, ok := os.LookupEnv("REVIEWCREW_MAX_RETRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			ec.MaxRetries = &n
		}
	}
	// Narrow boundary: the auth token enters only via the environment,
	// never as a flag.
	ec.AuthToken = os.Getenv("REVIEWCREW_AUTH_TOKEN")
	return ec
}

func applyEnvLayer(cfg *Config, ec EnvConfig) {
	if ec.Parallelism != nil {
		cfg.Parallelism = *ec.Parallelism
	}
	if ec.ReviewPasses != nil {
		cfg.ReviewPasses = *ec.ReviewPasses
	}
	if ec.OrchestratorTimeout != nil {
		cfg.OrchestratorTimeout = *ec.OrchestratorTimeout
	}
	if ec.AgentTimeout != nil {
		cfg.AgentTimeout = *ec.AgentTimeout
	}
	if ec.IdleTimeout != nil {
		cfg.IdleTimeout = *ec.IdleTimeout
	}
	if ec.MaxRetries != nil {
		cfg.MaxRetries = *ec.MaxRetries
	}
	if ec.AuthToken != "" {
		cfg.AuthToken = ec.AuthToken
	}
}

func applyFlagLayer(cfg *Config, fc FlagConfig) {
	if fc.Parallelism != nil {
		cfg.Parallelism = *fc.Parallelism
	}
	if fc.ReviewPasses != nil {
		cfg.ReviewPasses = *fc.ReviewPasses
	}
	if fc.OrchestratorTimeout != nil {
		cfg.OrchestratorTimeout = *fc.OrchestratorTimeout
	}
	if fc.StructuredConcurrency != nil {
		cfg.StructuredConcurrency = *fc.StructuredConcurrency
	}
}

// ToReviewAgents converts the loaded agent entries into review.AgentConfig,
// defaulting ReviewPasses to the run-level value when an entry omits it.
func ToReviewAgents(entries []AgentFileEntry, defaultPasses int) []review.AgentConfig {
	out := make([]review.AgentConfig, 0, len(entries))
	for _, e := range entries {
		passes := e.ReviewPasses
		if passes == 0 {
			passes = defaultPasses
		}
		out = append(out, review.AgentConfig{
			Name:              e.Name,
			DisplayName:       e.DisplayName,
			ModelID:           e.ModelID,
			SystemPrompt:      e.SystemPrompt,
			InstructionPrompt: e.InstructionPrompt,
			FocusAreas:        e.FocusAreas,
			OutputFormat:      e.OutputFormat,
			ReasoningEffort:   e.ReasoningEffort,
			ReviewPasses:      passes,
		})
	}
	return out
}
