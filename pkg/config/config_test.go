package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviewcrew.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesBuiltinDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("", FlagConfig{})
	require.NoError(t, err)
	assert.Equal(t, BuiltinDefaults().Parallelism, cfg.Parallelism)
	assert.Equal(t, BuiltinDefaults().ReviewPasses, cfg.ReviewPasses)
}

func TestLoadFileLayerOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, "parallelism: 8\nreviewPasses: 3\nagents:\n  - name: security\n    displayName: Security Reviewer\n")
	cfg, err := Load(path, FlagConfig{})
	require.NoError(t, err)
	assert.EqualValues(t, 8, cfg.Parallelism)
	assert.Equal(t, 3, cfg.ReviewPasses)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "security", cfg.Agents[0].Name)
}

func TestLoadMissingFileReturnsConfigNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), FlagConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadFlagLayerOverridesFileLayer(t *testing.T) {
	path := writeConfigFile(t, "parallelism: 8\n")
	flagParallelism := int64(16)
	cfg, err := Load(path, FlagConfig{Parallelism: &flagParallelism})
	require.NoError(t, err)
	assert.EqualValues(t, 16, cfg.Parallelism)
}

func TestLoadEnvExpandsVariablesInFile(t *testing.T) {
	t.Setenv("REVIEWCREW_TEST_MODEL", "gpt-test")
	path := writeConfigFile(t, "agents:\n  - name: security\n    modelId: ${REVIEWCREW_TEST_MODEL}\n")
	cfg, err := Load(path, FlagConfig{})
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "gpt-test", cfg.Agents[0].ModelID)
}

func TestLoadEnvLayerOverridesFileLayer(t *testing.T) {
	path := writeConfigFile(t, "parallelism: 4\n")
	t.Setenv("REVIEWCREW_PARALLELISM", "12")
	cfg, err := Load(path, FlagConfig{})
	require.NoError(t, err)
	assert.EqualValues(t, 12, cfg.Parallelism)
}

func TestConfigValidateRejectsNoAgents(t *testing.T) {
	cfg := Config{Parallelism: 1, OrchestratorTimeout: time.Minute}
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrNoAgents)
}

func TestConfigValidateRejectsDuplicateAgentNames(t *testing.T) {
	cfg := Config{
		Parallelism:         1,
		OrchestratorTimeout: time.Minute,
		Agents: []AgentFileEntry{
			{Name: "security"},
			{Name: "security"},
		},
	}
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrDuplicateAgentName)
}

func TestConfigValidateRejectsNonPositiveParallelism(t *testing.T) {
	cfg := Config{
		Parallelism:         0,
		OrchestratorTimeout: time.Minute,
		Agents:              []AgentFileEntry{{Name: "security"}},
	}
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestAgentRegistryRejectsEmptyAndDuplicates(t *testing.T) {
	_, err := NewAgentRegistry(nil)
	assert.ErrorIs(t, err, ErrNoAgents)

	_, err = NewAgentRegistry([]review.AgentConfig{{Name: "a"}, {Name: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateAgentName)
}

func TestAgentRegistryGetAndAll(t *testing.T) {
	reg, err := NewAgentRegistry([]review.AgentConfig{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)

	a, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	assert.Len(t, reg.All(), 2)
}

func TestResilienceRegistryMaxAttemptsFallsBackWhenUnconfigured(t *testing.T) {
	reg := NewResilienceRegistry(map[string]ResilienceTuning{
		"review": {MaxAttempts: 5},
	})
	assert.Equal(t, 5, reg.MaxAttempts(review.OpReview))
	assert.Equal(t, 2, reg.MaxAttempts(review.OpSkill))
}
