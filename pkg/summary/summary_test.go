package summary

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anishi1222/reviewcrew/pkg/resilience/breaker"
	"github.com/anishi1222/reviewcrew/pkg/review"
	"github.com/anishi1222/reviewcrew/pkg/transport"
)

func baseConfig() Config {
	return Config{
		MaxContentPerAgent:    1000,
		MaxTotalPromptContent: 4000,
		FallbackExcerptLength: 200,
		SummaryTimeout:        time.Second,
		MaxRetries:            1,
	}
}

func TestSummarizeUsesLLMWhenAvailable(t *testing.T) {
	ft := transport.NewFakeTransport(transport.FakeScript{Chunks: []string{"Overall the codebase is healthy."}})
	s := New(baseConfig(), ft.Open, breaker.NewRegistry(nil))

	results := []review.AgentResult{{AgentName: "security", Success: true, Content: "no issues"}}
	outPath := filepath.Join(t.TempDir(), "summary.md")

	err := s.Summarize(context.Background(), results, "owner/repo", outPath, time.Now())
	require.NoError(t, err)

	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "healthy")
}

func TestSummarizeFallsBackWhenTransportUnavailable(t *testing.T) {
	s := New(baseConfig(), nil, breaker.NewRegistry(nil))

	results := []review.AgentResult{
		{AgentName: "security", Success: true, Content: "finding text"},
		{AgentName: "style", Success: false, Error: "timeout"},
	}
	outPath := filepath.Join(t.TempDir(), "summary.md")

	err := s.Summarize(context.Background(), results, "owner/repo", outPath, time.Now())
	require.NoError(t, err)

	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	content := string(data)
	assert.Contains(t, content, "fallback")
	assert.Contains(t, content, "security")
	assert.Contains(t, content, "style (failed)")
	assert.Contains(t, content, "timeout")
}

func TestBuildPromptOmitsAgentsBeyondGlobalBudget(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxTotalPromptContent = 10
	s := New(cfg, nil, breaker.NewRegistry(nil))

	results := []review.AgentResult{
		{AgentName: "first", Content: "0123456789"},
		{AgentName: "second", Content: "should be omitted"},
	}
	prompt, omitted := s.buildPrompt(results, "owner/repo")

	assert.Contains(t, prompt, "first")
	assert.Contains(t, omitted, "second")
}

func TestSummarizeRetriesOnSessionOpenFailureThenSucceeds(t *testing.T) {
	ft := transport.NewFakeTransport(
		transport.FakeScript{Err: assert.AnError},
		transport.FakeScript{Chunks: []string{"Overall the codebase is healthy."}},
	)
	cfg := baseConfig()
	cfg.MaxRetries = 1
	s := New(cfg, ft.Open, breaker.NewRegistry(nil))

	results := []review.AgentResult{{AgentName: "security", Success: true, Content: "no issues"}}
	outPath := filepath.Join(t.TempDir(), "summary.md")

	err := s.Summarize(context.Background(), results, "owner/repo", outPath, time.Now())
	require.NoError(t, err)

	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "healthy")
	assert.Equal(t, 2, ft.CallCount(), "session establishment failure is transient and must be retried")
}

func TestSummarizeDoesNotRetryOnFatalStreamError(t *testing.T) {
	ft := transport.NewFakeTransport(transport.FakeScript{
		Chunks: []string{"partial"},
		Fail:   &transport.Event{Kind: transport.EventError, ErrKind: transport.ErrorKindFatal, Message: "authentication failed"},
	})
	cfg := baseConfig()
	cfg.MaxRetries = 3
	s := New(cfg, ft.Open, breaker.NewRegistry(nil))

	results := []review.AgentResult{{AgentName: "security", Success: true, Content: "no issues"}}
	outPath := filepath.Join(t.TempDir(), "summary.md")

	err := s.Summarize(context.Background(), results, "owner/repo", outPath, time.Now())
	require.NoError(t, err, "Summarize always falls back to a deterministic assembly rather than erroring")

	data, readErr := os.ReadFile(outPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "fallback")
	assert.Equal(t, 1, ft.CallCount(), "a fatal stream error must not be retried")
}
