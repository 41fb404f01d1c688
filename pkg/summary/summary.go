// Package summary implements the executive summarizer (C12): it builds a
// capped summary prompt from every agent's merged content, runs it through
// the same session/retry/circuit-breaker path as an agent pass but against
// the dedicated "summary" operation class, and writes one Markdown file.
// On persistent failure it falls back to a deterministic Markdown assembly
// from the merged findings themselves.
package summary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anishi1222/reviewcrew/pkg/resilience/breaker"
	"github.com/anishi1222/reviewcrew/pkg/resilience/retry"
	"github.com/anishi1222/reviewcrew/pkg/review"
	"github.com/anishi1222/reviewcrew/pkg/sanitize"
	"github.com/anishi1222/reviewcrew/pkg/transport"
)

// Config tunes the summarizer's budgets and timing.
type Config struct {
	MaxContentPerAgent    int
	MaxTotalPromptContent int
	FallbackExcerptLength int
	SummaryTimeout        time.Duration
	MaxRetries            int
	ModelID               string
	ReasoningEffort       string
}

// Summarizer produces the executive summary file for one run.
type Summarizer struct {
	cfg      Config
	open     transport.OpenSession
	breakers *breaker.Registry
}

// New constructs a Summarizer.
func New(cfg Config, open transport.OpenSession, breakers *breaker.Registry) *Summarizer {
	return &Summarizer{cfg: cfg, open: open, breakers: breakers}
}

// Summarize builds the summary prompt, attempts the LLM-backed summary
// under the "summary" operation class, and writes outputPath. The file name
// is whatever outputPath says; Summarize does not read runTimestamp, so the
// caller derives outputPath from the run's own timestamp (as cmd/reviewcrew
// does) to align it with the run's directory stamp.
func (s *Summarizer) Summarize(ctx context.Context, results []review.AgentResult, targetDisplayName string, outputPath string, runTimestamp time.Time) error {
	prompt, omittedAgents := s.buildPrompt(results, targetDisplayName)

	content, err := s.runSummaryLLM(ctx, prompt)
	if err != nil {
		content = s.fallback(results, targetDisplayName, omittedAgents)
	} else {
		content = sanitize.Sanitize(content)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o700); err != nil {
		return fmt.Errorf("summary: create output dir: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("summary: write %s: %w", outputPath, err)
	}
	return nil
}

func (s *Summarizer) buildPrompt(results []review.AgentResult, targetDisplayName string) (string, []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following code review findings for %s.\n\n", targetDisplayName)

	total := 0
	var omitted []string
	for _, r := range results {
		content := r.Content
		truncated := false
		if len(content) > s.cfg.MaxContentPerAgent {
			content = content[:s.cfg.MaxContentPerAgent]
			truncated = true
		}
		if total+len(content) > s.cfg.MaxTotalPromptContent {
			omitted = append(omitted, r.AgentName)
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s", r.AgentName, content)
		if truncated {
			b.WriteString("\n[truncated]")
		}
		b.WriteString("\n\n")
		total += len(content)
	}
	if len(omitted) > 0 {
		fmt.Fprintf(&b, "Note: omitted due to global content budget: %s\n", strings.Join(omitted, ", "))
	}
	return b.String(), omitted
}

var errEmptySummary = errors.New("empty summary response")

// classify mirrors the reviewer's transient/fatal split: an empty response,
// a deadline, a session-open failure, or a transport-reported transient
// error are all worth retrying under the summarizer's own retry budget;
// everything else (auth failures, malformed requests) is fatal.
func classify(err error) retry.Classification {
	switch {
	case errors.Is(err, errEmptySummary):
		return retry.Transient()
	case errors.Is(err, context.DeadlineExceeded):
		return retry.Transient()
	case errors.Is(err, transport.ErrSessionOpenFailed), errors.Is(err, transport.ErrTransient):
		return retry.Transient()
	default:
		return retry.Fatal()
	}
}

func (s *Summarizer) runSummaryLLM(ctx context.Context, prompt string) (string, error) {
	if s.open == nil {
		return "", errors.New("no transport configured for summary")
	}

	b := s.breakers.Get(review.OpSummary)
	if err := b.Admit(); err != nil {
		return "", err
	}

	var content string
	cfg := retry.Config{MaxAttempts: s.cfg.MaxRetries, Base: 500 * time.Millisecond}
	runErr := retry.Do(ctx, cfg, classify, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.SummaryTimeout)
		defer cancel()

		sess, err := s.open(attemptCtx, transport.OpenOptions{
			SystemPrompt: "You are an executive summarizer for code review findings.",
			UserPrompt:   prompt,
			ModelID:      s.cfg.ModelID,
			ReasoningEffort: s.cfg.ReasoningEffort,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", transport.ErrSessionOpenFailed, err)
		}
		defer sess.Close()

		var out strings.Builder
		for {
			select {
			case <-attemptCtx.Done():
				sess.Cancel()
				return attemptCtx.Err()
			case ev, ok := <-sess.Events():
				if !ok {
					if out.Len() == 0 {
						return errEmptySummary
					}
					content = out.String()
					return nil
				}
				switch ev.Kind {
				case transport.EventTextChunk:
					out.WriteString(ev.Text)
				case transport.EventDone:
					if out.Len() == 0 {
						return errEmptySummary
					}
					content = out.String()
					return nil
				case transport.EventError:
					if ev.ErrKind == transport.ErrorKindTransient {
						return fmt.Errorf("%w: %s", transport.ErrTransient, ev.Message)
					}
					return errors.New(ev.Message)
				}
			}
		}
	})
	b.Record(runErr == nil)
	if runErr != nil {
		return "", runErr
	}
	return content, nil
}

// fallback assembles a deterministic Markdown summary from merged findings
// and per-agent success/failure status, using a fixed-length excerpt from
// each agent's content.
func (s *Summarizer) fallback(results []review.AgentResult, targetDisplayName string, omittedAgents []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Executive Summary (fallback): %s\n\n", targetDisplayName)
	fmt.Fprintf(&b, "_Generated deterministically; the summary model was unavailable._\n\n")

	for _, r := range results {
		status := "succeeded"
		if !r.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "## %s (%s)\n\n", r.AgentName, status)
		if !r.Success {
			fmt.Fprintf(&b, "Error: %s\n\n", r.Error)
			continue
		}
		excerpt := r.Content
		if len(excerpt) > s.cfg.FallbackExcerptLength {
			excerpt = excerpt[:s.cfg.FallbackExcerptLength] + "…"
		}
		b.WriteString(excerpt)
		b.WriteString("\n\n")
	}
	if len(omittedAgents) > 0 {
		fmt.Fprintf(&b, "_Omitted from the prompt due to content budget: %s_\n", strings.Join(omittedAgents, ", "))
	}
	return b.String()
}
