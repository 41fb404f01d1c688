// Package merge implements the multi-pass merger (C10): it folds the
// findings of every successful pass of one agent into a set of
// AggregatedFindings, suppressing near-duplicates, and renders the merged
// Markdown. The near-duplicate index is an inverted index keyed by
// (priority, title-prefix), avoiding an O(N^2) all-pairs scan, as the
// design notes prescribe.
package merge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/anishi1222/reviewcrew/pkg/finding"
	"github.com/anishi1222/reviewcrew/pkg/review"
)

// SimilarityThreshold is the Jaccard token-overlap threshold above which
// two findings are treated as the same issue. Fixed at 0.82; it is a
// compile-time constant and no configuration key changes it.
const SimilarityThreshold = 0.82

// titlePrefixLen bounds the inverted-index key to the first N characters
// of the canonical title, enough to narrow candidates without requiring an
// exact prefix match between near-duplicate titles.
const titlePrefixLen = 12

type indexKey struct {
	priority string
	prefix   string
}

func keyFor(f review.Finding) indexKey {
	title := f.CanonicalTitle
	if len(title) > titlePrefixLen {
		title = title[:titlePrefixLen]
	}
	return indexKey{priority: strings.ToLower(string(f.Priority)), prefix: title}
}

// Merge folds passResults (all belonging to one agent) into an AgentResult.
// The set of dedup keys and the union of pass numbers per key do not depend
// on the order of passResults; only the first-seen ordinal in the emitted
// output does.
func Merge(agentName string, passResults []review.PassResult) review.AgentResult {
	var successful []review.PassResult
	for _, pr := range passResults {
		if pr.Success {
			successful = append(successful, pr)
		}
	}

	if len(successful) == 0 {
		lastErr := ""
		if len(passResults) > 0 {
			lastErr = passResults[len(passResults)-1].Error
		}
		return review.AgentResult{
			AgentName: agentName,
			Success:   false,
			Passes:    passResults,
			Error:     lastErr,
		}
	}

	m := newMerger()
	for _, pr := range successful {
		findings := finding.Parse(pr.Content)
		if len(findings) == 0 {
			m.addFallback(pr.Content, pr.Pass)
			continue
		}
		for _, f := range findings {
			m.addFinding(f, pr.Pass)
		}
	}

	return review.AgentResult{
		AgentName: agentName,
		Success:   true,
		Content:   m.render(),
		Passes:    passResults,
	}
}

type merger struct {
	byKey      map[review.DedupKey]*review.AggregatedFinding
	order      []review.DedupKey
	index      map[indexKey][]*review.AggregatedFinding
	fallbacks  map[string]*fallbackBlock
	fbOrder    []string
}

type fallbackBlock struct {
	text  string
	passes []int
}

func newMerger() *merger {
	return &merger{
		byKey:     make(map[review.DedupKey]*review.AggregatedFinding),
		index:     make(map[indexKey][]*review.AggregatedFinding),
		fallbacks: make(map[string]*fallbackBlock),
	}
}

func (m *merger) addFinding(f review.Finding, pass int) {
	key := f.Key()
	if agg, ok := m.byKey[key]; ok {
		agg.AddPass(pass)
		return
	}

	ik := keyFor(f)
	best := m.bestCandidate(ik, f)
	if best != nil {
		best.AddPass(pass)
		return
	}

	agg := &review.AggregatedFinding{Finding: f, PassNumbers: []int{pass}}
	m.byKey[key] = agg
	m.order = append(m.order, key)
	m.index[ik] = append(m.index[ik], agg)
}

func (m *merger) bestCandidate(ik indexKey, f review.Finding) *review.AggregatedFinding {
	candidates := m.index[ik]
	target := tokenSet(f.CanonicalTitle + " " + f.CanonicalLocation)

	var best *review.AggregatedFinding
	bestScore := 0.0
	for _, c := range candidates {
		score := jaccard(target, tokenSet(c.Finding.CanonicalTitle+" "+c.Finding.CanonicalLocation))
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore > SimilarityThreshold {
		return best
	}
	return nil
}

func (m *merger) addFallback(text string, pass int) {
	norm := strings.TrimSpace(text)
	if fb, ok := m.fallbacks[norm]; ok {
		fb.passes = append(fb.passes, pass)
		return
	}
	fb := &fallbackBlock{text: norm, passes: []int{pass}}
	m.fallbacks[norm] = fb
	m.fbOrder = append(m.fbOrder, norm)
}

func tokenSet(s string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// render emits merged Markdown: findings renumbered in first-seen order,
// each annotated with "detection passes: k, l, ..." when seen in more than
// one pass, followed by deduplicated fallback blocks.
func (m *merger) render() string {
	var b strings.Builder
	for i, key := range m.order {
		agg := m.byKey[key]
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, agg.Finding.Title)
		fmt.Fprintf(&b, "| **Priority** | %s |\n", agg.Finding.Priority)
		if agg.Finding.Location != "" {
			fmt.Fprintf(&b, "| **Location** | %s |\n", agg.Finding.Location)
		}
		if agg.Finding.Summary != "" {
			fmt.Fprintf(&b, "| **Summary** | %s |\n", agg.Finding.Summary)
		}
		b.WriteString("\n")
		if agg.Finding.Body != "" {
			b.WriteString(agg.Finding.Body)
			b.WriteString("\n\n")
		}
		if len(agg.PassNumbers) > 1 {
			passes := make([]int, len(agg.PassNumbers))
			copy(passes, agg.PassNumbers)
			sort.Ints(passes)
			strs := make([]string, len(passes))
			for j, p := range passes {
				strs[j] = strconv.Itoa(p)
			}
			fmt.Fprintf(&b, "_detection passes: %s_\n\n", strings.Join(strs, ", "))
		}
	}
	for _, norm := range m.fbOrder {
		fb := m.fallbacks[norm]
		b.WriteString(fb.text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}
