// Package finding implements the finding parser (C9): it locates
// "### <ordinal>. <title>" sections in sanitized Markdown, reads the
// two-column attribute table that follows each, and derives the canonical
// dedup key. Section boundaries are found by walking a goldmark AST (the
// same parse-to-AST-then-walk shape as the teacher's Telegram Markdown
// renderer), generalized from HTML emission to structured-field
// extraction; the attribute rows themselves are read from the raw section
// text since the spec explicitly admits either a literal pipe-table or a
// bare `| **key** | value |` line sequence, which a table-AST walk alone
// would not catch.
package finding

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var sectionHeadingRe = regexp.MustCompile(`^\s*\d+\.\s+(.+)$`)

var kvRe = regexp.MustCompile(`(?i)^\s*\|\s*\*{0,2}([a-z][a-z \-]*)\*{0,2}\s*\|\s*(.+?)\s*\|?\s*$`)

var titleNormalizeRe = regexp.MustCompile(`[|/·•]+`)
var formattingCharsRe = regexp.MustCompile(`[*_` + "`" + `~]+`)
var whitespaceRunRe = regexp.MustCompile(`\s+`)

// canonicalize lowercases s, collapses pipes/slashes/middle-dots to spaces,
// strips Markdown formatting characters, and collapses internal whitespace.
func canonicalize(s string) string {
	s = strings.ToLower(s)
	s = titleNormalizeRe.ReplaceAllString(s, " ")
	s = formattingCharsRe.ReplaceAllString(s, "")
	s = whitespaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

type rawSection struct {
	title string
	body  string
}

// splitSections walks the goldmark AST for sanitizedText and returns one
// rawSection per heading line matching "<ordinal>. <title>", with body
// being every byte between this heading and the next matching heading (or
// end of document).
func splitSections(sanitizedText string) []rawSection {
	src := []byte(sanitizedText)
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	type headingLoc struct {
		title string
		start int
	}
	var locs []headingLoc

	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		h, ok := child.(*ast.Heading)
		if !ok {
			continue
		}
		headingStr := headingText(h, src)
		m := sectionHeadingRe.FindStringSubmatch(headingStr)
		if m == nil {
			continue
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			continue
		}
		start := lines.At(0).Start
		// The heading's line segment begins after the "###" marker; back up
		// to the start of the line so the marker belongs to this section
		// rather than to the tail of the previous one.
		for start > 0 && src[start-1] != '\n' {
			start--
		}
		locs = append(locs, headingLoc{title: strings.TrimSpace(m[1]), start: start})
	}

	sections := make([]rawSection, 0, len(locs))
	for i, loc := range locs {
		end := len(src)
		if i+1 < len(locs) {
			end = locs[i+1].start
		}
		sections = append(sections, rawSection{title: loc.title, body: string(src[loc.start:end])})
	}
	return sections
}

func headingText(h *ast.Heading, src []byte) string {
	var buf bytes.Buffer
	for child := h.FirstChild(); child != nil; child = child.NextSibling() {
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
		}
	}
	return buf.String()
}

// Parse extracts findings from already-sanitized Markdown. Text with no
// detected finding header produces an empty list.
func Parse(sanitizedText string) []review.Finding {
	sections := splitSections(sanitizedText)
	findings := make([]review.Finding, 0, len(sections))
	for _, sec := range sections {
		findings = append(findings, parseSection(sec))
	}
	return findings
}

func parseSection(sec rawSection) review.Finding {
	attrs := make(map[string]string)
	var bodyLines []string
	inAttrBlock := true

	lines := strings.Split(sec.body, "\n")
	// Skip the heading line itself.
	if len(lines) > 0 {
		lines = lines[1:]
	}
	for _, line := range lines {
		if m := kvRe.FindStringSubmatch(line); m != nil {
			key := strings.ToLower(strings.TrimSpace(m[1]))
			attrs[key] = strings.TrimSpace(m[2])
			continue
		}
		trimmed := strings.TrimSpace(line)
		if inAttrBlock && (trimmed == "" || isTableSeparator(trimmed)) {
			continue
		}
		inAttrBlock = false
		bodyLines = append(bodyLines, line)
	}

	priority := review.Priority(firstNonEmpty(attrs, "priority"))
	location := firstNonEmpty(attrs, "location")
	summary := firstNonEmpty(attrs, "summary", "description")

	f := review.Finding{
		Title:    sec.title,
		Priority: priority,
		Summary:  summary,
		Location: location,
		Body:     strings.TrimSpace(strings.Join(bodyLines, "\n")),
	}
	f.CanonicalTitle = canonicalize(f.Title)
	f.CanonicalLocation = canonicalize(f.Location)
	return f
}

func isTableSeparator(line string) bool {
	if !strings.HasPrefix(line, "|") {
		return false
	}
	for _, r := range line {
		switch r {
		case '|', '-', ':', ' ':
			continue
		default:
			return false
		}
	}
	return true
}

func firstNonEmpty(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := attrs[k]; ok && v != "" {
			return v
		}
	}
	return ""
}
