// Package sanitize implements the content sanitizer (C2): a total,
// never-failing pipeline that strips LLM preamble, chain-of-thought
// envelopes, and dangerous HTML from a single text value before it is
// treated as a finding report. The two-phase "structural maskers then
// general sweep" shape follows the teacher's MaskingService.applyMasking.
package sanitize

import (
	_ "embed"
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

//go:embed resources/cot_markers.yaml
var cotMarkersYAML []byte

type cotMarkersDoc struct {
	Markers []string `yaml:"markers"`
}

// fallbackCotMarkerRe is used only if the embedded resource fails to
// parse, so a loading failure never disables CoT stripping entirely.
var fallbackCotMarkerRe = regexp.MustCompile(`(?is)<think>.*?</think>|<reasoning>.*?</reasoning>`)

var (
	cotMarkerOnce sync.Once
	cotMarkerRe   *regexp.Regexp
)

func loadCotMarkerRe() *regexp.Regexp {
	cotMarkerOnce.Do(func() {
		var doc cotMarkersDoc
		if err := yaml.Unmarshal(cotMarkersYAML, &doc); err != nil || len(doc.Markers) == 0 {
			cotMarkerRe = fallbackCotMarkerRe
			return
		}
		cotMarkerRe = regexp.MustCompile(strings.Join(doc.Markers, "|"))
	})
	return cotMarkerRe
}

// rule is one pipeline step: a cheap pre-check that reports whether the
// transform has anything to do, and the transform itself. Pre-checks let a
// rule short-circuit when it would not rewrite the input, matching the
// "no rule may rewrite text it did not match" contract.
type rule struct {
	name      string
	matches   func(s string) bool
	transform func(s string) string
}

var preambleRe = regexp.MustCompile(`(?im)^\s*(here('s| is)\s|i('ll| will)\s+analyz|certainly,?\s|sure,?\s+(i'll|let me)|` +
	"```\\s*thinking" + `)`)

var headingOrFindingRe = regexp.MustCompile(`(?m)^(#{1,6}\s|\s*\|\s*\*\*|\s*###?\s*\d+\.)`)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

var sanitizerPolicy = newDangerousHTMLPolicy()

func newDangerousHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// UGCPolicy already drops <script>/<iframe>/event handlers/javascript:
	// and data: URIs; it is the library the pack reaches for rather than a
	// hand-rolled regex sweep of the same concerns.
	return p
}

var scriptLikeRe = regexp.MustCompile(`(?is)<script[\s>].*?</script>|<iframe[\s>].*?</iframe>|on\w+\s*=\s*["'][^"']*["']|javascript:|data:[^,]*;base64,`)

var rules = []rule{
	{
		name:    "preamble",
		matches: func(s string) bool { return preambleRe.MatchString(s) },
		transform: func(s string) string {
			loc := headingOrFindingRe.FindStringIndex(s)
			if loc == nil {
				return s
			}
			if !preambleRe.MatchString(s[:loc[0]]) {
				return s
			}
			return s[loc[0]:]
		},
	},
	{
		name: "cot-strip",
		matches: func(s string) bool {
			re := loadCotMarkerRe()
			return re.MatchString(s) || re.MatchString(html.UnescapeString(s))
		},
		transform: func(s string) string {
			// Decode entities first so an entity-encoded marker cannot
			// bypass the pattern, then strip.
			decoded := html.UnescapeString(s)
			return loadCotMarkerRe().ReplaceAllString(decoded, "")
		},
	},
	{
		name:    "dangerous-html",
		matches: func(s string) bool { return scriptLikeRe.MatchString(s) },
		transform: func(s string) string {
			return sanitizerPolicy.Sanitize(s)
		},
	},
	{
		name:      "whitespace",
		matches:   func(s string) bool { return blankRunRe.MatchString(s) },
		transform: func(s string) string { return blankRunRe.ReplaceAllString(s, "\n\n") },
	},
}

// Sanitize runs the ordered rule pipeline over rawText. It is total (never
// panics or returns an error) and idempotent: Sanitize(Sanitize(t)) ==
// Sanitize(t) for all t.
func Sanitize(rawText string) string {
	out := rawText
	for _, r := range rules {
		if !r.matches(out) {
			continue
		}
		out = r.transform(out)
	}
	return strings.TrimRight(out, " \t\n") + "\n"
}
