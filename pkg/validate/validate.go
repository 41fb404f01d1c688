// Package validate implements the instruction safety validator (C3):
// NFKC-normalizes a candidate instruction to neutralize homoglyph attacks,
// then scans it against a denylist of suspicious patterns loaded once from
// an embedded resource, mirroring the teacher's
// config.GetBuiltinConfig()-style embedded-singleton loading.
package validate

import (
	_ "embed"
	"regexp"
	"sync"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed resources/denylist.yaml
var denylistYAML []byte

type denylistDoc struct {
	Groups []struct {
		Class    string   `yaml:"class"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"groups"`
}

type compiledGroup struct {
	class    string
	patterns []*regexp.Regexp
}

var (
	denylistOnce sync.Once
	denylist     []compiledGroup
)

func loadDenylist() {
	var doc denylistDoc
	if err := yaml.Unmarshal(denylistYAML, &doc); err != nil {
		// The built-in resource is compiled into the binary and covered by
		// tests; a parse failure here is a programmer error, not a runtime
		// condition callers can recover from.
		panic("validate: malformed embedded denylist resource: " + err.Error())
	}
	for _, g := range doc.Groups {
		cg := compiledGroup{class: g.Class}
		for _, p := range g.Patterns {
			cg.patterns = append(cg.patterns, regexp.MustCompile(p))
		}
		denylist = append(denylist, cg)
	}
}

func getDenylist() []compiledGroup {
	denylistOnce.Do(loadDenylist)
	return denylist
}

// Result is the outcome of validating one instruction.
type Result struct {
	Safe   bool
	Reason string // rule class name only, never the matched literal
}

// Validate checks instruction for safety. trusted indicates whether the
// instruction originated from a target-discovered source that has already
// passed the trust-flag gate; discovered instructions still run through
// the same denylist as explicit ones once they reach here.
func Validate(instruction string, trusted bool) Result {
	_ = trusted // same rule set applies regardless; trust only gates reachability upstream
	normalized := norm.NFKC.String(instruction)
	for _, group := range getDenylist() {
		for _, pattern := range group.patterns {
			if pattern.MatchString(normalized) {
				return Result{Safe: false, Reason: group.class}
			}
		}
	}
	return Result{Safe: true}
}
