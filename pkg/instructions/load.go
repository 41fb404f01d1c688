// Package instructions loads custom instructions from explicit paths and,
// when the trust flag is set, from target-discovered paths, validating
// every candidate through the instruction safety validator (C3) before it
// becomes a review.CustomInstruction. Rejections are always audited;
// per the documented current behavior, no summary record distinguishes
// "no instructions found" from "all instructions rejected" when the trust
// flag is set but nothing safe is found — only the individual rejections.
package instructions

import (
	"os"

	"github.com/anishi1222/reviewcrew/pkg/audit"
	"github.com/anishi1222/reviewcrew/pkg/review"
	"github.com/anishi1222/reviewcrew/pkg/validate"
)

// Candidate is one instruction file before validation.
type Candidate struct {
	Path        string
	Source      review.InstructionSource
	ApplyTo     string
	Description string
}

// LoadAndValidate reads each candidate's content and runs it through the
// validator. Discovered candidates are skipped entirely unless trustFlag is
// set; explicit candidates are always validated. Safe instructions are
// returned; every rejection (and every discovered-but-untrusted skip) is
// recorded via auditLog.
func LoadAndValidate(candidates []Candidate, trustFlag bool, auditLog *audit.Logger) []review.CustomInstruction {
	var out []review.CustomInstruction
	for _, c := range candidates {
		if c.Source == review.InstructionDiscovered && !trustFlag {
			if auditLog != nil {
				auditLog.Record(audit.EventTrustBoundary, "skip",
					"discovered instruction skipped: trust flag not set",
					"sourcePath", c.Path,
				)
			}
			continue
		}

		data, err := os.ReadFile(c.Path)
		if err != nil {
			continue
		}
		content := string(data)

		trusted := c.Source == review.InstructionDiscovered
		result := validate.Validate(content, trusted)
		if !result.Safe {
			if auditLog != nil {
				auditLog.Record(audit.EventInstructionValidation, "reject",
					"custom instruction rejected by safety validator",
					"sourcePath", c.Path,
					"ruleClass", result.Reason,
					"trusted", trusted,
					"byteLength", len(content),
				)
			}
			continue
		}

		out = append(out, review.CustomInstruction{
			SourcePath:  c.Path,
			Content:     content,
			Source:      c.Source,
			ApplyTo:     c.ApplyTo,
			Description: c.Description,
		})
	}
	return out
}
