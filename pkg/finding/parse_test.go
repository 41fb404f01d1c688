package finding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

func TestParseSingleFinding(t *testing.T) {
	text := "### 1. SQL injection in user lookup\n\n" +
		"| **Priority** | High |\n" +
		"| **Location** | db/users.go:42 |\n" +
		"| **Summary** | Unsanitized input reaches a raw query |\n\n" +
		"Use parameterized queries instead of string concatenation.\n"

	findings := Parse(text)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "SQL injection in user lookup", f.Title)
	assert.Equal(t, review.PriorityHigh, f.Priority)
	assert.Equal(t, "db/users.go:42", f.Location)
	assert.Contains(t, f.Body, "parameterized queries")
	assert.NotEmpty(t, f.CanonicalTitle)
	assert.NotEmpty(t, f.CanonicalLocation)
}

func TestParseMultipleSections(t *testing.T) {
	text := "### 1. SQL injection\n\n| **Priority** | High |\n\nbody one\n\n" +
		"### 2. Reflected XSS\n\n| **Priority** | Medium |\n\nbody two\n"

	findings := Parse(text)
	require.Len(t, findings, 2)
	assert.Equal(t, "SQL injection", findings[0].Title)
	assert.Equal(t, "Reflected XSS", findings[1].Title)
}

func TestParseNoFindingsReturnsEmpty(t *testing.T) {
	findings := Parse("No issues found in this review.\n")
	assert.Empty(t, findings)
}

func TestCanonicalizeCollapsesFormattingAndCase(t *testing.T) {
	a := canonicalize("**SQL Injection** in `user` lookup")
	b := canonicalize("sql injection in user lookup")
	assert.Equal(t, b, a)
}

func TestDedupKeyStableAcrossEquivalentFindings(t *testing.T) {
	textA := "### 1. SQL Injection\n\n| **Priority** | High |\n| **Location** | db/users.go:42 |\n\nbody\n"
	textB := "### 1. sql injection\n\n| **Priority** | high |\n| **Location** | DB/Users.go:42 |\n\nbody\n"

	fa := Parse(textA)[0]
	fb := Parse(textB)[0]
	assert.Equal(t, fa.Key(), fb.Key())
}
