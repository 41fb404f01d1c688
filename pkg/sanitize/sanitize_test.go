package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"Sure, I'll analyze this.\n### 1. SQL injection\n\n| **Priority** | High |\n",
		"<think>internal musing</think>\n### 1. Finding\n\nbody text\n\n\n\nmore text",
		"plain text with no markers at all",
		"<script>alert(1)</script>### 1. XSS\n\nbody",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		assert.Equal(t, once, twice, "Sanitize must be idempotent for input %q", in)
	}
}

func TestSanitizeStripsPreamble(t *testing.T) {
	in := "Sure, I'll analyze this codebase for you.\n### 1. SQL injection\n\n| **Priority** | High |\n"
	out := Sanitize(in)
	assert.False(t, strings.Contains(out, "Sure, I'll analyze"))
	assert.True(t, strings.Contains(out, "### 1. SQL injection"))
}

func TestSanitizeStripsChainOfThought(t *testing.T) {
	in := "<think>secret reasoning about the user</think>### 1. Finding\n\nbody"
	out := Sanitize(in)
	assert.False(t, strings.Contains(out, "secret reasoning"))
}

func TestSanitizeStripsEntityEncodedChainOfThought(t *testing.T) {
	in := "&lt;think&gt;hidden&lt;/think&gt;### 1. Finding\n\nbody"
	out := Sanitize(in)
	assert.False(t, strings.Contains(out, "hidden"))
}

func TestSanitizeStripsDangerousHTML(t *testing.T) {
	in := "### 1. XSS\n\n<script>alert(document.cookie)</script>\n\nbody text"
	out := Sanitize(in)
	assert.False(t, strings.Contains(out, "<script>"))
}

func TestSanitizeNeverPanics(t *testing.T) {
	inputs := []string{"", "\x00\x01", strings.Repeat("a", 10000), "<<<<>>>>", "```thinking\nstuff\n```"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Sanitize(in) })
	}
}
