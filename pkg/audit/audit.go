// Package audit implements the security audit log (C13): structured
// records emitted under a distinct logger name so downstream log shippers
// can route them separately, the same "distinct logger via slog.With"
// idiom the teacher uses for worker and execution scoping
// (slog.With("worker_id", ...), slog.With("parent_exec_id", ...)).
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Event names the kind of security-relevant occurrence being recorded.
type Event string

const (
	EventAuth                 Event = "auth"
	EventTrustBoundary        Event = "trust-boundary"
	EventInstructionValidation Event = "instruction-validation"
	EventTokenRedaction       Event = "token-redaction"
)

// Logger emits structured audit records under a dedicated logger name.
// Tokens and instruction contents must never be passed as attributes;
// callers pass only hashes and lengths.
type Logger struct {
	base *slog.Logger
}

// New wraps base with the "security_audit" logger name.
func New(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base.With("logger", "security_audit")}
}

// Record emits one audit record at info level with a stable schema:
// {event, action, message, attributes}.
func (l *Logger) Record(event Event, action, message string, attrs ...any) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, "event", string(event), "action", action)
	args = append(args, attrs...)
	l.base.Info(message, args...)
}

// Warn emits one audit record at warn level with the same schema as Record.
func (l *Logger) Warn(event Event, action, message string, attrs ...any) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, "event", string(event), "action", action)
	args = append(args, attrs...)
	l.base.Warn(message, args...)
}

// Base returns the underlying *slog.Logger, for callers (e.g. watchdog.Arm)
// that need a plain logger rather than the audit event schema.
func (l *Logger) Base() *slog.Logger {
	return l.base
}

// HashToken returns the hex SHA-256 hash of token, the only form a token
// may ever take inside an audit record.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
