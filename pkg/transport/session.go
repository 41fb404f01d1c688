// Package transport defines the external contract the core review
// subsystem consumes from an LLM transport: a session factory, a stream of
// typed events, and idempotent cancel/close operations. No concrete network
// transport lives here — only the contract and an in-memory fake used by
// tests, mirroring the teacher's heavy use of hand-written fakes over
// interfaces rather than mocking frameworks.
package transport

import (
	"context"
	"errors"
)

// EventKind discriminates the members of the Event sum type.
type EventKind int

const (
	EventTextChunk EventKind = iota
	EventToolCall
	EventDone
	EventError
)

// ErrorKind classifies an EventError so callers can decide whether to
// retry. Idle timeout and deadline are detected by the reviewer itself
// (watchdog, context deadline) rather than reported as an ErrorKind, but a
// transport may also report them directly if it detects them first.
type ErrorKind int

const (
	ErrorKindTransient ErrorKind = iota
	ErrorKindFatal
	ErrorKindCancelled
)

// Event is a single item in a Session's event stream. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Event struct {
	Kind EventKind

	// EventTextChunk
	Text string

	// EventToolCall
	ToolName string
	ToolArgs string

	// EventError
	ErrKind ErrorKind
	Message string
}

// Session is a short-lived, exclusively-owned handle to one LLM
// invocation. Sessions are never reused across passes.
type Session interface {
	// Events returns a channel of stream events. The channel is closed
	// after a Done or Error event, or after Cancel/Close.
	Events() <-chan Event
	// Cancel is idempotent; it causes a pending Events() read to complete
	// with an EventError{ErrKind: ErrorKindCancelled}.
	Cancel()
	// Close is idempotent; always called from a scoped acquisition
	// (typically via defer immediately after OpenSession succeeds).
	Close()
}

// Implementation identifies the calling application to the transport at
// session-open time (name/version handshake fields).
type Implementation struct {
	Name    string
	Version string
}

// OpenOptions carries everything needed to open one session.
type OpenOptions struct {
	SystemPrompt    string
	UserPrompt      string
	ModelID         string
	ReasoningEffort string
	MCPServers      []string
	AuthToken       string
	Caller          Implementation
}

// OpenSession opens one bounded-start-up-time session against the
// transport. Implementations must honor ctx's deadline during start-up;
// callers are responsible for closing the returned Session.
type OpenSession func(ctx context.Context, opts OpenOptions) (Session, error)

// ErrSessionOpenFailed classifies an OpenSession failure as transient:
// session establishment can fail on transient upstream conditions (rate
// limiting, connection resets), so callers should wrap the underlying error
// with this sentinel and retry it under their normal retry budget.
var ErrSessionOpenFailed = errors.New("session establishment failed")

// ErrTransient wraps an EventError whose ErrKind is ErrorKindTransient, so
// callers can classify it with errors.Is instead of inspecting ErrKind.
var ErrTransient = errors.New("transient transport error")
