package transport

import (
	"context"
	"errors"
	"sync"
)

// FakeScript describes how a FakeTransport should respond to the Nth call
// (1-indexed) made through it.
type FakeScript struct {
	// Err, if non-nil, makes OpenSession itself fail (session establishment
	// failure) instead of returning a session.
	Err error
	// Chunks are emitted as EventTextChunk events in order, then a Done
	// event, unless Fail is set.
	Chunks []string
	// Fail, if non-nil, is emitted as a terminal EventError instead of Done.
	Fail *Event
	// Stall, if true, never emits Done/Error until Cancel is called; used to
	// exercise idle-timeout and deadline behavior.
	Stall bool
}

// FakeTransport is an in-memory Session factory driven by a fixed script,
// one entry per call. If more calls are made than scripted entries, the
// last entry repeats. Grounded on the teacher's pattern of hand-written
// fakes over interfaces in its test suites rather than a mocking framework.
type FakeTransport struct {
	mu     sync.Mutex
	script []FakeScript
	calls  int
}

// NewFakeTransport builds a FakeTransport that replays script in order.
func NewFakeTransport(script ...FakeScript) *FakeTransport {
	return &FakeTransport{script: script}
}

// CallCount returns the number of OpenSession invocations observed so far.
func (f *FakeTransport) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Open implements OpenSession.
func (f *FakeTransport) Open(ctx context.Context, opts OpenOptions) (Session, error) {
	f.mu.Lock()
	f.calls++
	idx := f.calls - 1
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	if idx < 0 {
		f.mu.Unlock()
		return nil, errors.New("fake transport: empty script")
	}
	entry := f.script[idx]
	f.mu.Unlock()

	if entry.Err != nil {
		return nil, entry.Err
	}

	s := &fakeSession{
		events: make(chan Event, len(entry.Chunks)+1),
		done:   make(chan struct{}),
	}
	for _, c := range entry.Chunks {
		s.events <- Event{Kind: EventTextChunk, Text: c}
	}
	if entry.Stall {
		go s.waitForCancel(ctx)
	} else if entry.Fail != nil {
		s.events <- *entry.Fail
		close(s.events)
	} else {
		s.events <- Event{Kind: EventDone}
		close(s.events)
	}
	return s, nil
}

type fakeSession struct {
	events    chan Event
	closeOnce sync.Once
	done      chan struct{}
}

func (s *fakeSession) Events() <-chan Event { return s.events }

// waitForCancel blocks until the session is cancelled/closed or ctx is
// done, then delivers a cancellation event so a blocked Events() reader
// unblocks instead of hanging forever.
func (s *fakeSession) waitForCancel(ctx context.Context) {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	s.events <- Event{Kind: EventError, ErrKind: ErrorKindCancelled, Message: "cancelled"}
	close(s.events)
}

func (s *fakeSession) Cancel() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *fakeSession) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
