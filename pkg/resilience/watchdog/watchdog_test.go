package watchdog

import (
	"bytes"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArmFiresCancelAfterIdle(t *testing.T) {
	var fired atomic.Bool
	sched := NewScheduler()
	defer sched.Shutdown()

	armed := Arm(sched, 10*time.Millisecond, func() { fired.Store(true) }, nil)
	defer armed.Disarm()

	time.Sleep(50 * time.Millisecond)
	assert.True(t, fired.Load())
}

func TestArmTouchResetsIdleClock(t *testing.T) {
	var fired atomic.Bool
	sched := NewScheduler()
	defer sched.Shutdown()

	armed := Arm(sched, 20*time.Millisecond, func() { fired.Store(true) }, nil)
	defer armed.Disarm()

	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		armed.Touch()
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, fired.Load(), "repeated touches should keep the watchdog from firing")
}

func TestArmDisarmPreventsFire(t *testing.T) {
	var fired atomic.Bool
	sched := NewScheduler()
	defer sched.Shutdown()

	armed := Arm(sched, 10*time.Millisecond, func() { fired.Store(true) }, nil)
	armed.Disarm()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestArmFallsBackToNoopWhenSchedulerIsNil(t *testing.T) {
	var fired atomic.Bool
	armed := Arm(nil, time.Millisecond, func() { fired.Store(true) }, nil)

	assert.NotPanics(t, armed.Touch)
	assert.NotPanics(t, armed.Disarm)
	time.Sleep(5 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestArmFallsBackToNoopWhenSchedulerShutdown(t *testing.T) {
	sched := NewScheduler()
	sched.Shutdown()

	var fired atomic.Bool
	armed := Arm(sched, time.Millisecond, func() { fired.Store(true) }, nil)
	time.Sleep(5 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.NotPanics(t, armed.Disarm)
}

func TestArmWarnsViaLoggerWhenSchedulerUnavailable(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	armed := Arm(nil, time.Millisecond, func() {}, logger)
	assert.NotPanics(t, armed.Disarm)
	assert.Contains(t, buf.String(), "watchdog scheduler unavailable")
}

func TestArmDoesNotWarnWhenSchedulerAvailable(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sched := NewScheduler()
	defer sched.Shutdown()

	armed := Arm(sched, 10*time.Millisecond, func() {}, logger)
	armed.Disarm()
	assert.Empty(t, buf.String())
}
