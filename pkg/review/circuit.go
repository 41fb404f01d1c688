package review

import "time"

// BreakerPhase is a circuit breaker's current phase.
type BreakerPhase int

const (
	BreakerClosed BreakerPhase = iota
	BreakerOpen
	BreakerHalfOpen
)

func (p BreakerPhase) String() string {
	switch p {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitState is the per-operation-class state of a circuit breaker. It is
// process-wide and reset only on process restart; pkg/resilience/breaker
// owns serializing access to it per instance.
type CircuitState struct {
	Class                    OperationClass
	Phase                    BreakerPhase
	ConsecutiveFailures      int
	OpenSince                time.Time
	ConsecutiveHalfOpenFails int
}
