package config

import (
	"time"

	"github.com/anishi1222/reviewcrew/pkg/resilience/breaker"
	"github.com/anishi1222/reviewcrew/pkg/review"
)

// ResilienceRegistry maps an operation class to its full resilience
// tuning (breaker + retry), generalizing the teacher's per-chain/per-agent
// override-registry pattern to resilience tuning.
type ResilienceRegistry struct {
	tuning map[review.OperationClass]ResilienceTuning
}

// NewResilienceRegistry builds a registry from the merged tuning map.
func NewResilienceRegistry(tuning map[string]ResilienceTuning) *ResilienceRegistry {
	out := make(map[review.OperationClass]ResilienceTuning, len(tuning))
	for class, t := range tuning {
		out[review.OperationClass(class)] = t
	}
	return &ResilienceRegistry{tuning: out}
}

// BreakerConfigs returns the map suitable for breaker.NewRegistry.
func (r *ResilienceRegistry) BreakerConfigs() map[review.OperationClass]breaker.Config {
	out := make(map[review.OperationClass]breaker.Config, len(r.tuning))
	for class, t := range r.tuning {
		out[class] = breaker.Config{
			Threshold:       t.Threshold,
			OpenDuration:    time.Duration(t.OpenSeconds) * time.Second,
			BackoffFactor:   2,
			MaxOpenDuration: t.BackoffCap,
		}
	}
	return out
}

// MaxAttempts returns the configured retry max-attempts for class, or a
// conservative default of 2 if class has no tuning entry.
func (r *ResilienceRegistry) MaxAttempts(class review.OperationClass) int {
	if t, ok := r.tuning[class]; ok {
		return t.MaxAttempts
	}
	return 2
}
