package config

import (
	"fmt"
	"sync"

	"github.com/anishi1222/reviewcrew/pkg/review"
)

// AgentRegistry stores agent configurations with thread-safe access,
// mirroring the teacher's config.AgentRegistry/config.ChainRegistry shape:
// a defensive copy on construction, RWMutex-guarded reads, a defensive
// copy again on All.
type AgentRegistry struct {
	agents map[string]review.AgentConfig
	mu     sync.RWMutex
}

// NewAgentRegistry validates and constructs a registry. At least one agent
// must exist and names must be unique, per the AgentConfig invariant.
func NewAgentRegistry(agents []review.AgentConfig) (*AgentRegistry, error) {
	if len(agents) == 0 {
		return nil, NewValidationError("agent", "", "", ErrNoAgents)
	}
	copied := make(map[string]review.AgentConfig, len(agents))
	for _, a := range agents {
		if _, exists := copied[a.Name]; exists {
			return nil, NewValidationError("agent", a.Name, "name", ErrDuplicateAgentName)
		}
		copied[a.Name] = a
	}
	return &AgentRegistry{agents: copied}, nil
}

// Get retrieves an agent configuration by name.
func (r *AgentRegistry) Get(name string) (review.AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return review.AgentConfig{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

// All returns every agent configuration, in no particular order.
func (r *AgentRegistry) All() []review.AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]review.AgentConfig, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}
