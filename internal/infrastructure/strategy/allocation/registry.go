package allocation

import (
	"fmt"

	"github.com/poscore/backend/internal/domain/ledger"
)

// Registry resolves allocation planners by policy name.
type Registry struct {
	planners map[ledger.Policy]ledger.Planner
}

// NewRegistry creates a registry holding the built-in planners.
func NewRegistry() *Registry {
	r := &Registry{planners: make(map[ledger.Policy]ledger.Planner)}
	r.Register(NewFIFOPlanner())
	r.Register(NewWeightedAveragePlanner())
	return r
}

// Register adds or replaces a planner for its policy
func (r *Registry) Register(p ledger.Planner) {
	r.planners[p.Policy()] = p
}

// Get returns the planner for the given policy
func (r *Registry) Get(policy ledger.Policy) (ledger.Planner, error) {
	p, ok := r.planners[policy]
	if !ok {
		return nil, fmt.Errorf("no allocation planner registered for policy %q", policy)
	}
	return p, nil
}
