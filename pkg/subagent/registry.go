package subagent

import "fmt"

// Registry resolves an agent by name. Population — reading agent YAML
// files from disk — happens outside this package; Registry only ever
// holds already-parsed AgentSpec values.
type Registry struct {
	specs map[string]AgentSpec
}

// NewRegistry builds a Registry from specs, keyed by their Name field.
func NewRegistry(specs []AgentSpec) *Registry {
	r := &Registry{specs: make(map[string]AgentSpec, len(specs))}
	for _, s := range specs {
		r.specs[s.Name] = s
	}
	return r
}

// Get returns the spec named name, or an error if no such agent exists.
func (r *Registry) Get(name string) (AgentSpec, error) {
	s, ok := r.specs[name]
	if !ok {
		return AgentSpec{}, fmt.Errorf("subagent: unknown agent %q", name)
	}
	return s, nil
}
