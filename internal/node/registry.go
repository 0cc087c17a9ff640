package node

import "sync"

// Constructor builds one Runtime from its construction-time Config.
// Concrete node types (internal/components.PIDNode, internal/estimator
// nodes, project-defined nodes) register one of these under a dotted
// name with a Registry.
type Constructor func(Config) (Runtime, error)

// Registry is a name -> Constructor table. internal/launcher resolves
// each config.NodeConfig.Type against a project Registry first, then
// the framework's built-in Registry (internal/components.Builtins).
// Registered names stand in for dynamic class loading: the table is
// populated at init time instead of resolving arbitrary code by dotted
// path at runtime.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty Registry, ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register makes ctor available under name. Re-registering the same
// name overwrites the previous constructor — useful for tests that
// stub a built-in out.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// Resolve looks name up in this Registry only — it does not fall
// through to any other table. internal/launcher.Launch implements the
// project-then-builtin fallback by trying the project Registry first.
func (r *Registry) Resolve(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[name]
	return ctor, ok
}

// Names returns every registered name, for diagnostics (e.g. an
// "unresolvable node type" error listing what was available).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	return names
}
