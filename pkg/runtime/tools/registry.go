package tools

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps tool names to definitions. Custom tools can be registered at
// any time; a fallback handler, when set, catches invocations of names the
// registry does not know instead of rejecting them.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*Definition
	fallback Handler
}

func NewRegistry() *Registry {
	return &Registry{
		tools: map[string]*Definition{},
	}
}

func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Name == "" {
		return errors.New("tool definition must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return errors.Errorf("tool %q already registered", def.Name)
	}
	r.tools[def.Name] = def
	return nil
}

func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Known reports whether name resolves to a registered or builtin tool.
func (r *Registry) Known(name string) bool {
	if IsBuiltin(name) {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definitions returns all registered definitions sorted by name. This is the
// shape handed to a provider to advertise the available tools and their
// parameter schemas.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.tools))
	for _, def := range r.tools {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetFallback installs the handler used for tool names the registry does not
// know. Pass nil to clear.
func (r *Registry) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Fallback returns the unknown-name handler, if any.
func (r *Registry) Fallback() (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback, r.fallback != nil
}
