// Package window keeps track of the UI surfaces that inbound events can be
// delivered to. The host application owns the windows; the registry only
// maps a label to something that can receive an event.
package window

import (
	"errors"
	"sort"
	"sync"
)

// ErrNoName is returned when registering a target without a label.
var ErrNoName = errors.New("window target has no name")

// Target is a named UI surface able to receive events.
type Target interface {
	Name() string
	// Emit delivers one event. It must not block on the caller for long;
	// hosts with a UI thread should hand the work to it and return.
	Emit(event, payload string) error
}

// FuncTarget adapts a function to the Target interface.
type FuncTarget struct {
	name string
	fn   func(event, payload string) error
}

// NewFuncTarget returns a Target named name that delivers through fn.
func NewFuncTarget(name string, fn func(event, payload string) error) *FuncTarget {
	return &FuncTarget{name: name, fn: fn}
}

// Name returns the target label.
func (t *FuncTarget) Name() string { return t.name }

// Emit calls the wrapped function.
func (t *FuncTarget) Emit(event, payload string) error { return t.fn(event, payload) }

// Registry maps window labels to targets. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Register adds t, replacing any target with the same name.
func (r *Registry) Register(t Target) error {
	name := t.Name()
	if name == "" {
		return ErrNoName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[name] = t
	return nil
}

// Unregister removes the target with the given name. It reports whether a
// target was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[name]; !ok {
		return false
	}
	delete(r.targets, name)
	return true
}

// Lookup returns the target registered under name.
func (r *Registry) Lookup(name string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	return t, ok
}

// Names returns the registered labels in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
