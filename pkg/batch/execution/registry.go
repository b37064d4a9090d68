package execution

import (
	"sort"
	"sync"

	"etlflow/pkg/batch/job/core"
	"etlflow/pkg/batch/util/exception"
)

// Registry maps locators to configured executables.
type Registry struct {
	mu    sync.RWMutex
	items map[core.Locator]core.Executable
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[core.Locator]core.Executable)}
}

// Register adds e under its locator. A locator can only be registered once.
func (r *Registry) Register(e core.Executable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc := e.Locator()
	if _, exists := r.items[loc]; exists {
		return exception.NewConfigurationError("registry", "executable %s is already registered", loc)
	}
	r.items[loc] = e
	return nil
}

// Replace registers e, overwriting any executable with the same locator.
func (r *Registry) Replace(e core.Executable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[e.Locator()] = e
}

func (r *Registry) Lookup(loc core.Locator) (core.Executable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[loc]
	return e, ok
}

// Locators returns the registered locators in sorted order.
func (r *Registry) Locators() []core.Locator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Locator, 0, len(r.items))
	for l := range r.items {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
