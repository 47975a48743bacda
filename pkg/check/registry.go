package check

import (
	"runtime"
	"sync"
)

// Info describes a registered check for introspection listings.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Path        string `json:"path" yaml:"path"`
}

func (i Info) String() string         { return i.Name }
func (i Info) Pretty() string         { return i.Name + " - " + i.Description }
func (i Info) TableHeaders() []string { return []string{"Name", "Description"} }
func (i Info) TableRow() []string     { return []string{i.Name, i.Description} }

type registryEntry struct {
	factory func() Check
	path    string
}

// Registry holds named check factories in registration order.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds a factory under the given name, remembering the source
// file of the registration site.
func (r *Registry) Register(name string, factory func() Check) {
	_, file, _, _ := runtime.Caller(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = registryEntry{factory: factory, path: file}
}

func (r *Registry) Get(name string) (func() Check, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.factory, true
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Available lists every registered check.
func (r *Registry) Available() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		c := r.entries[name].factory()
		infos = append(infos, Info{Name: c.Name(), Description: c.Description(), Path: r.entries[name].path})
	}
	return infos
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry built-in checks register into.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a check factory to the default registry.
func Register(name string, factory func() Check) {
	defaultRegistry.Register(name, factory)
}
