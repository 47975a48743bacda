package report

import (
	"io"
	"runtime"
	"sync"
)

// Reporter renders a scan snapshot to a writer. Extension is used when a
// target filename has to be derived.
type Reporter interface {
	Name() string
	Description() string
	Extension() string
	Write(snapshot *Snapshot, w io.Writer) error
}

// Info describes a registered reporter for introspection listings.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Extension   string `json:"extension" yaml:"extension"`
	Path        string `json:"path" yaml:"path"`
}

func (i Info) String() string         { return i.Name }
func (i Info) Pretty() string         { return i.Name + " - " + i.Description }
func (i Info) TableHeaders() []string { return []string{"Name", "Extension", "Description"} }
func (i Info) TableRow() []string     { return []string{i.Name, i.Extension, i.Description} }

type registryEntry struct {
	factory func() Reporter
	path    string
}

// Registry holds named reporter factories in registration order.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

func (r *Registry) Register(name string, factory func() Reporter) {
	_, file, _, _ := runtime.Caller(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = registryEntry{factory: factory, path: file}
}

func (r *Registry) Get(name string) (func() Reporter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.factory, true
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Available lists every registered reporter.
func (r *Registry) Available() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		rep := r.entries[name].factory()
		infos = append(infos, Info{
			Name:        rep.Name(),
			Description: rep.Description(),
			Extension:   rep.Extension(),
			Path:        r.entries[name].path,
		})
	}
	return infos
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry built-in reporters register into.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a reporter factory to the default registry.
func Register(name string, factory func() Reporter) {
	defaultRegistry.Register(name, factory)
}
