package plugin

import (
	"runtime"
	"sync"

	"github.com/lyy289065406/arachni/pkg/issue"
	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/transport"
)

// Plugin is a named unit of work that runs alongside the scan. Plugins
// start when the scan is prepared and are waited for during clean up.
type Plugin interface {
	Name() string
	Description() string

	// MinFrameworkVersion is the lowest framework version the plugin
	// can run against, used as a load-time compatibility gate.
	MinFrameworkVersion() string

	Run(ctx Context) (any, error)
}

// Context is the view of the running scan a plugin gets. It is
// implemented by the scanner; this package never imports it.
type Context interface {
	Options() *options.Options
	Client() *transport.Client
	SiteMap() []string
	Issues() []issue.Issue
	WaitIfPaused()

	// ScanDone is closed once the audit has finished and the scan's
	// results are final. Plugins that summarize results wait on it;
	// it is closed before plugins are waited for, so doing so cannot
	// deadlock the clean up stage.
	ScanDone() <-chan struct{}
}

// Info describes a registered plugin for introspection listings.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	MinVersion  string `json:"min_version" yaml:"min_version"`
	Path        string `json:"path" yaml:"path"`
}

func (i Info) String() string         { return i.Name }
func (i Info) Pretty() string         { return i.Name + " - " + i.Description }
func (i Info) TableHeaders() []string { return []string{"Name", "Description", "Min version"} }
func (i Info) TableRow() []string     { return []string{i.Name, i.Description, i.MinVersion} }

type registryEntry struct {
	factory func() Plugin
	path    string
}

// Registry holds named plugin factories in registration order.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

func (r *Registry) Register(name string, factory func() Plugin) {
	_, file, _, _ := runtime.Caller(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = registryEntry{factory: factory, path: file}
}

func (r *Registry) Get(name string) (func() Plugin, bool) {
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

func (r *Registry) Available() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		p := r.entries[name].factory()
		infos = append(infos, Info{
			Name:        p.Name(),
			Description: p.Description(),
			MinVersion:  p.MinFrameworkVersion(),
			Path:        r.entries[name].path,
		})
	}
	return infos
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry built-in plugins register into.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a plugin factory to the default registry.
func Register(name string, factory func() Plugin) {
	defaultRegistry.Register(name, factory)
}
