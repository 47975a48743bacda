package plugin

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/lyy289065406/arachni/lib"
)

// Manager loads plugins, runs them concurrently and collects their
// results. Run does not block; Block waits for every plugin to finish.
type Manager struct {
	registry *Registry

	mu        sync.Mutex
	loaded    []string
	instances map[string]Plugin
	results   map[string]any
	wg        conc.WaitGroup
	running   bool
}

func NewManager(registry *Registry) *Manager {
	return &Manager{
		registry:  registry,
		instances: make(map[string]Plugin),
		results:   make(map[string]any),
	}
}

// Load resolves plugin name patterns ("*", "-name", plain names) and
// applies the framework version compatibility gate.
func (m *Manager) Load(patterns []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var selected []string
	excluded := map[string]struct{}{}
	for _, pattern := range patterns {
		switch {
		case pattern == "*":
			selected = append(selected, m.registry.Names()...)
		case strings.HasPrefix(pattern, "-"):
			excluded[strings.TrimPrefix(pattern, "-")] = struct{}{}
		default:
			if _, ok := m.registry.Get(pattern); !ok {
				log.Error().Str("plugin", pattern).Msg("Unknown plugin, skipping")
				continue
			}
			selected = append(selected, pattern)
		}
	}

	m.loaded = nil
	m.instances = make(map[string]Plugin)
	for _, name := range selected {
		if _, skip := excluded[name]; skip {
			continue
		}
		if lib.SliceContains(m.loaded, name) {
			continue
		}
		factory, ok := m.registry.Get(name)
		if !ok {
			continue
		}
		p := factory()
		if err := compatible(p.MinFrameworkVersion()); err != nil {
			log.Error().Err(err).Str("plugin", name).Msg("Plugin is not compatible with this framework version, skipping")
			continue
		}
		m.loaded = append(m.loaded, name)
		m.instances[name] = p
	}
	return append([]string(nil), m.loaded...)
}

// compatible checks the framework version against the plugin's minimum.
func compatible(minVersion string) error {
	if minVersion == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(">= " + minVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", minVersion, err)
	}
	current, err := semver.NewVersion(lib.Version)
	if err != nil {
		return fmt.Errorf("invalid framework version %q: %w", lib.Version, err)
	}
	if !constraint.Check(current) {
		return fmt.Errorf("requires framework >= %s, running %s", minVersion, lib.Version)
	}
	return nil
}

// Loaded returns the names of the loaded plugins.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loaded...)
}

// Empty reports whether no plugin is loaded.
func (m *Manager) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded) == 0
}

// Run starts every loaded plugin on its own goroutine. Faults are
// isolated per plugin: an error or panic is logged and the plugin
// simply contributes no result.
func (m *Manager) Run(ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true

	for _, name := range m.loaded {
		name := name
		p := m.instances[name]
		m.wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Str("plugin", name).Interface("panic", r).Msg("Plugin panicked")
				}
			}()
			log.Debug().Str("plugin", name).Msg("Plugin started")
			result, err := p.Run(ctx)
			if err != nil {
				log.Error().Err(err).Str("plugin", name).Msg("Plugin failed")
				return
			}
			m.mu.Lock()
			m.results[name] = result
			m.mu.Unlock()
			log.Debug().Str("plugin", name).Msg("Plugin finished")
		})
	}
}

// Block waits until every started plugin has finished.
func (m *Manager) Block() {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()
	if !running {
		return
	}
	m.wg.Wait()
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Results returns the collected plugin results by name.
func (m *Manager) Results() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.results))
	for k, v := range m.results {
		out[k] = v
	}
	return out
}

// Clear drops loaded plugins and collected results.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = nil
	m.instances = make(map[string]Plugin)
	m.results = make(map[string]any)
}
