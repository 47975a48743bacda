package check

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/issue"
	"github.com/lyy289065406/arachni/pkg/transport"
	"github.com/lyy289065406/arachni/pkg/web"
)

// Manager owns the loaded check schedule and the findings accumulated
// while running it.
type Manager struct {
	registry *Registry
	timing   *TimingController
	client   *transport.Client

	mu        sync.Mutex
	loaded    []string
	instances map[string]Check
	results   *issue.Collection
}

func NewManager(registry *Registry, timing *TimingController, client *transport.Client) *Manager {
	return &Manager{
		registry:  registry,
		timing:    timing,
		client:    client,
		instances: make(map[string]Check),
		results:   issue.NewCollection(),
	}
}

// Load resolves name patterns against the registry. "*" loads
// everything, a leading "-" excludes a name, anything else loads the
// named check. Unknown names are reported and skipped.
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
				log.Error().Str("check", pattern).Msg("Unknown check, skipping")
				continue
			}
			selected = append(selected, pattern)
		}
	}

	m.loaded = nil
	m.instances = make(map[string]Check)
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
		m.loaded = append(m.loaded, name)
		m.instances[name] = factory()
	}
	return append([]string(nil), m.loaded...)
}

// Loaded returns the currently loaded check names.
func (m *Manager) Loaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loaded...)
}

// Schedule returns a fresh copy of the check order. It is re-read for
// every page, so enabling or disabling a check mid-scan takes effect
// with the next page.
func (m *Manager) Schedule() []string {
	return m.Loaded()
}

// RunOne executes the named check against the page, converting panics
// into errors so a single bad check never aborts the scan.
func (m *Manager) RunOne(name string, page *web.Page) (err error) {
	m.mu.Lock()
	c, ok := m.instances[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("check %q is not loaded", name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check %q panicked: %v", name, r)
		}
	}()

	ctx := &Context{
		Client: m.client,
		Page:   page,
		Log:    log.With().Str("check", name).Str("url", page.URL).Logger(),
		Report: func(i issue.Issue) {
			if i.Check == "" {
				i.Check = name
			}
			m.results.Add(i)
		},
		Timing: m.timing,
	}
	return c.Run(ctx)
}

// Results returns the accumulated findings, deduplicated and sorted.
func (m *Manager) Results() []issue.Issue {
	return m.results.Sorted()
}

// HasTimingChecks reports whether any loaded check defers work to the
// timing batch.
func (m *Manager) HasTimingChecks() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.instances {
		if tc, ok := c.(TimingCheck); ok && tc.SchedulesTimingOps() {
			return true
		}
	}
	return false
}

// Clear drops the loaded schedule and the accumulated results.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.loaded = nil
	m.instances = make(map[string]Check)
	m.mu.Unlock()
	m.results.Clear()
}
