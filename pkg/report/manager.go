package report

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lyy289065406/arachni/lib"
)

// Manager resolves configured reporter names against a registry and
// writes a snapshot to each target. A target of "-" goes to stdout; an
// empty target derives a filename from the scan title and the reporter
// extension.
type Manager struct {
	registry *Registry
	targets  map[string]string
}

func NewManager(registry *Registry) *Manager {
	return &Manager{registry: registry, targets: make(map[string]string)}
}

// Load records the requested reporters. Unknown names are logged and
// skipped.
func (m *Manager) Load(targets map[string]string) {
	m.targets = make(map[string]string, len(targets))
	for name, target := range targets {
		if _, ok := m.registry.Get(name); !ok {
			log.Warn().Str("reporter", name).Msg("Unknown reporter requested, skipping")
			continue
		}
		m.targets[name] = target
	}
}

// Loaded returns the names of the reporters that will run.
func (m *Manager) Loaded() []string {
	names := make([]string, 0, len(m.targets))
	for _, name := range m.registry.Names() {
		if _, ok := m.targets[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (m *Manager) Empty() bool { return len(m.targets) == 0 }

// Run writes the snapshot through every loaded reporter. Individual
// reporter failures are logged; the first error is returned after all
// reporters have been attempted.
func (m *Manager) Run(snapshot *Snapshot) error {
	var firstErr error
	for _, name := range m.Loaded() {
		factory, _ := m.registry.Get(name)
		reporter := factory()
		target := m.targets[name]
		if err := m.runOne(reporter, snapshot, target); err != nil {
			log.Error().Err(err).Str("reporter", name).Str("target", target).Msg("Reporter failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (m *Manager) runOne(reporter Reporter, snapshot *Snapshot, target string) error {
	if target == "-" {
		return reporter.Write(snapshot, os.Stdout)
	}
	if target == "" {
		target = deriveFilename(snapshot, reporter.Extension())
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := reporter.Write(snapshot, f); err != nil {
		return err
	}
	log.Info().Str("reporter", reporter.Name()).Str("path", target).Msg("Report written")
	return nil
}

func deriveFilename(snapshot *Snapshot, extension string) string {
	base := snapshot.Options.Title
	if base == "" {
		base = snapshot.Options.URL
	}
	stamp := snapshot.FinishTime
	if stamp.IsZero() {
		stamp = time.Now()
	}
	return fmt.Sprintf("%s-%s.%s", lib.Slugify(base), stamp.Format("20060102-150405"), extension)
}

func (m *Manager) Clear() {
	m.targets = make(map[string]string)
}
