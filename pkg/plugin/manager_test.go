package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyy289065406/arachni/pkg/issue"
	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/transport"
)

type fakePlugin struct {
	name       string
	minVersion string
	runFn      func(ctx Context) (any, error)
}

func (f *fakePlugin) Name() string                { return f.name }
func (f *fakePlugin) Description() string         { return "fake" }
func (f *fakePlugin) MinFrameworkVersion() string { return f.minVersion }
func (f *fakePlugin) Run(ctx Context) (any, error) {
	if f.runFn != nil {
		return f.runFn(ctx)
	}
	return nil, nil
}

type fakeContext struct{}

func (fakeContext) Options() *options.Options { return &options.Options{} }
func (fakeContext) Client() *transport.Client { return nil }
func (fakeContext) SiteMap() []string         { return nil }
func (fakeContext) Issues() []issue.Issue     { return nil }
func (fakeContext) WaitIfPaused()             {}
func (fakeContext) ScanDone() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("one", func() Plugin {
		return &fakePlugin{name: "one", runFn: func(ctx Context) (any, error) {
			return "result-one", nil
		}}
	})
	reg.Register("two", func() Plugin {
		return &fakePlugin{name: "two", runFn: func(ctx Context) (any, error) {
			return 42, nil
		}}
	})
	return reg
}

func TestLoadAndRun(t *testing.T) {
	m := NewManager(testRegistry())
	loaded := m.Load([]string{"*"})
	assert.Equal(t, []string{"one", "two"}, loaded)
	assert.False(t, m.Empty())

	m.Run(fakeContext{})
	m.Block()

	results := m.Results()
	assert.Equal(t, "result-one", results["one"])
	assert.Equal(t, 42, results["two"])
}

func TestLoadExclusion(t *testing.T) {
	m := NewManager(testRegistry())
	loaded := m.Load([]string{"*", "-two"})
	assert.Equal(t, []string{"one"}, loaded)
}

func TestVersionGate(t *testing.T) {
	reg := testRegistry()
	reg.Register("future", func() Plugin {
		return &fakePlugin{name: "future", minVersion: "99.0.0"}
	})

	m := NewManager(reg)
	loaded := m.Load([]string{"*"})
	assert.NotContains(t, loaded, "future", "incompatible plugin must be gated out")
	assert.Contains(t, loaded, "one")
}

func TestPluginFaultsAreIsolated(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fails", func() Plugin {
		return &fakePlugin{name: "fails", runFn: func(ctx Context) (any, error) {
			return nil, errors.New("broken")
		}}
	})
	reg.Register("panics", func() Plugin {
		return &fakePlugin{name: "panics", runFn: func(ctx Context) (any, error) {
			panic("boom")
		}}
	})
	reg.Register("works", func() Plugin {
		return &fakePlugin{name: "works", runFn: func(ctx Context) (any, error) {
			return "ok", nil
		}}
	})

	m := NewManager(reg)
	m.Load([]string{"*"})
	m.Run(fakeContext{})
	m.Block()

	results := m.Results()
	require.Equal(t, 1, len(results))
	assert.Equal(t, "ok", results["works"])
}

func TestBlockWithoutRunReturns(t *testing.T) {
	m := NewManager(testRegistry())
	m.Block()
}

func TestClear(t *testing.T) {
	m := NewManager(testRegistry())
	m.Load([]string{"*"})
	m.Run(fakeContext{})
	m.Block()

	m.Clear()
	assert.True(t, m.Empty())
	assert.Empty(t, m.Results())
}
