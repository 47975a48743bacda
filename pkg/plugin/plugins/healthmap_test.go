package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyy289065406/arachni/pkg/issue"
	"github.com/lyy289065406/arachni/pkg/plugin"
	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/transport"
)

type stubContext struct {
	sitemap []string
	issues  []issue.Issue
}

func (s *stubContext) Options() *options.Options { return &options.Options{URL: "http://test.com"} }
func (s *stubContext) Client() *transport.Client { return nil }
func (s *stubContext) SiteMap() []string         { return s.sitemap }
func (s *stubContext) Issues() []issue.Issue     { return s.issues }
func (s *stubContext) WaitIfPaused()             {}
func (s *stubContext) ScanDone() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func TestHealthMap(t *testing.T) {
	ctx := &stubContext{
		sitemap: []string{"http://test.com/a", "http://test.com/b"},
		issues: []issue.Issue{
			{Check: "x", Name: "X", URL: "http://test.com/a"},
			{Check: "y", Name: "Y", URL: "http://test.com/a"},
		},
	}

	result, err := (&HealthMap{}).Run(ctx)
	require.Nil(t, err)

	entries, ok := result.([]HealthMapEntry)
	require.True(t, ok)
	require.Equal(t, 2, len(entries))
	assert.Equal(t, 2, entries[0].Issues)
	assert.Equal(t, 0, entries[1].Issues)
}

func TestBuiltinPluginsRegistered(t *testing.T) {
	names := plugin.Default().Names()
	for _, expected := range []string{"fingerprinter", "cdn_detector", "healthmap"} {
		assert.Contains(t, names, expected)
	}
}
