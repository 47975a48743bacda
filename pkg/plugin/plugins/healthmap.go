package plugins

import (
	"github.com/lyy289065406/arachni/pkg/plugin"
)

// HealthMapEntry tallies findings for one URL of the site map.
type HealthMapEntry struct {
	URL    string `json:"url" yaml:"url"`
	Issues int    `json:"issues" yaml:"issues"`
}

// HealthMap summarizes the scanned surface: every site map URL with the
// number of findings against it.
type HealthMap struct{}

func (p *HealthMap) Name() string { return "healthmap" }

func (p *HealthMap) Description() string {
	return "Maps every discovered URL to the number of findings against it"
}

func (p *HealthMap) MinFrameworkVersion() string { return "0.1.0" }

func (p *HealthMap) Run(ctx plugin.Context) (any, error) {
	<-ctx.ScanDone()

	counts := map[string]int{}
	for _, i := range ctx.Issues() {
		counts[i.URL]++
	}

	var entries []HealthMapEntry
	for _, url := range ctx.SiteMap() {
		entries = append(entries, HealthMapEntry{URL: url, Issues: counts[url]})
	}
	return entries, nil
}

func init() {
	plugin.Register("healthmap", func() plugin.Plugin { return &HealthMap{} })
}
