package plugins

import (
	"sort"
	"strings"

	wappalyzer "github.com/projectdiscovery/wappalyzergo"

	"github.com/lyy289065406/arachni/pkg/plugin"
)

// Fingerprint is one identified platform component.
type Fingerprint struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Fingerprinter identifies the technologies behind the target by
// fingerprinting the response of the scan's entry URL.
type Fingerprinter struct{}

func (p *Fingerprinter) Name() string { return "fingerprinter" }

func (p *Fingerprinter) Description() string {
	return "Identifies the platforms and frameworks running the target"
}

func (p *Fingerprinter) MinFrameworkVersion() string { return "0.1.0" }

func (p *Fingerprinter) Run(ctx plugin.Context) (any, error) {
	wappalyzerClient, err := wappalyzer.New()
	if err != nil {
		return nil, err
	}

	ctx.WaitIfPaused()
	resp, err := ctx.Client().Get(ctx.Options().URL)
	if err != nil {
		return nil, err
	}

	matches := wappalyzerClient.Fingerprint(resp.Headers, resp.Body)
	names := make([]string, 0, len(matches))
	for name := range matches {
		names = append(names, name)
	}
	sort.Strings(names)

	fingerprints := make([]Fingerprint, 0, len(names))
	for _, raw := range names {
		fp := Fingerprint{Name: raw}
		if idx := strings.Index(raw, ":"); idx > -1 {
			fp.Name = raw[:idx]
			fp.Version = raw[idx+1:]
		}
		fingerprints = append(fingerprints, fp)
	}
	return fingerprints, nil
}

func init() {
	plugin.Register("fingerprinter", func() plugin.Plugin { return &Fingerprinter{} })
}
