package plugins

import (
	"net"

	"github.com/projectdiscovery/cdncheck"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/plugin"
)

// CDNResult describes what fronts one resolved address of the target.
type CDNResult struct {
	IP       string `json:"ip" yaml:"ip"`
	Kind     string `json:"kind" yaml:"kind"` // cdn, cloud or waf
	Provider string `json:"provider" yaml:"provider"`
}

// CDNDetector resolves the target host and reports whether its
// addresses belong to known CDN, cloud or WAF providers.
type CDNDetector struct{}

func (p *CDNDetector) Name() string { return "cdn_detector" }

func (p *CDNDetector) Description() string {
	return "Detects whether the target is fronted by a CDN, cloud provider or WAF"
}

func (p *CDNDetector) MinFrameworkVersion() string { return "0.1.0" }

func (p *CDNDetector) Run(ctx plugin.Context) (any, error) {
	host := lib.URLHost(ctx.Options().URL)
	if host == "" {
		return nil, nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}

	client := cdncheck.New()
	var results []CDNResult
	for _, ip := range ips {
		ctx.WaitIfPaused()
		if matched, provider, err := client.CheckCDN(ip); err == nil && matched {
			results = append(results, CDNResult{IP: ip.String(), Kind: "cdn", Provider: provider})
		}
		if matched, provider, err := client.CheckCloud(ip); err == nil && matched {
			results = append(results, CDNResult{IP: ip.String(), Kind: "cloud", Provider: provider})
		}
		if matched, provider, err := client.CheckWAF(ip); err == nil && matched {
			results = append(results, CDNResult{IP: ip.String(), Kind: "waf", Provider: provider})
		}
	}
	return results, nil
}

func init() {
	plugin.Register("cdn_detector", func() plugin.Plugin { return &CDNDetector{} })
}
