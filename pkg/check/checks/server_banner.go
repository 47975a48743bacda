package checks

import (
	"fmt"
	"regexp"

	"github.com/lyy289065406/arachni/pkg/check"
	"github.com/lyy289065406/arachni/pkg/issue"
)

var versionedBanner = regexp.MustCompile(`[\w.-]+/[0-9][\w.-]*`)

// ServerBanner flags response headers that disclose server software
// versions.
type ServerBanner struct{}

func (c *ServerBanner) Name() string { return "server_banner" }

func (c *ServerBanner) Description() string {
	return "Reports Server and X-Powered-By headers that disclose software versions"
}

func (c *ServerBanner) Run(ctx *check.Context) error {
	for _, header := range []string{"Server", "X-Powered-By"} {
		value := ctx.Page.Header(header)
		if value == "" {
			continue
		}
		if !versionedBanner.MatchString(value) {
			continue
		}
		ctx.Report(issue.Issue{
			Name:       "Server software version disclosure",
			URL:        ctx.Page.URL,
			Element:    header,
			Severity:   issue.Low,
			Confidence: 90,
			Details:    fmt.Sprintf("The %s header exposes a software version: %q", header, value),
		})
	}
	return nil
}

func init() {
	check.Register("server_banner", func() check.Check { return &ServerBanner{} })
}
