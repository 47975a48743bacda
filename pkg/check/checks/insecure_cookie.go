package checks

import (
	"fmt"
	"strings"

	"github.com/lyy289065406/arachni/pkg/check"
	"github.com/lyy289065406/arachni/pkg/issue"
)

// InsecureCookie reports Set-Cookie headers missing the Secure or
// HttpOnly attributes.
type InsecureCookie struct{}

func (c *InsecureCookie) Name() string { return "insecure_cookie" }

func (c *InsecureCookie) Description() string {
	return "Reports cookies set without the Secure or HttpOnly attributes"
}

func (c *InsecureCookie) Run(ctx *check.Context) error {
	if ctx.Page.Headers == nil {
		return nil
	}
	for name, values := range ctx.Page.Headers {
		if !strings.EqualFold(name, "Set-Cookie") {
			continue
		}
		for _, cookie := range values {
			lower := strings.ToLower(cookie)
			cookieName := strings.SplitN(cookie, "=", 2)[0]

			var missing []string
			if !strings.Contains(lower, "secure") {
				missing = append(missing, "Secure")
			}
			if !strings.Contains(lower, "httponly") {
				missing = append(missing, "HttpOnly")
			}
			if len(missing) == 0 {
				continue
			}
			ctx.Report(issue.Issue{
				Name:       "Cookie set without " + strings.Join(missing, "/"),
				URL:        ctx.Page.URL,
				Element:    cookieName,
				Severity:   issue.Low,
				Confidence: 100,
				Details:    fmt.Sprintf("The cookie %q is set without the following attributes: %s", cookieName, strings.Join(missing, ", ")),
			})
		}
	}
	return nil
}

func init() {
	check.Register("insecure_cookie", func() check.Check { return &InsecureCookie{} })
}
