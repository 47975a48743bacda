package checks

import (
	cregex "github.com/mingrammer/commonregex"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/check"
	"github.com/lyy289065406/arachni/pkg/issue"
)

// EmailDisclosure reports e-mail addresses found in textual bodies.
type EmailDisclosure struct{}

func (c *EmailDisclosure) Name() string { return "email_disclosure" }

func (c *EmailDisclosure) Description() string {
	return "Reports e-mail addresses disclosed in page bodies"
}

func (c *EmailDisclosure) Run(ctx *check.Context) error {
	if !ctx.Page.Text {
		return nil
	}
	emails := lib.GetUniqueItems(cregex.Emails(string(ctx.Page.Body)))
	for _, email := range emails {
		ctx.Report(issue.Issue{
			Name:       "E-mail address disclosure",
			URL:        ctx.Page.URL,
			Element:    email,
			Severity:   issue.Info,
			Confidence: 80,
			Details:    "The page body contains the e-mail address " + email,
		})
	}
	return nil
}

func init() {
	check.Register("email_disclosure", func() check.Check { return &EmailDisclosure{} })
}
