package web

import (
	"strings"
	"time"

	"github.com/lyy289065406/arachni/pkg/transport"
)

// Page is one fetched unit of audit work. Pages are owned transiently by
// the page queue and consumed once by the check loop.
type Page struct {
	URL         string
	Code        int
	Headers     map[string][]string
	Body        []byte
	ContentType string
	Text        bool
	Duration    time.Duration

	// Links holds every absolute URL extracted from the body.
	Links []string

	// Volatile marks pages whose body changed between precision
	// refetches; their content cannot be trusted for training.
	Volatile bool
}

// FromResponse builds a page out of a resolved response, extracting
// links from textual bodies.
func FromResponse(resp *transport.Response) *Page {
	page := &Page{
		URL:         resp.URL,
		Code:        resp.StatusCode,
		Headers:     resp.Headers,
		Body:        resp.Body,
		ContentType: resp.ContentType,
		Text:        resp.IsText(),
		Duration:    resp.Duration,
	}
	if page.Text {
		page.Links = ExtractLinks(resp)
	}
	return page
}

// Header returns the first value of the named response header.
func (p *Page) Header(name string) string {
	if p.Headers == nil {
		return ""
	}
	values := p.Headers[name]
	if len(values) == 0 {
		// Header maps coming off the wire are canonicalized; be lenient
		// with lookups from checks.
		for key, v := range p.Headers {
			if len(v) > 0 && strings.EqualFold(key, name) {
				return v[0]
			}
		}
		return ""
	}
	return values[0]
}
