package web

import (
	"bytes"
	"strings"

	"github.com/BishopFox/jsluice"
	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"mvdan.cc/xurls/v2"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/transport"
)

// ExtractLinks pulls every URL referenced by a textual response body and
// resolves it against the response URL. HTML goes through a DOM parse,
// script bodies through a JS analyzer and anything else textual through
// a plain text matcher.
func ExtractLinks(resp *transport.Response) []string {
	switch {
	case resp.IsHTML():
		return extractHTMLLinks(resp.Body, resp.URL)
	case resp.IsJavaScript():
		return extractJSLinks(resp.Body, resp.URL)
	default:
		return extractTextLinks(resp.Body)
	}
}

// extractHTMLLinks collects href/src/action attributes from the document.
func extractHTMLLinks(body []byte, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Debug().Err(err).Str("url", baseURL).Msg("Could not parse HTML document")
		return nil
	}

	var links []string
	appendAttr := func(s *goquery.Selection, attr string) {
		value, exists := s.Attr(attr)
		if !exists {
			return
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.HasPrefix(value, "javascript:") || strings.HasPrefix(value, "mailto:") || strings.HasPrefix(value, "#") {
			return
		}
		links = append(links, lib.AbsoluteURL(baseURL, value))
	}

	doc.Find("[href]").Each(func(i int, s *goquery.Selection) {
		appendAttr(s, "href")
	})
	doc.Find("[src]").Each(func(i int, s *goquery.Selection) {
		appendAttr(s, "src")
	})
	doc.Find("form[action]").Each(func(i int, s *goquery.Selection) {
		appendAttr(s, "action")
	})

	return lib.GetUniqueItems(links)
}

// extractJSLinks runs the JS analyzer over script code.
func extractJSLinks(code []byte, baseURL string) []string {
	analyzer := jsluice.NewAnalyzer(code)
	matches := analyzer.GetURLs()
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.URL == "" {
			continue
		}
		links = append(links, lib.AbsoluteURL(baseURL, m.URL))
	}
	return lib.GetUniqueItems(links)
}

// extractTextLinks matches absolute URLs in arbitrary text bodies.
func extractTextLinks(body []byte) []string {
	matcher := xurls.Strict()
	return lib.GetUniqueItems(matcher.FindAllString(string(body), -1))
}
