package lib

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// AbsoluteURL resolves ref against base and returns the absolute form.
// If either value cannot be parsed the raw ref is returned unchanged so
// callers can keep operating on whatever the target handed back.
func AbsoluteURL(base string, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		log.Debug().Err(err).Str("url", base).Msg("Could not parse base url")
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		log.Debug().Err(err).Str("url", ref).Msg("Could not parse url to normalize")
		return ref
	}
	resolved := baseURL.ResolveReference(refURL)
	resolved.Fragment = ""
	return resolved.String()
}

// URLHost returns the hostname of the given URL, or an empty string when
// the URL cannot be parsed.
func URLHost(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsedURL.Hostname()
}

// GetURLWithoutQueryString returns the base URL from the given URL by removing the query string
func GetURLWithoutQueryString(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	parsedURL.RawQuery = ""
	return parsedURL.String(), nil
}
