package session

import (
	"regexp"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/lyy289065406/arachni/pkg/transport"
)

// Session keeps track of whether the scan is still authenticated against
// the target. It is consulted after every harvest; re-login flows are an
// external concern.
type Session struct {
	CheckURL     string
	checkPattern *regexp.Regexp
	loggedOut    atomic.Bool
}

// New builds a session monitor. An empty checkURL disables the check
// entirely. An invalid pattern is reported and disables the check too.
func New(checkURL, checkPattern string) *Session {
	s := &Session{CheckURL: checkURL}
	if checkURL == "" {
		return s
	}
	pattern, err := regexp.Compile(checkPattern)
	if err != nil {
		log.Error().Err(err).Str("pattern", checkPattern).Msg("Invalid session check pattern, disabling session checks")
		s.CheckURL = ""
		return s
	}
	s.checkPattern = pattern
	return s
}

// EnsureLoggedIn fetches the check URL and matches the configured
// pattern against the body. A failure is logged and recorded but never
// interrupts the scan.
func (s *Session) EnsureLoggedIn(client *transport.Client) {
	if s.CheckURL == "" {
		return
	}
	resp, err := client.Get(s.CheckURL)
	if err != nil {
		log.Warn().Err(err).Str("url", s.CheckURL).Msg("Session check request failed")
		s.loggedOut.Store(true)
		return
	}
	if !s.checkPattern.Match(resp.Body) {
		log.Warn().Str("url", s.CheckURL).Msg("Session check pattern not found, scan may be logged out")
		s.loggedOut.Store(true)
		return
	}
	s.loggedOut.Store(false)
}

// LoggedOut reports whether the last check failed.
func (s *Session) LoggedOut() bool {
	return s.loggedOut.Load()
}
