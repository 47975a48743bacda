package crawl

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/scan/control"
	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/scope"
	"github.com/lyy289065406/arachni/pkg/transport"
	"github.com/lyy289065406/arachni/pkg/web"
)

// Spider discovers the application surface by breadth-first HTTP
// crawling. Politeness and parallelism are the transport's concern: each
// depth level is queued and resolved through one harvest.
type Spider struct {
	opts              *options.Options
	client            *transport.Client
	scope             scope.Scope
	gate              *control.Gate
	ignoredExtensions []string

	includePatterns []*regexp.Regexp
	excludePatterns []*regexp.Regexp
	redundancy      map[*regexp.Regexp]int

	pauseMu     sync.Mutex
	pauseTokens []control.Token

	mu        sync.Mutex
	visited   map[string]struct{}
	sitemap   []string
	redirects []string
	crawled   int
}

type frontierItem struct {
	url   string
	depth int
}

func NewSpider(opts *options.Options, client *transport.Client) *Spider {
	s := &Spider{
		opts:              opts,
		client:            client,
		scope:             scope.FromURL(opts.URL, opts.FollowSubdomains),
		gate:              control.NewGate(),
		ignoredExtensions: viper.GetStringSlice("crawl.ignored_extensions"),
		visited:           make(map[string]struct{}),
		redundancy:        make(map[*regexp.Regexp]int),
	}
	s.includePatterns = compilePatterns(opts.IncludePatterns)
	s.excludePatterns = compilePatterns(opts.ExcludePatterns)
	for pattern, allowance := range opts.Redundancy {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Error().Err(err).Str("pattern", pattern).Msg("Invalid redundancy pattern, ignoring")
			continue
		}
		s.redundancy[re] = allowance
	}
	return s
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	var compiled []*regexp.Regexp
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			log.Error().Err(err).Str("pattern", p).Msg("Invalid crawl pattern, ignoring")
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// Run crawls from the configured URL (plus extend paths) and invokes
// onURL for every page reached. It blocks until the frontier is
// exhausted. Redirect sources are recorded but not fed to onURL; they
// are surface, not audit targets.
func (s *Spider) Run(onURL func(string)) {
	frontier := []frontierItem{{url: s.opts.URL, depth: 0}}
	for _, extend := range s.opts.ExtendPaths {
		frontier = append(frontier, frontierItem{url: lib.AbsoluteURL(s.opts.URL, extend), depth: 0})
	}

	for len(frontier) > 0 {
		s.gate.Wait()

		var (
			nextMu sync.Mutex
			next   []frontierItem
		)
		queued := false
		for _, item := range frontier {
			item := item
			if !s.shouldVisit(item.url) {
				continue
			}
			s.markVisited(item.url)
			queued = true
			s.client.Queue(&transport.Request{URL: item.url}, func(resp *transport.Response, err error) {
				if err != nil {
					log.Debug().Err(err).Str("url", item.url).Msg("Crawl fetch failed")
					return
				}
				s.record(resp)
				if onURL != nil {
					onURL(resp.URL)
				}
				if s.opts.Depth > 0 && item.depth >= s.opts.Depth {
					return
				}
				if !resp.IsText() {
					return
				}
				for _, link := range web.ExtractLinks(resp) {
					nextMu.Lock()
					next = append(next, frontierItem{url: link, depth: item.depth + 1})
					nextMu.Unlock()
				}
			})
		}
		if queued {
			s.client.RunQueued()
		}
		frontier = next
	}
}

func (s *Spider) record(resp *transport.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, source := range resp.RedirectedFrom {
		s.redirects = append(s.redirects, source)
		s.sitemap = append(s.sitemap, source)
	}
	s.sitemap = append(s.sitemap, resp.URL)
	if _, ok := s.visited[resp.URL]; !ok {
		s.visited[resp.URL] = struct{}{}
	}
}

func (s *Spider) markVisited(url string) {
	s.mu.Lock()
	s.visited[url] = struct{}{}
	s.crawled++
	s.mu.Unlock()
}

func (s *Spider) shouldVisit(url string) bool {
	if url == "" || !strings.HasPrefix(url, "http") {
		return false
	}

	s.mu.Lock()
	_, seen := s.visited[url]
	overCap := s.opts.MaxPages > 0 && s.crawled >= s.opts.MaxPages
	s.mu.Unlock()
	if seen || overCap {
		return false
	}

	if !s.scope.IsInScope(url) {
		return false
	}
	if hasIgnoredExtension(url, s.ignoredExtensions) {
		return false
	}
	for _, re := range s.excludePatterns {
		if re.MatchString(url) {
			return false
		}
	}
	if len(s.includePatterns) > 0 {
		matched := false
		for _, re := range s.includePatterns {
			if re.MatchString(url) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	// Redundancy rules cap how often matching URLs are crawled; the
	// counters are decremented in place and restored only for reporting.
	s.mu.Lock()
	defer s.mu.Unlock()
	for re, allowance := range s.redundancy {
		if !re.MatchString(url) {
			continue
		}
		if allowance <= 0 {
			log.Debug().Str("url", url).Str("pattern", re.String()).Msg("Redundancy allowance exhausted, skipping url")
			return false
		}
		s.redundancy[re] = allowance - 1
		if s.opts.Redundancy != nil {
			s.opts.Redundancy[re.String()] = allowance - 1
		}
	}
	return true
}

func hasIgnoredExtension(url string, ignored []string) bool {
	stripped, err := lib.GetURLWithoutQueryString(url)
	if err != nil {
		return false
	}
	dot := strings.LastIndex(stripped, ".")
	slash := strings.LastIndex(stripped, "/")
	if dot == -1 || dot < slash {
		return false
	}
	ext := strings.ToLower(stripped[dot+1:])
	return lib.SliceContains(ignored, ext)
}

// Pause suspends the crawl before the next depth level.
func (s *Spider) Pause() {
	s.pauseMu.Lock()
	s.pauseTokens = append(s.pauseTokens, s.gate.Pause())
	s.pauseMu.Unlock()
}

// Resume releases the most recent pause request.
func (s *Spider) Resume() {
	s.pauseMu.Lock()
	defer s.pauseMu.Unlock()
	if len(s.pauseTokens) == 0 {
		return
	}
	tok := s.pauseTokens[len(s.pauseTokens)-1]
	s.pauseTokens = s.pauseTokens[:len(s.pauseTokens)-1]
	s.gate.Resume(tok)
}

// Redirects returns the URLs observed as redirect sources.
func (s *Spider) Redirects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.redirects...)
}

// Sitemap returns every URL the spider has touched, redirects included.
func (s *Spider) Sitemap() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lib.GetUniqueItems(s.sitemap)
}
