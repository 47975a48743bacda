package scan

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/check"
	"github.com/lyy289065406/arachni/pkg/crawl"
	"github.com/lyy289065406/arachni/pkg/issue"
	"github.com/lyy289065406/arachni/pkg/plugin"
	"github.com/lyy289065406/arachni/pkg/report"
	"github.com/lyy289065406/arachni/pkg/scan/control"
	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/scan/progress"
	"github.com/lyy289065406/arachni/pkg/scan/queue"
	"github.com/lyy289065406/arachni/pkg/scan/surface"
	"github.com/lyy289065406/arachni/pkg/session"
	"github.com/lyy289065406/arachni/pkg/trainer"
	"github.com/lyy289065406/arachni/pkg/transport"
	"github.com/lyy289065406/arachni/pkg/web"
)

// Phase is the scan lifecycle stage. It advances monotonically; "paused"
// is a status overlay, never a phase.
type Phase int

const (
	PhaseReady Phase = iota
	PhasePreparing
	PhaseCrawling
	PhaseAuditing
	PhaseCleanup
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhasePreparing:
		return "preparing"
	case PhaseCrawling:
		return "crawling"
	case PhaseAuditing:
		return "auditing"
	case PhaseCleanup:
		return "cleanup"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// StatusPaused is reported while any pause token is held.
const StatusPaused = "paused"

// Scanner drives one scan: crawl, queue draining, check execution, the
// deferred timing batch, clean up and reporting. A single control flow
// owns the state machine; parallelism lives in the transport, whose
// completion handlers feed the queues from worker goroutines.
type Scanner struct {
	id   uuid.UUID
	opts *options.Options
	log  zerolog.Logger

	client  *transport.Client
	session *session.Session
	timing  *check.TimingController
	checks  *check.Manager
	plugins *plugin.Manager
	reports *report.Manager

	seenFilter *trainer.SeenFilter

	gate      *control.Gate
	urlQueue  *queue.Queue[string]
	pageQueue *queue.Queue[*web.Page]
	siteMap   *surface.Map
	auditMap  *surface.Map
	redirects *surface.Map

	// redundancySnapshot preserves the configured allowances; the live
	// counters in opts are decremented while crawling.
	redundancySnapshot map[string]int

	mu         sync.Mutex
	phase      Phase
	running    bool
	startTime  time.Time
	finishTime time.Time
	frozenAt   time.Time
	spider     *crawl.Spider
	trainer    *trainer.Trainer
	listeners  []func(*web.Page)
	scanDone   chan struct{}
	doneOnce   *sync.Once
}

// New validates the options and assembles a scanner with fresh
// collaborators. The redundancy counters are deep-copied here so the
// result snapshot can report the pre-scan configuration.
func New(opts *options.Options) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan options: %w", err)
	}

	id := uuid.New()
	client := transport.NewClient(opts.MaxConcurrency, opts.RequestsPerSecond)
	timing := check.NewTimingController()
	seenFilter := trainer.NewSeenFilter()

	s := &Scanner{
		id:                 id,
		opts:               opts,
		log:                log.With().Str("scan", id.String()).Logger(),
		client:             client,
		session:            session.New(opts.SessionCheckURL, opts.SessionCheckPattern),
		timing:             timing,
		checks:             check.NewManager(check.Default(), timing, client),
		plugins:            plugin.NewManager(plugin.Default()),
		reports:            report.NewManager(report.Default()),
		seenFilter:         seenFilter,
		gate:               control.NewGate(),
		urlQueue:           queue.New[string](),
		pageQueue:          queue.New[*web.Page](),
		siteMap:            surface.NewMap(),
		auditMap:           surface.NewMap(),
		redirects:          surface.NewMap(),
		redundancySnapshot: opts.RedundancySnapshot(),
		spider:             crawl.NewSpider(opts, client),
		trainer:            trainer.New(opts, seenFilter),
		scanDone:           make(chan struct{}),
		doneOnce:           &sync.Once{},
	}
	return s, nil
}

// Run executes the full lifecycle. The audit and the optional finalize
// step run inside fault barriers, so clean up and reporting always
// happen; only process-exit-class conditions bypass them.
func (s *Scanner) Run(finalize func()) {
	s.prepare()

	s.guard("audit", s.audit)
	if finalize != nil {
		s.guard("finalize", func() error {
			finalize()
			return nil
		})
	}

	s.CleanUp()

	if !s.reports.Empty() {
		s.guard("report", func() error {
			return s.reports.Run(s.Snapshot())
		})
	}

	s.setPhase(PhaseDone)
	s.log.Info().Int("sitemap", s.siteMap.Len()).Int("issues", len(s.checks.Results())).Msg("Scan finished")
}

// guard runs one stage, converting panics and returned errors into log
// entries so the lifecycle keeps moving.
func (s *Scanner) guard(stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("stage", stage).Interface("panic", r).Msg("Scan stage panicked")
		}
	}()
	if err := fn(); err != nil {
		s.log.Error().Err(err).Str("stage", stage).Msg("Scan stage failed")
	}
}

func (s *Scanner) prepare() {
	s.setPhase(PhasePreparing)

	s.mu.Lock()
	s.running = true
	s.startTime = time.Now()
	s.frozenAt = time.Time{}
	tr := s.trainer
	s.mu.Unlock()

	s.checks.Load(s.opts.Checks)
	s.plugins.Load(s.opts.Plugins)
	s.reports.Load(s.opts.Reports)

	// The spider owns discovery until the crawl ends, and trainer pages
	// for a URL that is already awaiting its audit are duplicates of
	// the fetch in flight, not new state.
	tr.OnPage(func(page *web.Page) {
		s.mu.Lock()
		phase := s.phase
		s.mu.Unlock()
		if phase < PhaseAuditing {
			return
		}
		if s.siteMap.Contains(page.URL) && !s.auditMap.Contains(page.URL) {
			return
		}
		s.PushPage(page)
	})
	tr.Observe(s.client)

	// Plugins manage their own goroutines; clean up waits for them.
	s.plugins.Run(s)

	s.log.Info().
		Str("url", s.opts.URL).
		Strs("checks", s.checks.Loaded()).
		Strs("plugins", s.plugins.Loaded()).
		Msg("Scan prepared")
}

func (s *Scanner) audit() error {
	s.setPhase(PhaseCrawling)
	s.gate.Wait()

	if len(s.opts.RestrictPaths) > 0 {
		// Restricted scope: the crawler never runs, the configured
		// paths are the whole surface.
		for _, path := range s.opts.RestrictPaths {
			s.PushURL(lib.AbsoluteURL(s.opts.URL, path))
		}
	} else {
		s.mu.Lock()
		spider := s.spider
		s.mu.Unlock()
		spider.Run(s.PushURL)
		for _, source := range spider.Redirects() {
			s.siteMap.Add(source)
			s.redirects.Add(source)
		}
	}

	s.setPhase(PhaseAuditing)
	s.drainQueues()

	if s.checks.HasTimingChecks() {
		s.log.Info().Int("operations", s.timing.Pending()).Msg("Running timing checks")
		s.timing.RunBatch(s.gate)
		// The batch may have revealed pages through the trainer.
		s.drainQueues()
	}
	return nil
}

// drainQueues consumes the URL queue: each URL is materialized into a
// page (precision fetches resolved by the harvest), the page queue is
// drained, and the cycle repeats. A final page drain catches entries
// produced after the last URL was consumed.
func (s *Scanner) drainQueues() {
	for {
		url, ok := s.urlQueue.Pop()
		if !ok {
			break
		}
		web.Fetch(s.client, url, s.opts.PagePrecision, s.PushPage)
		s.harvest()
		s.drainPageQueue()
		s.harvest()
	}
	s.drainPageQueue()
}

// drainPageQueue runs queued pages through the check loop. The queue can
// be refilled mid-loop by trainer side effects, so emptiness is
// re-checked every iteration.
func (s *Scanner) drainPageQueue() {
	for {
		page, ok := s.pageQueue.Pop()
		if !ok {
			return
		}
		s.runChecksOn(page)
		s.harvest()
	}
}

// PushURL normalizes the URL against the scan target and enqueues it.
// Every call counts toward the lifetime counter; site map membership
// collapses duplicates.
func (s *Scanner) PushURL(rawURL string) {
	url := lib.AbsoluteURL(s.opts.URL, rawURL)
	if url == "" {
		url = rawURL
	}
	s.urlQueue.Push(url)
	s.siteMap.Add(url)
}

// PushPage enqueues a fetched page for auditing.
func (s *Scanner) PushPage(page *web.Page) {
	s.pageQueue.Push(page)
	s.siteMap.Add(page.URL)
}

func (s *Scanner) runChecksOn(page *web.Page) {
	schedule := s.checks.Schedule()
	if len(schedule) == 0 {
		s.log.Debug().Str("url", page.URL).Msg("No checks scheduled, skipping page")
		return
	}

	// Recorded up front: a page counts as audited even when skipped for
	// content-type reasons.
	s.auditMap.Add(page.URL)
	s.siteMap.Add(page.URL)

	if s.opts.ExcludeBinaries && !page.Text {
		s.log.Debug().Str("url", page.URL).Str("content_type", page.ContentType).Msg("Skipping binary page")
		return
	}

	s.notifyListeners(page)

	for _, name := range schedule {
		s.gate.Wait()
		if err := s.checks.RunOne(name, page); err != nil {
			s.log.Error().Err(err).Str("check", name).Str("url", page.URL).Msg("Check failed")
		}
	}

	s.harvest()
}

// harvest resolves every queued request synchronously, then verifies the
// session is still live. Trainer-discovered pages land in the page queue
// as a side effect, before the caller resumes draining.
func (s *Scanner) harvest() {
	s.client.RunQueued()
	s.session.EnsureLoggedIn(s.client)
}

// OnPageAudit registers a listener notified before each page's check
// loop. Listeners are cleared by Reset.
func (s *Scanner) OnPageAudit(fn func(*web.Page)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Scanner) notifyListeners(page *web.Page) {
	s.mu.Lock()
	listeners := append(([]func(*web.Page))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(page)
	}
}

// Pause requests a cooperative pause and returns the token that resumes
// it. The spider is paused alongside, so the crawl stops at the next
// depth level.
func (s *Scanner) Pause() control.Token {
	tok := s.gate.Pause()
	s.mu.Lock()
	spider := s.spider
	s.mu.Unlock()
	spider.Pause()
	s.log.Info().Msg("Scan pause requested")
	return tok
}

// Resume releases the pause held by the given token. Resuming with an
// unknown token is a no-op reporting false.
func (s *Scanner) Resume(tok control.Token) bool {
	if !s.gate.Resume(tok) {
		return false
	}
	s.mu.Lock()
	spider := s.spider
	s.mu.Unlock()
	spider.Resume()
	s.log.Info().Msg("Scan resumed")
	return true
}

// Status returns "paused" while any pause token is held, otherwise the
// current phase name.
func (s *Scanner) Status() string {
	if s.gate.Paused() {
		return StatusPaused
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase.String()
}

// CleanUp freezes the scan: stamps the finish time, disables
// positives-only reporting (reporters expect the full result set),
// releases result waiters and blocks until plugins finish.
func (s *Scanner) CleanUp() {
	s.setPhase(PhaseCleanup)

	s.mu.Lock()
	s.finishTime = time.Now()
	s.running = false
	tr := s.trainer
	done := s.doneOnce
	ch := s.scanDone
	s.mu.Unlock()

	// Left enabled, the flag would filter the snapshot downstream
	// reporters consume.
	s.opts.OnlyPositives = false

	tr.Stop()

	done.Do(func() { close(ch) })
	s.plugins.Block()
}

// Reset returns the scanner to the ready state for a rerun with the same
// options: queues and maps are cleared, lifetime counters zeroed,
// listeners dropped, the spider and trainer rebuilt, managers unloaded.
// Shared collaborator state is ResetShared's concern.
func (s *Scanner) Reset() {
	s.urlQueue.Reset()
	s.pageQueue.Reset()
	s.siteMap.Clear()
	s.auditMap.Clear()
	s.redirects.Clear()
	s.gate.Clear()

	s.checks.Clear()
	s.plugins.Clear()
	s.reports.Clear()

	s.opts.RestoreRedundancy(s.redundancySnapshot)

	s.mu.Lock()
	s.trainer.Stop()
	s.spider = crawl.NewSpider(s.opts, s.client)
	s.trainer = trainer.New(s.opts, s.seenFilter)
	s.listeners = nil
	s.phase = PhaseReady
	s.running = false
	s.startTime = time.Time{}
	s.finishTime = time.Time{}
	s.frozenAt = time.Time{}
	s.scanDone = make(chan struct{})
	s.doneOnce = &sync.Once{}
	s.mu.Unlock()

	s.log.Debug().Msg("Scanner reset")
}

// ResetShared clears collaborator state that outlives a single scan:
// transport counters, timing-operation counters, the trained-element
// filter. It must run before the collaborators are reused, and before
// any instance reset that depends on them; the transport clears first so
// dependents never measure against stale counters.
func (s *Scanner) ResetShared() {
	s.client.Reset()
	s.timing.Reset()
	s.seenFilter.Reset()
}

// Snapshot assembles the serializable scan result. The embedded options
// carry the pre-scan redundancy counters.
func (s *Scanner) Snapshot() *report.Snapshot {
	optsCopy := s.opts.Copy()
	optsCopy.RestoreRedundancy(s.redundancySnapshot)

	s.mu.Lock()
	start, finish := s.startTime, s.finishTime
	s.mu.Unlock()

	var delta time.Duration
	if !start.IsZero() && !finish.IsZero() {
		delta = finish.Sub(start)
	}

	return &report.Snapshot{
		Version:    lib.Version,
		Revision:   lib.Revision,
		ScanID:     s.id.String(),
		Options:    optsCopy,
		StartTime:  start,
		FinishTime: finish,
		Delta:      delta,
		Sitemap:    s.siteMap.Sorted(),
		Issues:     s.checks.Results(),
		Plugins:    s.plugins.Results(),
	}
}

// ID returns the scan run identifier.
func (s *Scanner) ID() string { return s.id.String() }

// Options implements plugin.Context.
func (s *Scanner) Options() *options.Options { return s.opts }

// Client implements plugin.Context.
func (s *Scanner) Client() *transport.Client { return s.client }

// SiteMap implements plugin.Context.
func (s *Scanner) SiteMap() []string { return s.siteMap.Sorted() }

// Issues implements plugin.Context.
func (s *Scanner) Issues() []issue.Issue { return s.checks.Results() }

// WaitIfPaused implements plugin.Context.
func (s *Scanner) WaitIfPaused() { s.gate.Wait() }

// ScanDone implements plugin.Context. The channel closes once results
// are final, before plugins are waited for.
func (s *Scanner) ScanDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanDone
}

// ListChecks returns the registered checks matching the patterns.
func (s *Scanner) ListChecks(patterns []string) []check.Info {
	available := check.Default().Available()
	out := make([]check.Info, 0, len(available))
	for _, info := range available {
		if MatchesPatterns(info.Name, patterns) {
			out = append(out, info)
		}
	}
	return out
}

// ListPlugins returns the registered plugins matching the patterns.
func (s *Scanner) ListPlugins(patterns []string) []plugin.Info {
	available := plugin.Default().Available()
	out := make([]plugin.Info, 0, len(available))
	for _, info := range available {
		if MatchesPatterns(info.Name, patterns) {
			out = append(out, info)
		}
	}
	return out
}

// ListReporters returns the registered reporters matching the patterns.
func (s *Scanner) ListReporters(patterns []string) []report.Info {
	available := report.Default().Available()
	out := make([]report.Info, 0, len(available))
	for _, info := range available {
		if MatchesPatterns(info.Name, patterns) {
			out = append(out, info)
		}
	}
	return out
}

// MatchesPatterns applies the load-pattern semantics ("*", "-name",
// plain names) as a filter. Empty patterns match everything.
func MatchesPatterns(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	matched := false
	for _, p := range patterns {
		switch {
		case p == "*":
			matched = true
		case p == "-"+name:
			return false
		case p == name:
			matched = true
		}
	}
	return matched
}

func (s *Scanner) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.log.Debug().Str("phase", p.String()).Msg("Scan phase changed")
}

// progressSnapshot gathers the raw counters the progress computation
// reads. Redirected URLs sit in the site map but are not audit targets,
// so they come out of the denominator.
func (s *Scanner) progressSnapshot() progress.Snapshot {
	return progress.Snapshot{
		SiteTotal:     s.siteMap.Len(),
		Redirects:     s.redirects.Len(),
		Audited:       s.auditMap.Len(),
		TimingLoaded:  s.checks.HasTimingChecks(),
		TimingStarted: s.timing.Started(),
		TimingTotal:   s.timing.Total(),
		TimingPending: s.timing.Pending(),
	}
}
