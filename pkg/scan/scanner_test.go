package scan

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyy289065406/arachni/pkg/check"
	_ "github.com/lyy289065406/arachni/pkg/check/checks"
	_ "github.com/lyy289065406/arachni/pkg/plugin/plugins"
	"github.com/lyy289065406/arachni/pkg/scan/control"
	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/web"
)

// recordingCheck appends "name:url" to a shared journal on every run.
type recordingCheck struct {
	name    string
	mu      *sync.Mutex
	journal *[]string
}

func (c recordingCheck) Name() string        { return c.name }
func (c recordingCheck) Description() string { return "records invocations" }

func (c recordingCheck) Run(ctx *check.Context) error {
	c.mu.Lock()
	*c.journal = append(*c.journal, c.name+":"+ctx.Page.URL)
	c.mu.Unlock()
	return nil
}

type panickingCheck struct{}

func (panickingCheck) Name() string             { return "test_panics" }
func (panickingCheck) Description() string      { return "always panics" }
func (panickingCheck) Run(*check.Context) error { panic("boom") }

// idleTimingCheck marks the schedule as containing timing work without
// scheduling any operations itself.
type idleTimingCheck struct{}

func (idleTimingCheck) Name() string             { return "test_idle_timing" }
func (idleTimingCheck) Description() string      { return "timing marker" }
func (idleTimingCheck) Run(*check.Context) error { return nil }
func (idleTimingCheck) SchedulesTimingOps() bool { return true }

// revealingTimingCheck defers a fetch of a URL the crawl never saw, so
// the page only surfaces while the timing batch runs.
type revealingTimingCheck struct{}

func (revealingTimingCheck) Name() string             { return "test_reveal_timing" }
func (revealingTimingCheck) Description() string      { return "fetches an uncrawled url from the batch" }
func (revealingTimingCheck) SchedulesTimingOps() bool { return true }

func (revealingTimingCheck) Run(ctx *check.Context) error {
	revealMu.Lock()
	target := revealTarget
	revealMu.Unlock()
	if target == "" {
		return nil
	}
	client := ctx.Client
	ctx.Timing.Schedule(check.Op{
		Check: "test_reveal_timing",
		URL:   target,
		Execute: func() error {
			_, err := client.Get(target)
			return err
		},
	})
	return nil
}

var (
	revealMu     sync.Mutex
	revealTarget string
)

var (
	journalMu sync.Mutex
	journal   []string
)

func init() {
	check.Register("test_record_one", func() check.Check {
		return recordingCheck{name: "test_record_one", mu: &journalMu, journal: &journal}
	})
	check.Register("test_record_two", func() check.Check {
		return recordingCheck{name: "test_record_two", mu: &journalMu, journal: &journal}
	})
	check.Register("test_panics", func() check.Check { return panickingCheck{} })
	check.Register("test_idle_timing", func() check.Check { return idleTimingCheck{} })
	check.Register("test_reveal_timing", func() check.Check { return revealingTimingCheck{} })
}

func testOptions(url string) *options.Options {
	return &options.Options{
		URL:            url,
		Checks:         []string{"test_record_one", "test_record_two"},
		Depth:          3,
		PagePrecision:  1,
		MaxConcurrency: 4,
	}
}

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	for _, path := range []string{"/", "/a", "/b"} {
		path := path
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, "<html><body>page %s</body></html>", path)
		})
	}
	return httptest.NewServer(mux)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	_, err := New(&options.Options{URL: "not a url", PagePrecision: 1, MaxConcurrency: 1})
	assert.Error(t, err)

	_, err = New(&options.Options{URL: "http://example.com/", PagePrecision: 0, MaxConcurrency: 1})
	assert.Error(t, err)
}

func TestPushURLCountsEveryCallAndDeduplicatesMembership(t *testing.T) {
	s, err := New(testOptions("http://example.com/"))
	require.NoError(t, err)

	s.PushURL("/a")
	s.PushURL("/a")
	s.PushURL("/b")

	assert.Equal(t, int64(3), s.urlQueue.TotalPushed())
	assert.Equal(t, 2, s.siteMap.Len())
	assert.True(t, s.siteMap.Contains("http://example.com/a"))
	assert.True(t, s.siteMap.Contains("http://example.com/b"))
}

func TestAuditMapIsSubsetOfSiteMap(t *testing.T) {
	s, err := New(testOptions("http://example.com/"))
	require.NoError(t, err)
	s.checks.Load(s.opts.Checks)

	pages := []*web.Page{
		{URL: "http://example.com/x", Text: true},
		{URL: "http://example.com/y", Text: true},
	}
	for _, p := range pages {
		s.runChecksOn(p)
		assert.True(t, s.siteMap.ContainsAll(s.auditMap))
	}
	assert.Equal(t, 2, s.auditMap.Len())
}

func TestRestrictedPathsAuditScenario(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	journalMu.Lock()
	journal = nil
	journalMu.Unlock()

	opts := testOptions(server.URL + "/")
	opts.RestrictPaths = []string{"/a", "/b"}

	s, err := New(opts)
	require.NoError(t, err)
	s.Run(nil)

	assert.True(t, s.auditMap.Contains(server.URL+"/a"))
	assert.True(t, s.auditMap.Contains(server.URL+"/b"))
	assert.Equal(t, 2, s.auditMap.Len())
	assert.Equal(t, "done", s.Status())

	journalMu.Lock()
	defer journalMu.Unlock()
	require.Len(t, journal, 4)
	// Schedule order holds within each page.
	for i := 0; i < len(journal); i += 2 {
		url := journal[i][len("test_record_one:"):]
		assert.Equal(t, "test_record_one:"+url, journal[i])
		assert.Equal(t, "test_record_two:"+url, journal[i+1])
	}
}

func TestFaultingCheckDoesNotStopSchedule(t *testing.T) {
	journalMu.Lock()
	journal = nil
	journalMu.Unlock()

	opts := testOptions("http://example.com/")
	opts.Checks = []string{"test_panics", "test_record_one"}

	s, err := New(opts)
	require.NoError(t, err)
	s.checks.Load(opts.Checks)

	s.runChecksOn(&web.Page{URL: "http://example.com/p1", Text: true})
	s.runChecksOn(&web.Page{URL: "http://example.com/p2", Text: true})

	journalMu.Lock()
	defer journalMu.Unlock()
	assert.Equal(t, []string{
		"test_record_one:http://example.com/p1",
		"test_record_one:http://example.com/p2",
	}, journal)
}

func TestBinaryPagesAreRecordedButNotChecked(t *testing.T) {
	journalMu.Lock()
	journal = nil
	journalMu.Unlock()

	opts := testOptions("http://example.com/")
	opts.ExcludeBinaries = true

	s, err := New(opts)
	require.NoError(t, err)
	s.checks.Load(opts.Checks)

	s.runChecksOn(&web.Page{URL: "http://example.com/blob", Text: false})

	assert.True(t, s.auditMap.Contains("http://example.com/blob"))
	journalMu.Lock()
	defer journalMu.Unlock()
	assert.Empty(t, journal)
}

func TestPauseStatusAndTwoPauserSemantics(t *testing.T) {
	s, err := New(testOptions("http://example.com/"))
	require.NoError(t, err)
	s.setPhase(PhaseAuditing)

	tok1 := s.Pause()
	tok2 := s.Pause()
	assert.Equal(t, StatusPaused, s.Status())

	assert.True(t, s.Resume(tok1))
	assert.Equal(t, StatusPaused, s.Status())

	assert.True(t, s.Resume(tok2))
	assert.Equal(t, "auditing", s.Status())

	assert.False(t, s.Resume(control.Token{}))
}

func TestResetZeroesCountersAndClearsState(t *testing.T) {
	s, err := New(testOptions("http://example.com/"))
	require.NoError(t, err)

	s.PushURL("/a")
	s.PushPage(&web.Page{URL: "http://example.com/a", Text: true})
	s.auditMap.Add("http://example.com/a")
	s.OnPageAudit(func(*web.Page) {})

	s.Reset()

	assert.Equal(t, int64(0), s.urlQueue.TotalPushed())
	assert.Equal(t, int64(0), s.pageQueue.TotalPushed())
	assert.Equal(t, 0, s.siteMap.Len())
	assert.Equal(t, 0, s.auditMap.Len())
	assert.Equal(t, "ready", s.Status())
	s.mu.Lock()
	assert.Empty(t, s.listeners)
	s.mu.Unlock()
}

func TestResetRestoresRedundancyCounters(t *testing.T) {
	opts := testOptions("http://example.com/")
	opts.Redundancy = map[string]int{"page=": 3}

	s, err := New(opts)
	require.NoError(t, err)

	opts.Redundancy["page="] = 0
	s.Reset()
	assert.Equal(t, 3, opts.Redundancy["page="])
}

func TestCleanUpDisablesOnlyPositivesAndClosesScanDone(t *testing.T) {
	opts := testOptions("http://example.com/")
	opts.OnlyPositives = true

	s, err := New(opts)
	require.NoError(t, err)

	s.CleanUp()

	assert.False(t, opts.OnlyPositives)
	select {
	case <-s.ScanDone():
	default:
		t.Fatal("scan done channel should be closed after clean up")
	}
}

func TestSnapshotRestoresRedundancyAndSortsSitemap(t *testing.T) {
	opts := testOptions("http://example.com/")
	opts.Redundancy = map[string]int{"id=": 2}

	s, err := New(opts)
	require.NoError(t, err)

	opts.Redundancy["id="] = 0
	s.siteMap.Add("http://example.com/b")
	s.siteMap.Add("http://example.com/a")

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Options.Redundancy["id="])
	assert.Equal(t, []string{"http://example.com/a", "http://example.com/b"}, snap.Sitemap)
	assert.Equal(t, s.ID(), snap.ScanID)
	// The live counters stay mutated; only the snapshot is restored.
	assert.Equal(t, 0, opts.Redundancy["id="])
}

func TestFullScanAgainstCrawledServer(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	journalMu.Lock()
	journal = nil
	journalMu.Unlock()

	opts := testOptions(server.URL + "/")
	opts.Checks = []string{"test_record_one"}

	s, err := New(opts)
	require.NoError(t, err)

	finalized := false
	s.Run(func() { finalized = true })

	assert.True(t, finalized)
	assert.Equal(t, "done", s.Status())
	assert.True(t, s.auditMap.Contains(server.URL+"/"))
	assert.True(t, s.siteMap.ContainsAll(s.auditMap))
	assert.GreaterOrEqual(t, s.auditMap.Len(), 1)

	stats := s.Stats()
	assert.Equal(t, 100.0, stats.Progress)
	assert.Greater(t, stats.RequestCount, int64(0))
}

func TestTimingBatchRevealedPageIsAudited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>front page</body></html>")
	})
	mux.HandleFunc("/hidden", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/">back</a></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	hidden := server.URL + "/hidden"
	revealMu.Lock()
	revealTarget = hidden
	revealMu.Unlock()
	defer func() {
		revealMu.Lock()
		revealTarget = ""
		revealMu.Unlock()
	}()

	journalMu.Lock()
	journal = nil
	journalMu.Unlock()

	opts := testOptions(server.URL + "/")
	opts.Checks = []string{"test_record_one", "test_reveal_timing"}
	opts.RestrictPaths = []string{"/"}

	s, err := New(opts)
	require.NoError(t, err)
	s.Run(nil)

	// The crawl never saw /hidden; only the deferred fetch exposes it,
	// and the drain after the batch must pick it up.
	assert.True(t, s.siteMap.Contains(hidden))
	assert.True(t, s.auditMap.Contains(hidden))

	journalMu.Lock()
	defer journalMu.Unlock()
	assert.Contains(t, journal, "test_record_one:"+hidden)
}

func TestListingsFilterByPattern(t *testing.T) {
	s, err := New(testOptions("http://example.com/"))
	require.NoError(t, err)

	all := s.ListChecks(nil)
	assert.NotEmpty(t, all)

	only := s.ListChecks([]string{"test_record_one"})
	require.Len(t, only, 1)
	assert.Equal(t, "test_record_one", only[0].Name)

	excluded := s.ListChecks([]string{"*", "-test_record_one"})
	for _, info := range excluded {
		assert.NotEqual(t, "test_record_one", info.Name)
	}

	assert.NotEmpty(t, s.ListPlugins(nil))
	assert.NotEmpty(t, s.ListReporters(nil))
}

func TestResetSharedClearsCollaborators(t *testing.T) {
	s, err := New(testOptions("http://example.com/"))
	require.NoError(t, err)

	s.timing.Schedule(check.Op{Check: "x", URL: "http://example.com/", Execute: func() error { return nil }})
	s.seenFilter.Seen("sig")

	s.ResetShared()

	assert.Equal(t, 0, s.timing.Total())
	assert.Equal(t, 0, s.seenFilter.Len())
	assert.Equal(t, int64(0), s.client.RequestCount())
}
