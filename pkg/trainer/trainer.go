package trainer

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/viper"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/scope"
	"github.com/lyy289065406/arachni/pkg/transport"
	"github.com/lyy289065406/arachni/pkg/web"
)

// similarityThreshold is how close two bodies for the same URL must be
// before the newer one is considered dynamic noise rather than new state.
const similarityThreshold = 0.98

// Trainer inspects HTTP responses flowing through the transport and
// feeds pages carrying state the crawler never saw back into the scan.
// It owns its injection point: Observe installs the hook, Stop removes
// it.
type Trainer struct {
	scope  scope.Scope
	filter *SeenFilter
	budget int

	mu       sync.Mutex
	onPage   func(*web.Page)
	remove   func()
	perURL   map[string]int
	lastBody map[string]string
}

func New(opts *options.Options, filter *SeenFilter) *Trainer {
	return &Trainer{
		scope:    scope.FromURL(opts.URL, opts.FollowSubdomains),
		filter:   filter,
		budget:   viper.GetInt("audit.train_budget"),
		perURL:   make(map[string]int),
		lastBody: make(map[string]string),
	}
}

// OnPage registers the sink new pages are emitted to.
func (t *Trainer) OnPage(fn func(*web.Page)) {
	t.mu.Lock()
	t.onPage = fn
	t.mu.Unlock()
}

// Observe installs the response hook on the client.
func (t *Trainer) Observe(client *transport.Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remove != nil {
		return
	}
	t.remove = client.OnResponse(t.observe)
}

// Stop removes the response hook.
func (t *Trainer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remove != nil {
		t.remove()
		t.remove = nil
	}
}

func (t *Trainer) observe(resp *transport.Response) {
	if !resp.IsText() {
		return
	}
	if !t.scope.IsInScope(resp.URL) {
		return
	}

	body := string(resp.Body)

	t.mu.Lock()
	onPage := t.onPage
	if onPage == nil {
		t.mu.Unlock()
		return
	}

	base, err := lib.GetURLWithoutQueryString(resp.URL)
	if err != nil {
		base = resp.URL
	}
	if t.budget > 0 && t.perURL[base] >= t.budget {
		t.mu.Unlock()
		log.Debug().Str("url", base).Msg("Training budget exhausted for url")
		return
	}

	if last, ok := t.lastBody[base]; ok && similar(last, body) {
		t.mu.Unlock()
		return
	}
	t.lastBody[base] = body
	t.mu.Unlock()

	page := web.FromResponse(resp)
	if page.Volatile {
		return
	}

	signature := lib.HashString(page.URL + "|" + strings.Join(page.Links, ","))
	if t.filter.Seen(signature) {
		return
	}

	t.mu.Lock()
	t.perURL[base]++
	t.mu.Unlock()

	log.Debug().Str("url", page.URL).Int("links", len(page.Links)).Msg("Trainer discovered new page state")
	onPage(page)
}

// similar reports whether two bodies are close enough to be the same
// page with dynamic noise.
func similar(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	similarity := 1 - float64(distance)/float64(longest)
	return similarity >= similarityThreshold
}
