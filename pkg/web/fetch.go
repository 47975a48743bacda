package web

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/lyy289065406/arachni/pkg/transport"
)

// Fetch queues precision GETs for the URL and hands the constructed page
// to onReady once all of them have resolved (during a harvest). Bodies
// that differ between fetches mark the page as volatile. Fetch failures
// are dropped silently: onReady is simply never called and the URL is
// not materialized into a page.
func Fetch(client *transport.Client, rawURL string, precision int, onReady func(*Page)) {
	if precision < 1 {
		precision = 1
	}

	var (
		mu        sync.Mutex
		remaining = precision
		first     *transport.Response
		volatile  bool
		failed    bool
	)

	handler := func(resp *transport.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		remaining--

		if err != nil {
			if !failed {
				log.Debug().Err(err).Str("url", rawURL).Msg("Page fetch failed, dropping url")
			}
			failed = true
		} else if first == nil {
			first = resp
		} else if !bytes.Equal(first.Body, resp.Body) {
			volatile = true
			dmp := diffmatchpatch.New()
			diffs := dmp.DiffMain(string(first.Body), string(resp.Body), false)
			log.Debug().Str("url", rawURL).Int("diffs", len(diffs)).Msg("Page body differs between fetches")
		}

		if remaining > 0 {
			return
		}
		if failed || first == nil {
			return
		}
		page := FromResponse(first)
		page.Volatile = volatile
		onReady(page)
	}

	for i := 0; i < precision; i++ {
		client.Queue(&transport.Request{Method: http.MethodGet, URL: rawURL}, handler)
	}
}
