package crawl

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyy289065406/arachni/pkg/scan/options"
	"github.com/lyy289065406/arachni/pkg/transport"
)

func testServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="/a">a</a> <a href="/b">b</a>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<a href="/deep">deep</a>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `no links here`)
	})
	mux.HandleFunc("/deep", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `bottom`)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusFound)
	})
	return httptest.NewServer(mux)
}

func spiderOptions(url string) *options.Options {
	return &options.Options{
		URL:            url,
		Depth:          5,
		PagePrecision:  1,
		MaxConcurrency: 4,
	}
}

func TestSpiderDiscoversLinkedPages(t *testing.T) {
	server := testServer()
	defer server.Close()

	client := transport.NewClient(4, 0)
	spider := NewSpider(spiderOptions(server.URL+"/"), client)

	var discovered []string
	spider.Run(func(u string) {
		discovered = append(discovered, u)
	})

	assert.Contains(t, discovered, server.URL+"/")
	assert.Contains(t, discovered, server.URL+"/a")
	assert.Contains(t, discovered, server.URL+"/b")
	assert.Contains(t, discovered, server.URL+"/deep")
}

func TestSpiderDepthLimit(t *testing.T) {
	server := testServer()
	defer server.Close()

	opts := spiderOptions(server.URL + "/")
	opts.Depth = 1
	client := transport.NewClient(4, 0)
	spider := NewSpider(opts, client)

	var discovered []string
	spider.Run(func(u string) {
		discovered = append(discovered, u)
	})

	assert.Contains(t, discovered, server.URL+"/a")
	assert.NotContains(t, discovered, server.URL+"/deep")
}

func TestSpiderMaxPages(t *testing.T) {
	server := testServer()
	defer server.Close()

	opts := spiderOptions(server.URL + "/")
	opts.MaxPages = 1
	client := transport.NewClient(4, 0)
	spider := NewSpider(opts, client)

	count := 0
	spider.Run(func(u string) { count++ })
	assert.Equal(t, 1, count)
}

func TestSpiderRecordsRedirects(t *testing.T) {
	server := testServer()
	defer server.Close()

	opts := spiderOptions(server.URL + "/moved")
	client := transport.NewClient(4, 0)
	spider := NewSpider(opts, client)

	var discovered []string
	spider.Run(func(u string) {
		discovered = append(discovered, u)
	})

	assert.Contains(t, discovered, server.URL+"/b", "onURL receives the final url")
	assert.NotContains(t, discovered, server.URL+"/moved", "redirect sources are not audit targets")
	assert.Contains(t, spider.Redirects(), server.URL+"/moved")
	assert.Contains(t, spider.Sitemap(), server.URL+"/moved")
}

func TestSpiderExcludePatterns(t *testing.T) {
	server := testServer()
	defer server.Close()

	opts := spiderOptions(server.URL + "/")
	opts.ExcludePatterns = []string{`/a$`}
	client := transport.NewClient(4, 0)
	spider := NewSpider(opts, client)

	var discovered []string
	spider.Run(func(u string) {
		discovered = append(discovered, u)
	})

	assert.NotContains(t, discovered, server.URL+"/a")
	assert.Contains(t, discovered, server.URL+"/b")
}

func TestSpiderRedundancy(t *testing.T) {
	server := testServer()
	defer server.Close()

	opts := spiderOptions(server.URL + "/")
	opts.Redundancy = map[string]int{`/(a|b|deep)`: 1}
	client := transport.NewClient(4, 0)
	spider := NewSpider(opts, client)

	count := 0
	spider.Run(func(u string) { count++ })

	// Root plus exactly one URL matching the redundancy pattern.
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, opts.Redundancy[`/(a|b|deep)`])
}

func TestSpiderIgnoredExtensions(t *testing.T) {
	assert.True(t, hasIgnoredExtension("http://test.com/logo.png", []string{"png"}))
	assert.True(t, hasIgnoredExtension("http://test.com/logo.PNG?v=2", []string{"png"}))
	assert.False(t, hasIgnoredExtension("http://test.com/page", []string{"png"}))
	assert.False(t, hasIgnoredExtension("http://test.com/v1.2/page", []string{"png"}))
}
