package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyy289065406/arachni/pkg/transport"
)

func TestFetchStablePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>stable</html>")
	}))
	defer server.Close()

	client := transport.NewClient(4, 0)
	var page *Page
	Fetch(client, server.URL, 2, func(p *Page) {
		page = p
	})
	client.RunQueued()

	require.NotNil(t, page, "onReady must fire once all fetches resolve")
	assert.False(t, page.Volatile)
	assert.Equal(t, server.URL, page.URL)
}

func TestFetchVolatilePage(t *testing.T) {
	var counter atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html>nonce-%d</html>", counter.Add(1))
	}))
	defer server.Close()

	client := transport.NewClient(1, 0)
	var page *Page
	Fetch(client, server.URL, 3, func(p *Page) {
		page = p
	})
	client.RunQueued()

	require.NotNil(t, page)
	assert.True(t, page.Volatile)
}

func TestFetchFailureIsSilent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := transport.NewClient(2, 0)
	called := false
	Fetch(client, server.URL, 2, func(p *Page) {
		called = true
	})
	client.RunQueued()

	assert.False(t, called, "failed fetches must not materialize a page")
}
