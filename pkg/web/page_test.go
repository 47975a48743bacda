package web

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lyy289065406/arachni/pkg/transport"
)

func TestFromResponse(t *testing.T) {
	resp := &transport.Response{
		URL:         "http://test.com/index",
		StatusCode:  200,
		ContentType: "text/html; charset=utf-8",
		Headers:     http.Header{"Server": []string{"nginx/1.2.3"}},
		Body:        []byte(`<html><body><a href="/next">next</a></body></html>`),
		Duration:    120 * time.Millisecond,
	}

	page := FromResponse(resp)
	assert.Equal(t, "http://test.com/index", page.URL)
	assert.Equal(t, 200, page.Code)
	assert.True(t, page.Text)
	assert.Equal(t, 120*time.Millisecond, page.Duration)
	assert.Contains(t, page.Links, "http://test.com/next")
}

func TestFromResponseBinaryHasNoLinks(t *testing.T) {
	resp := &transport.Response{
		URL:         "http://test.com/logo.png",
		StatusCode:  200,
		ContentType: "image/png",
		Body:        []byte{0x89, 0x50, 0x4e, 0x47},
	}
	page := FromResponse(resp)
	assert.False(t, page.Text)
	assert.Empty(t, page.Links)
}

func TestHeaderLookup(t *testing.T) {
	page := &Page{Headers: map[string][]string{"Server": {"Apache"}}}
	assert.Equal(t, "Apache", page.Header("Server"))
	assert.Equal(t, "Apache", page.Header("server"))
	assert.Equal(t, "", page.Header("X-Missing"))

	var empty Page
	assert.Equal(t, "", empty.Header("Server"))
}
