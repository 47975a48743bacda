package issue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectionDedupe(t *testing.T) {
	c := NewCollection()
	first := Issue{Check: "server_banner", Name: "Server banner", URL: "http://test.com", Severity: Low}

	assert.True(t, c.Add(first))
	assert.False(t, c.Add(first), "identical finding should be deduplicated")
	assert.Equal(t, 1, c.Len())

	other := first
	other.URL = "http://test.com/other"
	assert.True(t, c.Add(other))
	assert.Equal(t, 2, c.Len())
}

func TestCollectionSorted(t *testing.T) {
	c := NewCollection()
	c.Add(Issue{Check: "b_check", Name: "B", URL: "http://test.com/z"})
	c.Add(Issue{Check: "a_check", Name: "A", URL: "http://test.com/a"})
	c.Add(Issue{Check: "a_check", Name: "A", URL: "http://test.com/z"})

	sorted := c.Sorted()
	assert.Equal(t, 3, len(sorted))
	assert.Equal(t, "http://test.com/a", sorted[0].URL)
	assert.Equal(t, "a_check", sorted[1].Check)
	assert.Equal(t, "b_check", sorted[2].Check)
}

func TestCollectionClear(t *testing.T) {
	c := NewCollection()
	c.Add(Issue{Check: "x", Name: "X", URL: "http://test.com"})
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestAddSetsTimestamp(t *testing.T) {
	c := NewCollection()
	c.Add(Issue{Check: "x", Name: "X", URL: "http://test.com"})
	assert.False(t, c.Sorted()[0].Timestamp.IsZero())
}
