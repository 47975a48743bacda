package surface

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddCollapsesDuplicates(t *testing.T) {
	m := NewMap()
	assert.True(t, m.Add("http://test.com/a"))
	assert.False(t, m.Add("http://test.com/a"))
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Contains("http://test.com/a"))
}

func TestAddEmptyIgnored(t *testing.T) {
	m := NewMap()
	assert.False(t, m.Add(""))
	assert.Equal(t, 0, m.Len())
}

func TestSorted(t *testing.T) {
	m := NewMap()
	m.Add("http://test.com/c")
	m.Add("http://test.com/a")
	m.Add("http://test.com/b")
	assert.Equal(t, []string{"http://test.com/a", "http://test.com/b", "http://test.com/c"}, m.Sorted())
}

func TestContainsAll(t *testing.T) {
	site := NewMap()
	audit := NewMap()
	site.Add("http://test.com/a")
	site.Add("http://test.com/b")
	audit.Add("http://test.com/a")

	assert.True(t, site.ContainsAll(audit))
	assert.False(t, audit.ContainsAll(site))
}

func TestClear(t *testing.T) {
	m := NewMap()
	m.Add("http://test.com/a")
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Contains("http://test.com/a"))
}

func TestConcurrentAdds(t *testing.T) {
	m := NewMap()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add("http://test.com/same")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, m.Len())
}
