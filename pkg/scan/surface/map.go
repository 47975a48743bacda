package surface

import (
	"sort"
	"sync"
)

// Map is a thread-safe set of URLs. It backs both the site map
// (discovered surface) and the audit map (URLs that completed the check
// loop); duplicate adds are membership no-ops.
type Map struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

func NewMap() *Map {
	return &Map{urls: make(map[string]struct{})}
}

// Add inserts the URL and reports whether it was new.
func (m *Map) Add(url string) bool {
	if url == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.urls[url]; exists {
		return false
	}
	m.urls[url] = struct{}{}
	return true
}

func (m *Map) Contains(url string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.urls[url]
	return ok
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.urls)
}

// Sorted returns the member URLs in lexical order.
func (m *Map) Sorted() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.urls))
	for u := range m.urls {
		out = append(out, u)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

// ContainsAll reports whether every member of other is also a member of m.
func (m *Map) ContainsAll(other *Map) bool {
	for _, u := range other.Sorted() {
		if !m.Contains(u) {
			return false
		}
	}
	return true
}

func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = make(map[string]struct{})
}
