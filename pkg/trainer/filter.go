package trainer

import "sync"

// SeenFilter remembers the signatures of pages already fed into the
// audit, so retrained responses do not flood the page queue. Its
// lifetime spans scans within one process; it is cleared by the shared
// reset, before any dependent instance reset.
type SeenFilter struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewSeenFilter() *SeenFilter {
	return &SeenFilter{seen: make(map[string]struct{})}
}

// Seen marks the signature and reports whether it had been seen before.
func (f *SeenFilter) Seen(signature string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[signature]; ok {
		return true
	}
	f.seen[signature] = struct{}{}
	return false
}

func (f *SeenFilter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func (f *SeenFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = make(map[string]struct{})
}
