package issue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lyy289065406/arachni/lib"
)

type Severity string

const (
	Info     Severity = "info"
	Low      Severity = "low"
	Medium   Severity = "medium"
	High     Severity = "high"
	Critical Severity = "critical"
)

// Issue is a single finding reported by a check against a page.
type Issue struct {
	Check      string    `json:"check" yaml:"check"`
	Name       string    `json:"name" yaml:"name"`
	URL        string    `json:"url" yaml:"url"`
	Element    string    `json:"element,omitempty" yaml:"element,omitempty"`
	Severity   Severity  `json:"severity" yaml:"severity"`
	Confidence int       `json:"confidence" yaml:"confidence"`
	Details    string    `json:"details,omitempty" yaml:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// Digest identifies the finding across reruns; the timestamp is left out
// on purpose.
func (i Issue) Digest() string {
	return lib.HashString(i.Check + "|" + i.Name + "|" + i.URL + "|" + i.Element)
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s (%s)", i.Severity, i.Name, i.URL)
}

func (i Issue) Pretty() string {
	return fmt.Sprintf("%s %s\n  URL: %s\n  Check: %s\n  Details: %s",
		lib.Colorize(string(i.Severity), severityColor(i.Severity)), i.Name, i.URL, i.Check, i.Details)
}

func (i Issue) TableHeaders() []string {
	return []string{"Severity", "Name", "URL", "Check"}
}

func (i Issue) TableRow() []string {
	return []string{string(i.Severity), i.Name, i.URL, i.Check}
}

func severityColor(s Severity) string {
	switch s {
	case Critical, High:
		return lib.Red
	case Medium:
		return lib.Yellow
	case Low:
		return lib.Blue
	default:
		return lib.Cyan
	}
}

// Collection accumulates issues reported by checks, deduplicated by digest.
type Collection struct {
	mu     sync.Mutex
	issues map[string]Issue
}

func NewCollection() *Collection {
	return &Collection{issues: make(map[string]Issue)}
}

// Add records the issue unless an identical finding is already present.
// It reports whether the issue was new.
func (c *Collection) Add(i Issue) bool {
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	digest := i.Digest()
	if _, exists := c.issues[digest]; exists {
		return false
	}
	c.issues[digest] = i
	return true
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues)
}

// Sorted returns the issues ordered by URL then check name.
func (c *Collection) Sorted() []Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Issue, 0, len(c.issues))
	for _, i := range c.issues {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].URL != out[b].URL {
			return out[a].URL < out[b].URL
		}
		return out[a].Check < out[b].Check
	})
	return out
}

func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = make(map[string]Issue)
}
