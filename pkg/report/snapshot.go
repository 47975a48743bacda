package report

import (
	"time"

	"github.com/lyy289065406/arachni/pkg/issue"
	"github.com/lyy289065406/arachni/pkg/scan/options"
)

// Snapshot is the serializable result of a scan, consumed by reporters
// after clean up. The embedded options carry the pre-scan redundancy
// counters, not the values mutated while crawling.
type Snapshot struct {
	Version  string          `json:"version" yaml:"version"`
	Revision string          `json:"revision" yaml:"revision"`
	ScanID   string          `json:"scan_id" yaml:"scan_id"`
	Options  options.Options `json:"options" yaml:"options"`

	StartTime  time.Time     `json:"start_time" yaml:"start_time"`
	FinishTime time.Time     `json:"finish_time" yaml:"finish_time"`
	Delta      time.Duration `json:"delta" yaml:"delta"`

	Sitemap []string       `json:"sitemap" yaml:"sitemap"`
	Issues  []issue.Issue  `json:"issues" yaml:"issues"`
	Plugins map[string]any `json:"plugins,omitempty" yaml:"plugins,omitempty"`
}
