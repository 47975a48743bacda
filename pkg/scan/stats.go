package scan

import (
	"fmt"
	"time"

	"github.com/lyy289065406/arachni/pkg/scan/progress"
)

// Stats is a point-in-time view of the running scan.
type Stats struct {
	Status   string        `json:"status" yaml:"status"`
	Progress float64       `json:"progress" yaml:"progress"`
	ETA      time.Duration `json:"eta" yaml:"eta"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`

	SiteMapSize  int   `json:"sitemap_size" yaml:"sitemap_size"`
	AuditMapSize int   `json:"auditmap_size" yaml:"auditmap_size"`
	URLsPushed   int64 `json:"urls_pushed" yaml:"urls_pushed"`
	PagesPushed  int64 `json:"pages_pushed" yaml:"pages_pushed"`
	IssueCount   int   `json:"issue_count" yaml:"issue_count"`

	TimingTotal   int `json:"timing_total" yaml:"timing_total"`
	TimingPending int `json:"timing_pending" yaml:"timing_pending"`

	RequestCount        int64         `json:"request_count" yaml:"request_count"`
	ResponseCount       int64         `json:"response_count" yaml:"response_count"`
	TimeoutCount        int64         `json:"timeout_count" yaml:"timeout_count"`
	AverageResponseTime time.Duration `json:"average_response_time" yaml:"average_response_time"`
	ResponsesPerSecond  float64       `json:"responses_per_second" yaml:"responses_per_second"`
	MaxConcurrency      int           `json:"max_concurrency" yaml:"max_concurrency"`
}

func (st Stats) String() string {
	return fmt.Sprintf("%s %.2f%% (%d/%d audited, %d issues)",
		st.Status, st.Progress, st.AuditMapSize, st.SiteMapSize, st.IssueCount)
}

func (st Stats) Pretty() string {
	return fmt.Sprintf("status: %s\nprogress: %.2f%%\neta: %s\nelapsed: %s\naudited: %d/%d\nissues: %d\nrequests: %d (%d timeouts)",
		st.Status, st.Progress, st.ETA.Round(time.Second), st.Elapsed.Round(time.Second),
		st.AuditMapSize, st.SiteMapSize, st.IssueCount, st.RequestCount, st.TimeoutCount)
}

func (st Stats) TableHeaders() []string {
	return []string{"Status", "Progress", "Audited", "Sitemap", "Issues", "Requests", "Timeouts", "Elapsed"}
}

func (st Stats) TableRow() []string {
	return []string{
		st.Status,
		fmt.Sprintf("%.2f%%", st.Progress),
		fmt.Sprintf("%d", st.AuditMapSize),
		fmt.Sprintf("%d", st.SiteMapSize),
		fmt.Sprintf("%d", st.IssueCount),
		fmt.Sprintf("%d", st.RequestCount),
		fmt.Sprintf("%d", st.TimeoutCount),
		st.Elapsed.Round(time.Second).String(),
	}
}

// Stats computes the current statistics. See StatsAt for the elapsed
// time semantics.
func (s *Scanner) Stats() Stats {
	return s.StatsAt(time.Now(), false)
}

// StatsAt computes statistics against the given clock reading. The
// elapsed time freezes once the audit map has caught up with the site
// map, even though timing work or plugins may still be running; passing
// overrideRefresh trues the clock up again. This early freeze is
// long-standing observable behavior, kept as is.
func (s *Scanner) StatsAt(now time.Time, overrideRefresh bool) Stats {
	snap := s.progressSnapshot()
	pct := progress.Calculate(snap)

	s.mu.Lock()
	start := s.startTime
	auditCaughtUp := snap.SiteTotal > 0 && snap.Audited == snap.SiteTotal
	var elapsed time.Duration
	switch {
	case start.IsZero():
		elapsed = 0
	case overrideRefresh:
		s.frozenAt = now
		elapsed = now.Sub(start)
	case auditCaughtUp:
		if s.frozenAt.IsZero() {
			s.frozenAt = now
		}
		elapsed = s.frozenAt.Sub(start)
	default:
		elapsed = now.Sub(start)
	}
	s.mu.Unlock()

	return Stats{
		Status:   s.Status(),
		Progress: pct,
		ETA:      progress.ETA(pct, elapsed),
		Elapsed:  elapsed,

		SiteMapSize:  snap.SiteTotal,
		AuditMapSize: snap.Audited,
		URLsPushed:   s.urlQueue.TotalPushed(),
		PagesPushed:  s.pageQueue.TotalPushed(),
		IssueCount:   len(s.checks.Results()),

		TimingTotal:   snap.TimingTotal,
		TimingPending: snap.TimingPending,

		RequestCount:        s.client.RequestCount(),
		ResponseCount:       s.client.ResponseCount(),
		TimeoutCount:        s.client.TimeoutCount(),
		AverageResponseTime: s.client.AverageResponseTime(),
		ResponsesPerSecond:  s.client.CurrentResponsesPerSecond(),
		MaxConcurrency:      s.client.MaxConcurrency(),
	}
}
