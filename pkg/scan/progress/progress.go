package progress

import (
	"math"
	"time"
)

// Snapshot carries the raw counters progress is derived from. Values are
// read fresh for every computation; nothing here accumulates.
type Snapshot struct {
	// SiteTotal is the site map size, Redirects the number of redirected
	// URLs inside it. Redirected URLs are valid paths but not audit
	// targets, so they are excluded from the denominator.
	SiteTotal int
	Redirects int
	Audited   int

	// TimingLoaded is true when any timing-channel check is scheduled,
	// which halves the weight of the regular phase. TimingStarted stays
	// true once the deferred batch has begun.
	TimingLoaded  bool
	TimingStarted bool
	TimingTotal   int
	TimingPending int
}

// Calculate returns the scan completion percentage in [0,100], rounded
// to two decimals. Any arithmetic fault (an empty effective total, a
// non-finite intermediate) yields 0.0 rather than an error.
func Calculate(s Snapshot) float64 {
	effectiveTotal := s.SiteTotal - s.Redirects
	if effectiveTotal <= 0 {
		return 0.0
	}

	phaseWeight := 100.0
	if s.TimingLoaded {
		phaseWeight = 50.0
	}

	pct := float64(s.Audited) / float64(effectiveTotal) * phaseWeight

	if s.TimingStarted && s.TimingTotal > 0 {
		pct += float64(s.TimingTotal-s.TimingPending) / float64(s.TimingTotal) * phaseWeight
	}

	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0.0
	}

	pct = math.Round(pct*100) / 100
	if pct < 0 {
		return 0.0
	}
	if pct > 100 {
		return 100.0
	}
	return pct
}

// ETA estimates the remaining duration from the completion percentage
// and the time spent so far.
func ETA(pct float64, elapsed time.Duration) time.Duration {
	if pct <= 0 {
		return 0
	}
	remaining := (100 - pct) * float64(elapsed) / pct
	if remaining < 0 || math.IsNaN(remaining) || math.IsInf(remaining, 0) {
		return 0
	}
	return time.Duration(remaining)
}
