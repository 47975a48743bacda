package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want float64
	}{
		{
			"nothing audited",
			Snapshot{SiteTotal: 10, Audited: 0},
			0.0,
		},
		{
			"everything audited",
			Snapshot{SiteTotal: 10, Audited: 10},
			100.0,
		},
		{
			"halfway",
			Snapshot{SiteTotal: 10, Audited: 5},
			50.0,
		},
		{
			"redirects excluded from denominator",
			Snapshot{SiteTotal: 12, Redirects: 2, Audited: 5},
			50.0,
		},
		{
			"effective total zero yields zero, not an error",
			Snapshot{SiteTotal: 3, Redirects: 3, Audited: 3},
			0.0,
		},
		{
			"empty site map",
			Snapshot{},
			0.0,
		},
		{
			"timing checks halve the crawl phase weight",
			Snapshot{SiteTotal: 10, Audited: 10, TimingLoaded: true},
			50.0,
		},
		{
			"timing batch halfway",
			Snapshot{SiteTotal: 10, Audited: 10, TimingLoaded: true, TimingStarted: true, TimingTotal: 4, TimingPending: 2},
			75.0,
		},
		{
			"timing batch complete",
			Snapshot{SiteTotal: 10, Audited: 10, TimingLoaded: true, TimingStarted: true, TimingTotal: 4, TimingPending: 0},
			100.0,
		},
		{
			"rounded to two decimals",
			Snapshot{SiteTotal: 3, Audited: 1},
			33.33,
		},
		{
			"clamped at 100",
			Snapshot{SiteTotal: 5, Audited: 9},
			100.0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Calculate(tc.snap))
		})
	}
}

func TestETA(t *testing.T) {
	assert.Equal(t, time.Duration(0), ETA(0, time.Minute))
	assert.Equal(t, time.Minute, ETA(50, time.Minute))
	assert.Equal(t, time.Duration(0), ETA(100, time.Minute))
	assert.Equal(t, 3*time.Minute, ETA(25, time.Minute))
}
