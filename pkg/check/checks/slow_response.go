package checks

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lyy289065406/arachni/lib"
	"github.com/lyy289065406/arachni/pkg/check"
	"github.com/lyy289065406/arachni/pkg/issue"
)

// SlowResponse is a timing-channel check: during the page loop it only
// records the baseline latency and schedules one deferred measurement.
// The measurements run as a serial batch after the regular phase so
// concurrent audit traffic cannot skew them.
type SlowResponse struct{}

func (c *SlowResponse) Name() string { return "slow_response" }

func (c *SlowResponse) Description() string {
	return "Measures response latency in a deferred batch and reports endpoints that respond significantly slower than their baseline"
}

func (c *SlowResponse) SchedulesTimingOps() bool { return true }

func (c *SlowResponse) Run(ctx *check.Context) error {
	baseline := ctx.Page.Duration
	pageURL := ctx.Page.URL
	client := ctx.Client
	report := ctx.Report

	// A cache buster keeps intermediaries from answering the deferred
	// measurement faster than the origin would.
	measureURL := pageURL
	if strings.Contains(measureURL, "?") {
		measureURL += "&cb=" + lib.GenerateRandomString(8)
	} else {
		measureURL += "?cb=" + lib.GenerateRandomString(8)
	}

	ctx.Timing.Schedule(check.Op{
		Check: c.Name(),
		URL:   pageURL,
		Execute: func() error {
			resp, err := client.Get(measureURL)
			if err != nil {
				return err
			}

			multiplier := viper.GetFloat64("audit.timing.slow_multiplier")
			if multiplier <= 0 {
				multiplier = 4.0
			}
			floor := time.Duration(viper.GetInt("audit.timing.slow_floor_ms")) * time.Millisecond

			threshold := time.Duration(float64(baseline) * multiplier)
			if threshold < floor {
				threshold = floor
			}
			if resp.Duration <= threshold {
				return nil
			}
			report(issue.Issue{
				Check:      c.Name(),
				Name:       "Abnormally slow response",
				URL:        pageURL,
				Severity:   issue.Info,
				Confidence: 50,
				Details: fmt.Sprintf("Deferred measurement took %s against a baseline of %s (threshold %s)",
					resp.Duration, baseline, threshold),
			})
			return nil
		},
	})
	return nil
}

func init() {
	check.Register("slow_response", func() check.Check { return &SlowResponse{} })
}
