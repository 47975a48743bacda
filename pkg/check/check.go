package check

import (
	"github.com/rs/zerolog"

	"github.com/lyy289065406/arachni/pkg/issue"
	"github.com/lyy289065406/arachni/pkg/transport"
	"github.com/lyy289065406/arachni/pkg/web"
)

// Check is one vulnerability test executed against one page.
type Check interface {
	Name() string
	Description() string
	Run(ctx *Context) error
}

// TimingCheck marks checks that defer latency measurements to the
// timing batch instead of concluding during the regular page loop.
type TimingCheck interface {
	Check
	SchedulesTimingOps() bool
}

// Context is the surface a check runs against. Findings go through
// Report; deferred latency work goes through Timing.
type Context struct {
	Client *transport.Client
	Page   *web.Page
	Log    zerolog.Logger
	Report func(issue.Issue)
	Timing *TimingController
}
