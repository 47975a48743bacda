package lib

const (
	FrameworkName = "arachni"

	// Version is the framework release, used by the plugin
	// compatibility gate and the result snapshot.
	Version = "0.2.0"
)

// Revision is overridable at build time:
// -ldflags "-X github.com/lyy289065406/arachni/lib.Revision=<sha>"
var Revision = "dev"
