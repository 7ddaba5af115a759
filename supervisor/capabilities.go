package supervisor

import (
	"github.com/fenwick-embedded/dfucore/clock"
	"github.com/fenwick-embedded/dfucore/flash"
	"github.com/fenwick-embedded/dfucore/internal/logging"
	"github.com/fenwick-embedded/dfucore/wire"
)

// Capabilities bundles the external collaborators the Supervisor is
// driven by, per the design note calling for a small, explicit,
// mockable capability object rather than hidden globals or free
// functions from another translation unit.
type Capabilities struct {
	// Flash is required; New panics if it is nil.
	Flash flash.Driver

	// Clock is required; New panics if it is nil.
	Clock clock.Source

	// Link is required; New panics if it is nil.
	Link wire.Link

	// Logger is optional; a no-op logger is used if nil.
	Logger logging.Logger

	// LaunchApp is invoked on RUNNING_APP entry, standing in for the
	// real hand-off to the installed application. Optional; a nil-safe
	// no-op is used if unset.
	LaunchApp func()
}

func (c Capabilities) logger() logging.Logger {
	return logging.OrNoop(c.Logger)
}

func (c Capabilities) launch() {
	if c.LaunchApp != nil {
		c.LaunchApp()
	}
}
