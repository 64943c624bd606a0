package tlsio

import (
	"time"

	"github.com/brickingsoft/tlsio/pkg/engine"
)

// EventLoop is the readiness and timer mechanism the session flow controllers
// run on. The default implementation is pkg/poller; any loop honoring these
// semantics can be injected with WithEventLoop.
//
// Register arms one-shot interest: the continuation is invoked at most once
// and waiting again requires re-registration. ArmTimeout replaces the
// descriptor's previous timer; a non-positive duration cancels it. Detach
// drops every pending registration and the timer so no continuation fires
// afterwards. Continuations of one descriptor must never run concurrently.
type EventLoop interface {
	Register(fd int, dir engine.Direction, cont func()) (err error)
	ArmTimeout(fd int, timeout time.Duration, cont func())
	CancelTimeout(fd int)
	Detach(fd int)
}
