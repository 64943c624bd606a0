//go:build !linux

package tlsio

import (
	"github.com/brickingsoft/errors"
)

// DefaultLoop returns nil on platforms without a bundled poller; sessions
// must be given a loop with WithEventLoop.
func DefaultLoop() EventLoop {
	return nil
}

func startDefaultLoop() error {
	return errors.New("tlsio: no default event loop on this platform", errors.WithWrap(ErrNoEventLoop))
}

func stopDefaultLoop() {
}
