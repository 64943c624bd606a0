//go:build linux

package tlsio

import (
	"context"

	"github.com/brickingsoft/tlsio/pkg/poller"
)

var defaultLoop *poller.Poller

// DefaultLoop returns the loop started by Startup, nil before Startup.
func DefaultLoop() EventLoop {
	if defaultLoop == nil {
		return nil
	}
	return defaultLoop
}

// loopTask hosts the poller's wait loop on the executors.
type loopTask struct {
	p *poller.Poller
}

func (task *loopTask) Handle(_ context.Context) {
	_ = task.p.Wait()
}

func startDefaultLoop() error {
	p, openErr := poller.Open()
	if openErr != nil {
		return openErr
	}
	execs := Executors()
	if execErr := execs.Execute(execs.Context(), &loopTask{p: p}); execErr != nil {
		_ = p.Close()
		return execErr
	}
	defaultLoop = p
	return nil
}

func stopDefaultLoop() {
	if defaultLoop != nil {
		_ = defaultLoop.Close()
		defaultLoop = nil
	}
}
