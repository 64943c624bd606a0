package tlsio

import (
	"runtime"
	"sync"

	"github.com/brickingsoft/rxp"
)

var (
	executors     rxp.Executors = nil
	executorsOnce sync.Once
)

// Startup creates the process executors and the default event loop, whose
// wait loop runs on the executors. Call it at program start; sessions built
// without WithEventLoop use the default loop started here.
func Startup(options ...rxp.Option) (err error) {
	executors, err = rxp.New(options...)
	if err != nil {
		return
	}
	err = startDefaultLoop()
	return
}

// Shutdown stops the default event loop and closes the executors, waiting
// for submitted tasks to finish. Bound the wait with rxp.WithCloseTimeout.
func Shutdown() error {
	stopDefaultLoop()
	execs := Executors()
	if execs == nil {
		return nil
	}
	runtime.SetFinalizer(execs, nil)
	return execs.Close()
}

func ShutdownGracefully() error {
	return Shutdown()
}

func Executors() rxp.Executors {
	executorsOnce.Do(func() {
		if executors == nil {
			executors, _ = rxp.New()
			runtime.SetFinalizer(executors, rxp.Executors.Close)
		}
	})
	return executors
}
