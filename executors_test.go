package tlsio_test

import (
	"context"
	"testing"
	"time"

	"github.com/brickingsoft/tlsio"
)

type signalTask struct {
	done chan struct{}
}

func (task *signalTask) Handle(_ context.Context) {
	close(task.done)
}

func TestExecutors(t *testing.T) {
	execs := tlsio.Executors()
	if execs == nil {
		t.Fatal("no executors")
	}
	done := make(chan struct{})
	if err := execs.Execute(execs.Context(), &signalTask{done: done}); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}
