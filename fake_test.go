package tlsio_test

import (
	"time"

	"github.com/brickingsoft/tlsio"
	"github.com/brickingsoft/tlsio/pkg/credentials"
	"github.com/brickingsoft/tlsio/pkg/engine"
)

// fakeLoop records registrations and timers so tests can fire readiness and
// expiry by hand, in any interleaving.
type fakeLoop struct {
	regs        []fakeReg
	timeoutCont func()
	cancels     int
	detached    bool
}

type fakeReg struct {
	fd   int
	dir  engine.Direction
	cont func()
}

func (l *fakeLoop) Register(fd int, dir engine.Direction, cont func()) error {
	l.regs = append(l.regs, fakeReg{fd: fd, dir: dir, cont: cont})
	return nil
}

func (l *fakeLoop) ArmTimeout(fd int, timeout time.Duration, cont func()) {
	if timeout <= 0 {
		l.timeoutCont = nil
		l.cancels++
		return
	}
	l.timeoutCont = cont
}

func (l *fakeLoop) CancelTimeout(fd int) {
	l.ArmTimeout(fd, 0, nil)
}

func (l *fakeLoop) Detach(fd int) {
	l.detached = true
	l.timeoutCont = nil
	l.regs = nil
}

// fireNext invokes the oldest pending readiness continuation, simulating the
// event the session registered for.
func (l *fakeLoop) fireNext() bool {
	if len(l.regs) == 0 {
		return false
	}
	next := l.regs[0]
	l.regs = l.regs[1:]
	next.cont()
	return true
}

// fireTimeout simulates timer expiry.
func (l *fakeLoop) fireTimeout() bool {
	cont := l.timeoutCont
	if cont == nil {
		return false
	}
	l.timeoutCont = nil
	cont()
	return true
}

type fakeStep struct {
	err error
	dir engine.Direction
}

type fakeXfer struct {
	n   int
	err error
	dir engine.Direction
}

// fakeEngine is a scripted engine session: handshake steps and transfers pop
// their results off fixed sequences.
type fakeEngine struct {
	steps     []fakeStep
	reads     []fakeXfer
	writes    []fakeXfer
	dir       engine.Direction
	peerDER   []byte
	desc      string
	shutdowns []error
	closed    int
}

func (e *fakeEngine) Handshake() error {
	if len(e.steps) == 0 {
		return nil
	}
	next := e.steps[0]
	e.steps = e.steps[1:]
	if engine.IsWouldBlock(next.err) {
		e.dir = next.dir
	}
	return next.err
}

func (e *fakeEngine) Read(p []byte) (int, error) {
	return e.pop(&e.reads, p)
}

func (e *fakeEngine) Write(p []byte) (int, error) {
	return e.pop(&e.writes, p)
}

func (e *fakeEngine) pop(seq *[]fakeXfer, p []byte) (int, error) {
	if len(*seq) == 0 {
		return len(p), nil
	}
	next := (*seq)[0]
	*seq = (*seq)[1:]
	if engine.IsWouldBlock(next.err) {
		e.dir = next.dir
	}
	n := next.n
	if n > len(p) {
		n = len(p)
	}
	return n, next.err
}

func (e *fakeEngine) Direction() engine.Direction {
	return e.dir
}

func (e *fakeEngine) PeerCertificate() ([]byte, error) {
	if e.peerDER == nil {
		return nil, engine.NewError(engine.CodeNoCertificate, nil)
	}
	return e.peerDER, nil
}

func (e *fakeEngine) Description() string {
	return e.desc
}

func (e *fakeEngine) Shutdown() error {
	if len(e.shutdowns) == 0 {
		return nil
	}
	next := e.shutdowns[0]
	e.shutdowns = e.shutdowns[1:]
	return next
}

func (e *fakeEngine) Close() error {
	e.closed++
	return nil
}

func fakeFactory(e *fakeEngine) tlsio.EngineFactory {
	return func(fd int, store *credentials.Store) (engine.Session, error) {
		return e, nil
	}
}
