//go:build linux

// Package poller is the default readiness and timeout mechanism consumed by
// the session flow controllers: one-shot (descriptor, direction) interest
// with a continuation, plus one timeout timer per descriptor. Continuations
// always run on the Wait goroutine, so all callbacks of a descriptor are
// strictly sequential.
package poller

import (
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/engine"
	"golang.org/x/sys/unix"
)

var (
	ErrClosed = errors.Define("poller: closed")
)

type interest struct {
	readCont  func()
	writeCont func()
	timer     *time.Timer
	timerSeq  uint64
	added     bool
}

func (i *interest) mask() uint32 {
	m := uint32(0)
	if i.readCont != nil {
		m |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if i.writeCont != nil {
		m |= unix.EPOLLOUT
	}
	return m
}

type Poller struct {
	epfd   int
	wakefd int
	mu     sync.Mutex
	fds    map[int]*interest
	tasks  []func()
	closed bool
}

func Open() (*Poller, error) {
	epfd, epErr := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if epErr != nil {
		return nil, os.NewSyscallError("epoll_create1", epErr)
	}
	wakefd, efdErr := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if efdErr != nil {
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("eventfd", efdErr)
	}
	p := &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		fds:    make(map[int]*interest),
	}
	wakeEvent := &unix.EpollEvent{Fd: int32(wakefd), Events: unix.EPOLLIN}
	if ctlErr := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, wakeEvent); ctlErr != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("epoll_ctl", ctlErr)
	}
	return p, nil
}

// Register arms one-shot readiness interest for the direction. The
// continuation is invoked at most once; waiting again requires another
// Register call. Registering the same direction twice replaces the
// continuation.
func (p *Poller) Register(fd int, dir engine.Direction, cont func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("poller: register failed", errors.WithWrap(ErrClosed))
	}
	it := p.fds[fd]
	if it == nil {
		it = &interest{}
		p.fds[fd] = it
	}
	if dir == engine.Write {
		it.writeCont = cont
	} else {
		it.readCont = cont
	}
	return p.update(fd, it)
}

// ArmTimeout arms (or replaces) the descriptor's timeout timer. A
// non-positive duration cancels it.
func (p *Poller) ArmTimeout(fd int, timeout time.Duration, cont func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	it := p.fds[fd]
	if it == nil {
		it = &interest{}
		p.fds[fd] = it
	}
	if it.timer != nil {
		it.timer.Stop()
		it.timer = nil
	}
	it.timerSeq++
	if timeout <= 0 {
		return
	}
	seq := it.timerSeq
	it.timer = time.AfterFunc(timeout, func() {
		p.submit(func() {
			// A cancel or re-arm after firing wins over the queued expiry.
			p.mu.Lock()
			current := p.fds[fd]
			live := current != nil && current.timerSeq == seq
			if live {
				current.timer = nil
			}
			p.mu.Unlock()
			if live {
				cont()
			}
		})
	})
}

func (p *Poller) CancelTimeout(fd int) {
	p.ArmTimeout(fd, 0, nil)
}

// Detach drops every pending registration and the timer of the descriptor.
// Sessions call it on teardown so no continuation fires afterwards.
func (p *Poller) Detach(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	it := p.fds[fd]
	if it == nil {
		return
	}
	if it.timer != nil {
		it.timer.Stop()
		it.timer = nil
	}
	it.timerSeq++
	if it.added {
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	delete(p.fds, fd)
}

// update syncs the epoll registration with the pending continuations.
// Callers hold the mutex.
func (p *Poller) update(fd int, it *interest) error {
	m := it.mask()
	switch {
	case m == 0 && it.added:
		it.added = false
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
			return os.NewSyscallError("epoll_ctl", err)
		}
	case m != 0 && !it.added:
		event := &unix.EpollEvent{Fd: int32(fd), Events: m}
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, event); err != nil {
			return os.NewSyscallError("epoll_ctl", err)
		}
		it.added = true
	case m != 0:
		event := &unix.EpollEvent{Fd: int32(fd), Events: m}
		if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, event); err != nil {
			return os.NewSyscallError("epoll_ctl", err)
		}
	}
	return nil
}

// Wait runs the loop until Close. It dispatches readiness continuations and
// submitted tasks on the calling goroutine.
func (p *Poller) Wait() error {
	events := make([]unix.EpollEvent, 64)
	for {
		n, waitErr := unix.EpollWait(p.epfd, events, -1)
		if waitErr != nil && waitErr != unix.EINTR {
			return os.NewSyscallError("epoll_wait", waitErr)
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == p.wakefd {
				p.drainWake()
				continue
			}
			p.dispatch(fd, events[i].Events)
		}
		for _, task := range p.take() {
			task()
		}
		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			_ = unix.Close(p.wakefd)
			_ = unix.Close(p.epfd)
			return nil
		}
	}
}

func (p *Poller) dispatch(fd int, ev uint32) {
	p.mu.Lock()
	it := p.fds[fd]
	if it == nil {
		p.mu.Unlock()
		return
	}
	var readCont, writeCont func()
	// Error and hangup conditions release both directions so a stalled
	// continuation can observe the failure through its own retry.
	failure := ev&(unix.EPOLLERR|unix.EPOLLHUP|unix.EPOLLRDHUP) != 0
	if it.readCont != nil && (failure || ev&unix.EPOLLIN != 0) {
		readCont = it.readCont
		it.readCont = nil
	}
	if it.writeCont != nil && (failure || ev&unix.EPOLLOUT != 0) {
		writeCont = it.writeCont
		it.writeCont = nil
	}
	_ = p.update(fd, it)
	p.mu.Unlock()
	if readCont != nil {
		readCont()
	}
	if writeCont != nil {
		writeCont()
	}
}

func (p *Poller) submit(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()
	p.wakeup()
}

func (p *Poller) take() []func() {
	p.mu.Lock()
	tasks := p.tasks
	p.tasks = nil
	p.mu.Unlock()
	return tasks
}

func (p *Poller) wakeup() {
	var one uint64 = 1
	_, _ = unix.Write(p.wakefd, (*(*[8]byte)(unsafe.Pointer(&one)))[:])
}

func (p *Poller) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(p.wakefd, buf[:])
}

// Close stops the loop. Wait releases the descriptors on its way out.
func (p *Poller) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for fd, it := range p.fds {
		if it.timer != nil {
			it.timer.Stop()
			it.timer = nil
		}
		delete(p.fds, fd)
	}
	p.mu.Unlock()
	p.wakeup()
	return nil
}
