//go:build unix

// Package stdtls adapts crypto/tls to the stepwise engine contract.
//
// The handshake is the only operation with sticky errors in crypto/tls, so
// it runs on a per-session pump goroutine over a non-blocking wire: when the
// wire would block, the pump parks and the stepping caller gets ErrWantRead
// or ErrWantWrite, the same way an SSL engine shuttles records through
// memory BIOs. Once the session is established the pump is gone and record
// transfer runs directly on the caller: reads surface a resumable temporary
// error on EAGAIN, writes land in the wire's outbound backlog when the
// descriptor is not writable. Read and write therefore never block each
// other; a write proceeds while a read waits for data.
package stdtls

import (
	"crypto/tls"
	"io"
	"net"
	"os"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/credentials"
	"github.com/brickingsoft/tlsio/pkg/engine"
	"golang.org/x/sys/unix"
)

var (
	errWireClosed     = errors.Define("stdtls: session closed")
	errNotEstablished = errors.Define("stdtls: handshake not complete")
)

type opKind int

const (
	opHandshake opKind = iota
	opRead
	opWrite
	opShutdown
)

type session struct {
	conn      *tls.Conn
	wire      *wire
	done      chan error
	closing   chan struct{}
	dir       engine.Direction
	hsStarted bool
	hsDone    bool
	closed    bool
}

// Server creates a server role engine session bound to an accepted,
// connected descriptor. The descriptor is switched to non-blocking mode.
func Server(fd int, store *credentials.Store) (engine.Session, error) {
	return newSession(fd, store.ServerTLSConfig(), false)
}

// Client creates a client role engine session bound to a connected
// descriptor.
func Client(fd int, store *credentials.Store) (engine.Session, error) {
	return newSession(fd, store.ClientTLSConfig(), true)
}

func newSession(fd int, config *tls.Config, client bool) (engine.Session, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, os.NewSyscallError("setnonblock", err)
	}
	w := &wire{
		fd:      fd,
		step:    make(chan struct{}),
		parked:  make(chan engine.Direction),
		closing: make(chan struct{}),
	}
	s := &session{
		wire:    w,
		done:    make(chan error),
		closing: w.closing,
	}
	if client {
		s.conn = tls.Client(w, config)
	} else {
		s.conn = tls.Server(w, config)
	}
	return s, nil
}

// pump runs the blocking handshake once, parking in the wire whenever the
// descriptor is not ready. It exits when the handshake resolves or the
// session closes.
func (s *session) pump() {
	err := s.conn.Handshake()
	select {
	case s.done <- err:
	case <-s.closing:
	}
}

// Handshake runs one handshake step. The first call starts the pump, later
// calls resume it; each invocation returns as soon as the pump parks again
// or the handshake resolves, so control returns promptly to the event loop.
func (s *session) Handshake() error {
	if s.closed {
		return engine.NewError(engine.CodeInternal, errWireClosed)
	}
	if s.hsDone {
		return nil
	}
	if !s.hsStarted {
		s.hsStarted = true
		go s.pump()
	} else {
		select {
		case s.wire.step <- struct{}{}:
		case <-s.closing:
			return engine.NewError(engine.CodeInternal, errWireClosed)
		}
	}
	select {
	case dir := <-s.wire.parked:
		s.dir = dir
		if dir == engine.Write {
			return engine.ErrWantWrite
		}
		return engine.ErrWantRead
	case err := <-s.done:
		if err != nil {
			return mapError(opHandshake, err)
		}
		s.hsDone = true
		s.wire.direct = true
		return nil
	}
}

func (s *session) Read(p []byte) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	// Opportunistic backlog drain; waiting for writability is the next
	// write's problem.
	if err := s.wire.flush(); err != nil && !isNotReady(err) {
		return 0, mapError(opWrite, err)
	}
	n, err := s.conn.Read(p)
	if n > 0 {
		return n, nil
	}
	if err == nil {
		return 0, nil
	}
	if isNotReady(err) {
		s.dir = engine.Read
		return 0, engine.ErrWantRead
	}
	return 0, mapError(opRead, err)
}

func (s *session) Write(p []byte) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	if err := s.wire.flush(); err != nil {
		if isNotReady(err) {
			s.dir = engine.Write
			return 0, engine.ErrWantWrite
		}
		return 0, mapError(opWrite, err)
	}
	n, err := s.conn.Write(p)
	if err != nil {
		return n, mapError(opWrite, err)
	}
	// The record bytes may have landed in the backlog; push what the
	// descriptor takes now, the rest rides along with the next operation.
	if flushErr := s.wire.flush(); flushErr != nil && !isNotReady(flushErr) {
		return n, mapError(opWrite, flushErr)
	}
	return n, nil
}

// Shutdown sends the close notification. Re-invoke on ErrWantWrite until the
// backlogged alert drains; the close notify itself is sent at most once.
func (s *session) Shutdown() error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.conn.CloseWrite(); err != nil && !isNotReady(err) {
		return mapError(opShutdown, err)
	}
	if err := s.wire.flush(); err != nil {
		if isNotReady(err) {
			s.dir = engine.Write
			return engine.ErrWantWrite
		}
		return mapError(opShutdown, err)
	}
	return nil
}

func (s *session) ready() error {
	if s.closed {
		return engine.NewError(engine.CodeInternal, errWireClosed)
	}
	if !s.hsDone {
		return engine.NewError(engine.CodeInternal, errNotEstablished)
	}
	return nil
}

func (s *session) Direction() engine.Direction {
	return s.dir
}

func (s *session) PeerCertificate() ([]byte, error) {
	state := s.conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, engine.NewError(engine.CodeNoCertificate, nil)
	}
	return state.PeerCertificates[0].Raw, nil
}

func (s *session) Description() string {
	state := s.conn.ConnectionState()
	if !state.HandshakeComplete {
		return ""
	}
	return tls.VersionName(state.Version) + "-" + tls.CipherSuiteName(state.CipherSuite)
}

// Close releases a parked handshake pump. The descriptor stays open, it
// belongs to the I/O layer.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.closing)
	return nil
}

func mapError(op opKind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		if op == opRead {
			// Clean close-notify, not a failure.
			return io.EOF
		}
		return engine.NewError(engine.CodePrematureTermination, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return engine.NewError(engine.CodePrematureTermination, err)
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return engine.NewError(engine.CodeUnexpectedPacket, err)
	}
	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		if syscallErr.Syscall == "write" {
			return engine.NewError(engine.CodePushError, err)
		}
		return engine.NewError(engine.CodePullError, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "remote error" {
		return engine.NewError(engine.CodeFatalAlertReceived, err)
	}
	if op == opHandshake {
		return engine.NewError(engine.CodeHandshakeFailure, err)
	}
	return engine.NewError(engine.CodeInternal, err)
}
