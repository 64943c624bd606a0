// Package tlsio is a non-blocking TLS transport layer for event-driven
// socket services. Accept and connect flow controllers drive the engine
// handshake one step per readiness event, completion callbacks fire exactly
// once per session, and established sessions expose a would-block read/write
// contract plus peer certificate fingerprints for authentication decisions.
package tlsio

import (
	"fmt"
	"runtime"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/certfp"
	"github.com/brickingsoft/tlsio/pkg/engine"
)

// FlowState is the accept/connect flow position of a Session. The three
// terminal states are mutually exclusive and final.
type FlowState int

const (
	FlowInitialized FlowState = iota
	FlowHandshaking
	FlowEstablished
	FlowFailed
	FlowTimedOut
)

func (state FlowState) Terminal() bool {
	return state >= FlowEstablished
}

func (state FlowState) String() string {
	switch state {
	case FlowInitialized:
		return "initialized"
	case FlowHandshaking:
		return "handshaking"
	case FlowEstablished:
		return "established"
	case FlowFailed:
		return "failed"
	case FlowTimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Session is one TLS-wrapped socket. It exclusively owns its engine handle
// and carries at most one of an accept or a connect context, never both.
// A Session is driven from a single logical flow on the event loop thread.
type Session struct {
	eng        engine.Session
	fd         int
	loop       EventLoop
	state      FlowState
	errno      engine.Code
	handshakes uint
	accept     *acceptContext
	connect    *connectContext
	closed     bool
}

// transition advances the flow state machine. States only move forward and
// a terminal state is never left, so a late transition attempt reports false
// instead of corrupting the flow.
func (s *Session) transition(to FlowState) bool {
	if s.state.Terminal() || to <= s.state {
		return false
	}
	s.state = to
	return true
}

// Fd returns the session's current socket descriptor.
func (s *Session) Fd() int {
	return s.fd
}

func (s *Session) State() FlowState {
	return s.state
}

func (s *Session) Established() bool {
	return s.state == FlowEstablished
}

// LastError returns the engine error code recorded by the last failed
// handshake step or transfer.
func (s *Session) LastError() engine.Code {
	return s.errno
}

// Strerror maps the recorded engine error code to a printable string.
func (s *Session) Strerror() string {
	return s.errno.String()
}

// HandshakeCount reports how many handshakes completed on this session.
func (s *Session) HandshakeCount() uint {
	return s.handshakes
}

func (s *Session) ClearHandshakeCount() {
	s.handshakes = 0
}

// CipherDescription returns a printable summary of the negotiated protocol
// and cipher suite, empty before the handshake completes.
func (s *Session) CipherDescription() string {
	return s.eng.Description()
}

// PeerFingerprint computes the fingerprint of the peer's certificate. A nil
// result means no peer certificate is available or extraction failed.
func (s *Session) PeerFingerprint(method certfp.Method) []byte {
	der, err := s.eng.PeerCertificate()
	if err != nil {
		s.errno = engine.CodeOf(err)
		return nil
	}
	return certfp.Sum(der, method)
}

// Shutdown attempts the engine's close-notify exchange, giving up after a
// few would-block rounds, then closes the session.
func (s *Session) Shutdown() error {
	if s.closed {
		return errors.New("tlsio: shutdown failed", errors.WithWrap(ErrSessionClosed))
	}
	for i := 0; i < 4; i++ {
		err := s.eng.Shutdown()
		if err == nil || !engine.IsWouldBlock(err) {
			break
		}
	}
	return s.Close()
}

// Close destroys the session exactly once: pending readiness registrations
// and the timer are aborted first, then the engine handle is released. The
// socket descriptor itself stays open, it belongs to the caller's I/O layer.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.loop.Detach(s.fd)
	s.accept = nil
	s.connect = nil
	return s.eng.Close()
}

// Info describes the TLS engine backing new sessions.
func Info() string {
	return fmt.Sprintf("stdtls: crypto/tls (%s)", runtime.Version())
}
