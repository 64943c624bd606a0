package tlsio

import (
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/credentials"
)

// ConnectCallback is the connect completion callback, invoked exactly once
// per session.
type ConnectCallback func(s *Session, status Status, data any)

type connectContext struct {
	callback ConnectCallback
	data     any
	timeout  time.Duration
}

// StartConnected wraps an already-established connection in a client role
// session and drives the TLS handshake, with the same timeout and
// exactly-once discipline as StartAccepted.
func StartConnected(fd int, store *credentials.Store, timeout time.Duration, callback ConnectCallback, data any, options ...Option) (*Session, error) {
	opts, optErr := makeOptions(options)
	if optErr != nil {
		return nil, optErr
	}
	eng, engErr := opts.ClientEngine(fd, store)
	if engErr != nil {
		return nil, errors.New("tlsio: start connected failed", errors.WithWrap(engErr))
	}
	s := &Session{
		eng:   eng,
		fd:    fd,
		loop:  opts.Loop,
		state: FlowInitialized,
	}
	s.connect = &connectContext{
		callback: callback,
		data:     data,
		timeout:  timeout,
	}
	s.loop.ArmTimeout(fd, timeout, func() {
		s.finishConnect(StatusTimeout)
	})
	s.transition(FlowHandshaking)
	s.tryConnect()
	return s, nil
}

// AfterConnect chains a raw TCP connect completion into a TLS handshake.
// A raw-connect failure status is forwarded to the callback verbatim, no
// session is created and no handshake is attempted.
func AfterConnect(fd int, status Status, store *credentials.Store, timeout time.Duration, callback ConnectCallback, data any, options ...Option) (*Session, error) {
	if status != StatusOK {
		callback(nil, status, data)
		return nil, nil
	}
	return StartConnected(fd, store, timeout, callback, data, options...)
}

func (s *Session) tryConnect() {
	if s.connect == nil {
		return
	}
	switch s.advanceHandshake(s.tryConnect) {
	case handshakeAgain:
	case handshakeDone:
		s.finishConnect(StatusOK)
	case handshakeFailed:
		s.finishConnect(StatusTLSError)
	}
}

// finishConnect mirrors finishAccept: context cleared first, one terminal
// callback, timeout and completion mutually exclusive.
func (s *Session) finishConnect(status Status) {
	cd := s.connect
	if cd == nil {
		return
	}
	s.connect = nil
	s.loop.CancelTimeout(s.fd)
	switch status {
	case StatusOK:
		s.transition(FlowEstablished)
	case StatusTimeout:
		s.transition(FlowTimedOut)
	default:
		s.transition(FlowFailed)
	}
	cd.callback(s, status, cd.data)
}
