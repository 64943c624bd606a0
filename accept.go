package tlsio

import (
	"net"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/credentials"
)

// AcceptCallback is the accept completion callback. peer is the stored peer
// address on StatusOK and nil otherwise. It is invoked exactly once per
// session.
type AcceptCallback func(s *Session, status Status, peer net.Addr, data any)

type acceptContext struct {
	callback AcceptCallback
	data     any
	peer     net.Addr
}

// StartAccepted wraps a freshly accepted, connected descriptor in a server
// role session and drives the TLS handshake. The engine session is bound to
// the store's identity, DH parameters and cipher policy, and requests (but
// does not require) a peer certificate. peer may be nil when the caller did
// not capture the address. The callback fires on the event loop thread when
// the handshake completes, fails, or the timeout expires, whichever comes
// first; when the handshake finishes without blocking it fires before
// StartAccepted returns.
func StartAccepted(fd int, store *credentials.Store, peer net.Addr, timeout time.Duration, callback AcceptCallback, data any, options ...Option) (*Session, error) {
	opts, optErr := makeOptions(options)
	if optErr != nil {
		return nil, optErr
	}
	eng, engErr := opts.ServerEngine(fd, store)
	if engErr != nil {
		return nil, errors.New("tlsio: start accepted failed", errors.WithWrap(engErr))
	}
	s := &Session{
		eng:   eng,
		fd:    fd,
		loop:  opts.Loop,
		state: FlowInitialized,
	}
	s.accept = &acceptContext{
		callback: callback,
		data:     data,
		peer:     peer,
	}
	s.loop.ArmTimeout(fd, timeout, func() {
		s.finishAccept(StatusTimeout)
	})
	s.transition(FlowHandshaking)
	s.tryAccept()
	return s, nil
}

// tryAccept is the driving function re-invoked by readiness events. A late
// event after teardown finds the context cleared and is a no-op.
func (s *Session) tryAccept() {
	if s.accept == nil {
		return
	}
	switch s.advanceHandshake(s.tryAccept) {
	case handshakeAgain:
	case handshakeDone:
		s.finishAccept(StatusOK)
	case handshakeFailed:
		s.finishAccept(StatusTLSError)
	}
}

// finishAccept is the single terminal transition of the accept flow. The
// context pointer is cleared before the callback fires, so a reentrant
// teardown or a racing timeout cannot invoke it twice.
func (s *Session) finishAccept(status Status) {
	ad := s.accept
	if ad == nil {
		return
	}
	s.accept = nil
	s.loop.CancelTimeout(s.fd)
	var peer net.Addr
	switch status {
	case StatusOK:
		s.transition(FlowEstablished)
		peer = ad.peer
	case StatusTimeout:
		s.transition(FlowTimedOut)
	default:
		s.transition(FlowFailed)
	}
	ad.callback(s, status, peer, ad.data)
}
