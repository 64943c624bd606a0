package tlsio

import (
	"github.com/brickingsoft/tlsio/pkg/engine"
)

type handshakeResult int

const (
	handshakeAgain handshakeResult = iota
	handshakeDone
	handshakeFailed
)

// advanceHandshake runs one engine handshake step and never blocks.
//
// On would-block it registers the descriptor for readiness on the engine's
// reported direction with cont, which re-invokes the caller's driving
// function, and returns handshakeAgain; retries happen through that
// re-invocation with no bounded count, an external timeout is the only
// limit. On failure the engine error code is recorded on the session and
// the caller tears the flow context down.
func (s *Session) advanceHandshake(cont func()) handshakeResult {
	err := s.eng.Handshake()
	if err == nil {
		s.handshakes++
		return handshakeDone
	}
	if engine.IsWouldBlock(err) {
		if regErr := s.loop.Register(s.fd, s.eng.Direction(), cont); regErr != nil {
			s.errno = engine.CodeInternal
			return handshakeFailed
		}
		return handshakeAgain
	}
	s.errno = engine.CodeOf(err)
	return handshakeFailed
}
