package tlsio

import (
	"io"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/engine"
)

// Read transfers decrypted record data into b. It returns the byte count
// (possibly less than requested, re-invoke for the remainder), ErrWantRead
// or ErrWantWrite when the engine needs readiness first, io.EOF on a clean
// close from the peer, or ErrIO with the engine code recorded for Strerror.
//
// The would-block direction is the engine's reported record direction, not
// the requested one: a Read can return ErrWantWrite, and readiness must be
// registered for the reported direction.
func (s *Session) Read(b []byte) (int, error) {
	return s.transfer(engine.Read, b)
}

// Write transfers b through the record layer, with the same contract as
// Read. Partial writes are normal.
func (s *Session) Write(b []byte) (int, error) {
	return s.transfer(engine.Write, b)
}

func (s *Session) transfer(dir engine.Direction, b []byte) (int, error) {
	if s.closed {
		return 0, errors.New("tlsio: transfer failed", errors.WithWrap(ErrSessionClosed))
	}
	var n int
	var err error
	if dir == engine.Read {
		n, err = s.eng.Read(b)
	} else {
		n, err = s.eng.Write(b)
	}
	if err == nil {
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	if engine.IsWouldBlock(err) {
		if s.eng.Direction() == engine.Write {
			return 0, ErrWantWrite
		}
		return 0, ErrWantRead
	}
	s.errno = engine.CodeOf(err)
	return 0, errors.New("tlsio: transfer failed", errors.WithWrap(errors.Join(ErrIO, err)))
}
