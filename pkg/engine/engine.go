// Package engine defines the contract between the session lifecycle layer and
// the underlying TLS engine. The engine owns the record layer, cipher
// negotiation and certificate parsing; callers own the socket descriptor and
// the scheduling of steps.
//
// Every blocking-shaped operation is stepwise: it either completes, fails with
// a *Error, or reports ErrWantRead / ErrWantWrite. On a would-block result the
// caller must wait for readiness of the direction reported by Direction and
// re-invoke the same operation.
package engine

import (
	"github.com/brickingsoft/errors"
)

type Direction int

const (
	Read Direction = iota
	Write
)

func (dir Direction) String() string {
	if dir == Write {
		return "write"
	}
	return "read"
}

var (
	ErrWantRead  = errors.Define("engine: want read")
	ErrWantWrite = errors.Define("engine: want write")
)

func IsWantRead(err error) bool {
	return errors.Is(err, ErrWantRead)
}

func IsWantWrite(err error) bool {
	return errors.Is(err, ErrWantWrite)
}

// IsWouldBlock reports whether err is a transient would-block result rather
// than a terminal failure.
func IsWouldBlock(err error) bool {
	return IsWantRead(err) || IsWantWrite(err)
}

// Session is one TLS engine session bound to a socket descriptor.
//
// A Session is not safe for concurrent use: the caller drives it from one
// logical flow, re-invoking a parked operation until it completes or fails.
// Close releases the engine's resources exactly once and never closes the
// descriptor, which belongs to the I/O layer.
type Session interface {
	// Handshake runs one handshake step.
	// A nil result means the handshake is complete.
	Handshake() error
	// Read transfers decrypted record data into p.
	// A clean close-notify from the peer surfaces as io.EOF.
	Read(p []byte) (n int, err error)
	// Write transfers p through the record layer. Partial writes are normal.
	Write(p []byte) (n int, err error)
	// Direction reports the I/O direction of the last would-block result.
	// It is only meaningful directly after ErrWantRead or ErrWantWrite.
	Direction() Direction
	// PeerCertificate returns the DER encoding of the peer's leaf
	// certificate, or an error when the peer presented none.
	PeerCertificate() (der []byte, err error)
	// Description returns a printable summary of the negotiated protocol
	// and cipher suite. Empty before the handshake completes.
	Description() string
	// Shutdown sends the engine's close notification. It may would-block
	// like any other stepwise operation.
	Shutdown() error
	Close() error
}
