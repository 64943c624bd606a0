package tlsio

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrNoEventLoop   = errors.Define("tlsio: no event loop")
	ErrSessionClosed = errors.Define("tlsio: session closed")
	ErrWantRead      = errors.Define("tlsio: want read")
	ErrWantWrite     = errors.Define("tlsio: want write")
	ErrIO            = errors.Define("tlsio: io error")
)

func IsWantRead(err error) bool {
	return errors.Is(err, ErrWantRead)
}

func IsWantWrite(err error) bool {
	return errors.Is(err, ErrWantWrite)
}

// IsWouldBlock reports whether err asks the caller to wait for readiness and
// retry rather than give up.
func IsWouldBlock(err error) bool {
	return IsWantRead(err) || IsWantWrite(err)
}

func IsIOError(err error) bool {
	return errors.Is(err, ErrIO)
}

func IsSessionClosed(err error) bool {
	return errors.Is(err, ErrSessionClosed)
}

// Status is the terminal result delivered to accept and connect completion
// callbacks. A raw-connect failure chained through AfterConnect keeps its
// original status value.
type Status int

const (
	StatusOK Status = iota
	StatusError
	StatusTimeout
	StatusTLSError
)

func (status Status) String() string {
	switch status {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	case StatusTLSError:
		return "tls error"
	default:
		return "unknown"
	}
}
