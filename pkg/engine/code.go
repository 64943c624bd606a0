package engine

import (
	"fmt"

	"github.com/brickingsoft/errors"
)

// Code identifies an engine failure for diagnostic retrieval. Codes are
// negative, zero means no failure has been recorded.
type Code int

const (
	CodeSuccess              Code = 0
	CodeAgain                Code = -1
	CodeInterrupted          Code = -2
	CodePullError            Code = -3
	CodePushError            Code = -4
	CodeHandshakeFailure     Code = -5
	CodeFatalAlertReceived   Code = -6
	CodePrematureTermination Code = -7
	CodeUnexpectedPacket     Code = -8
	CodeNoCertificate        Code = -9
	CodeInternal             Code = -10
)

var codeStrings = map[Code]string{
	CodeSuccess:              "success",
	CodeAgain:                "resource temporarily unavailable, try again",
	CodeInterrupted:          "function was interrupted",
	CodePullError:            "error in the pull function",
	CodePushError:            "error in the push function",
	CodeHandshakeFailure:     "handshake failed",
	CodeFatalAlertReceived:   "a fatal alert has been received",
	CodePrematureTermination: "the connection was terminated prematurely",
	CodeUnexpectedPacket:     "an unexpected packet was received",
	CodeNoCertificate:        "the peer did not send any certificate",
	CodeInternal:             "internal error",
}

func (c Code) String() string {
	if s, has := codeStrings[c]; has {
		return s
	}
	return fmt.Sprintf("unknown error (%d)", int(c))
}

// Error is a terminal engine failure carrying its Code and, when available,
// the underlying cause's text.
type Error struct {
	Code   Code
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return "engine: " + e.Code.String()
	}
	return "engine: " + e.Code.String() + ": " + e.Reason
}

func NewError(code Code, cause error) *Error {
	e := &Error{Code: code}
	if cause != nil {
		e.Reason = cause.Error()
	}
	return e
}

// CodeOf extracts the Code from a terminal engine failure.
// Would-block results and foreign errors map to CodeInternal so a recorded
// errno always resolves to a printable string.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
