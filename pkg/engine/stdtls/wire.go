//go:build unix

package stdtls

import (
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/engine"
	"golang.org/x/sys/unix"
)

// notReadyError is the temporary error surfaced into the record layer when
// the descriptor is not ready. crypto/tls keeps the connection usable after
// a temporary net.Error, so the interrupted record operation resumes on the
// next call.
type notReadyError struct{}

func (e *notReadyError) Error() string   { return "stdtls: descriptor not ready" }
func (e *notReadyError) Timeout() bool   { return true }
func (e *notReadyError) Temporary() bool { return true }

var errNotReady = &notReadyError{}

func isNotReady(err error) bool {
	var e *notReadyError
	return errors.As(err, &e)
}

// wire is the transport the tls.Conn runs over. It performs non-blocking
// syscalls on the descriptor directly. During the handshake it parks the
// pump goroutine on EAGAIN and hands the direction to the stepping caller;
// once the session is established it switches to direct mode, where reads
// report errNotReady and writes that would block land in an outbound
// backlog flushed by later calls.
type wire struct {
	fd      int
	step    chan struct{}
	parked  chan engine.Direction
	closing chan struct{}
	direct  bool
	pending []byte
}

// park reports the would-block direction to the stepping caller and waits to
// be resumed. It returns false when the session is closing, which aborts the
// in-flight handshake.
func (w *wire) park(dir engine.Direction) bool {
	select {
	case w.parked <- dir:
	case <-w.closing:
		return false
	}
	select {
	case <-w.step:
		return true
	case <-w.closing:
		return false
	}
}

func (w *wire) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(w.fd, p)
		if n > 0 {
			return n, nil
		}
		if err == nil {
			return 0, io.EOF
		}
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			if w.direct {
				return 0, errNotReady
			}
			if !w.park(engine.Read) {
				return 0, errWireClosed
			}
			continue
		default:
			return 0, os.NewSyscallError("read", err)
		}
	}
}

func (w *wire) Write(p []byte) (int, error) {
	if w.direct {
		if len(w.pending) > 0 {
			// The record stream must stay ordered: new bytes go behind
			// the backlog and leave together.
			w.pending = append(w.pending, p...)
			return len(p), nil
		}
		total := 0
		for total < len(p) {
			n, err := unix.Write(w.fd, p[total:])
			if n > 0 {
				total += n
				continue
			}
			switch err {
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				w.pending = append(w.pending, p[total:]...)
				return len(p), nil
			default:
				return total, os.NewSyscallError("write", err)
			}
		}
		return total, nil
	}
	total := 0
	for total < len(p) {
		n, err := unix.Write(w.fd, p[total:])
		if n > 0 {
			total += n
			continue
		}
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			if !w.park(engine.Write) {
				return total, errWireClosed
			}
			continue
		default:
			return total, os.NewSyscallError("write", err)
		}
	}
	return total, nil
}

// flush pushes backlogged record bytes to the descriptor. errNotReady means
// bytes remain and the caller must wait for writability.
func (w *wire) flush() error {
	for len(w.pending) > 0 {
		n, err := unix.Write(w.fd, w.pending)
		if n > 0 {
			w.pending = w.pending[n:]
			continue
		}
		switch err {
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return errNotReady
		default:
			return os.NewSyscallError("write", err)
		}
	}
	w.pending = nil
	return nil
}

// Close is a no-op: the descriptor belongs to the I/O layer.
func (w *wire) Close() error {
	return nil
}

func (w *wire) LocalAddr() net.Addr {
	return wireAddr(w.fd)
}

func (w *wire) RemoteAddr() net.Addr {
	return wireAddr(w.fd)
}

// Deadlines are meaningless here, timeouts are owned by the flow controllers.
func (w *wire) SetDeadline(time.Time) error {
	return nil
}

func (w *wire) SetReadDeadline(time.Time) error {
	return nil
}

func (w *wire) SetWriteDeadline(time.Time) error {
	return nil
}

type wireAddr int

func (a wireAddr) Network() string {
	return "fd"
}

func (a wireAddr) String() string {
	return "fd:" + strconv.Itoa(int(a))
}
