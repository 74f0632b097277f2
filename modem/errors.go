package modem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNoAPN is returned when the configuration carries no access point name.
	ErrNoAPN = errors.New("no APN configured")

	// ErrNoMux is returned when multiplexing is enabled but no Mux
	// collaborator was provided.
	ErrNoMux = errors.New("multiplexing enabled without a mux")

	// ErrBadTimeouts is returned when the transmit lock ceiling does not
	// exceed both the AT and the setup timeout. Stop could otherwise give up
	// on the lock while a command is still legitimately in flight.
	ErrBadTimeouts = errors.New("lock ceiling must exceed command timeouts")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Session that has not been successfully initialized.
	//
	// This can occur if the dialer returned no transport or if the Session
	// was not created via New.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Session that has
	// already been closed.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrLoopRunning is returned by Loop when another Loop is already
	// running on the same Session or Commander.
	ErrLoopRunning = errors.New("loop already running")

	// ErrAlreadyStarted is returned by Start when bring-up is in progress or
	// completed.
	ErrAlreadyStarted = errors.New("modem already started")

	// ErrAlreadyStopped is returned by Stop when the Session is stopped.
	ErrAlreadyStopped = errors.New("modem already stopped")

	// ErrLineTooLong is returned when a modem response line exceeds the
	// maximum allowed length.
	//
	// This typically indicates malformed input, unexpected binary data,
	// or a protocol framing error.
	ErrLineTooLong = errors.New("response line too long")

	// ErrExchangeBusy is returned by Send when another exchange is still
	// outstanding. It means a caller skipped the transmit lock.
	ErrExchangeBusy = errors.New("command exchange already outstanding")

	// ErrTimeout is returned when no terminal response arrived in time.
	ErrTimeout = errors.New("command timed out")

	// ErrProtocol is matched by every *ProtocolError.
	ErrProtocol = errors.New("modem returned an error")

	// ErrTransportUnavailable is returned when there is no channel to send
	// on, or writing to it failed.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrAttachFailure is recorded when a multiplexer channel could not be
	// allocated or attached.
	ErrAttachFailure = errors.New("mux channel attach failed")

	// ErrTerminal is recorded when the AT channel does not answer after the
	// link came up. Bring-up stays in StateError until stopped.
	ErrTerminal = errors.New("terminal bring-up failure")
)

// ProtocolError is an explicit error response to a command: a plain ERROR or
// an extended +CME ERROR carrying a code.
type ProtocolError struct {
	Cmd string
	// Code is the +CME ERROR number exactly as the modem reported it, so it
	// is positive for extended errors. It is -1 for a plain ERROR or a
	// verbose error text. Result gives the negative errno form.
	Code int
	// Extended holds the raw +CME ERROR payload.
	Extended string
}

func (e *ProtocolError) Error() string {
	if e.Extended != "" {
		return fmt.Sprintf("%s: +CME ERROR: %s", e.Cmd, e.Extended)
	}
	return fmt.Sprintf("%s: ERROR", e.Cmd)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// Result returns the negative errno a failed exchange reports: -EIO for an
// extended +CME ERROR and -EINVAL for a plain ERROR.
func (e *ProtocolError) Result() int {
	if e.Extended != "" {
		return -int(unix.EIO)
	}
	return -int(unix.EINVAL)
}
