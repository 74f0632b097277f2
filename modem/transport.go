package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/warthog618/modem/trace"
	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=modem

// Transport represents an established, bidirectional byte stream to a GSM modem.
//
// A Transport is assumed to be already connected and ready for use. It provides
// the low-level I/O primitives required to send AT commands and receive responses.
// Typical implementations include serial ports, multiplexer channels, or
// in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a GSM modem.
//
// Dialer abstracts how the modem connection is created (for example, via a
// serial port or a test double) and is intended to be used during Session
// construction only. Once a Transport is obtained, the Dialer is no longer
// needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It may
	// perform blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport cannot be
	// established.
	Dial(ctx context.Context) (Transport, error)
}

// ReadTimeouter is implemented by transports whose Read returns (0, nil)
// once the timeout passes without data. serial.Port satisfies it. The
// Commander needs it to hand a transport over to another user, such as the
// PPP daemon, without closing it.
type ReadTimeouter interface {
	SetReadTimeout(t time.Duration) error
}

// SerialDialer opens a GSM modem over a serial port using go.bug.st/serial.
type SerialDialer struct {
	PortName string
	// Mode overrides the port settings. When nil, BaudRate (or 115200) with
	// 8N1 is used.
	Mode     *serial.Mode
	BaudRate int
	// Trace, when set, logs every byte crossing the port.
	Trace *log.Logger
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("gsm: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("gsm: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("gsm: open %s: %w", d.PortName, err)
	}
	if d.Trace != nil {
		return tracedPort{trace.New(port, trace.WithLogger(d.Trace)), port}, nil
	}
	return port, nil
}

// tracedPort logs reads and writes through the tracer and controls the port
// underneath it.
type tracedPort struct {
	io.ReadWriter
	port serial.Port
}

func (p tracedPort) Close() error {
	return p.port.Close()
}

func (p tracedPort) SetReadTimeout(t time.Duration) error {
	return p.port.SetReadTimeout(t)
}

// Power switches the modem supply. PowerOn is invoked once per start and
// PowerOff once per stop.
type Power interface {
	PowerOn() error
	PowerOff() error
}

// Link is the network interface carried over the PPP channel.
type Link interface {
	// BringUp activates the link. first is true the first time the link is
	// brought up in the life of the process; later calls re-enable it.
	BringUp(first bool) error
	// SetEnabled toggles the interface without tearing it down.
	SetEnabled(enabled bool) error
	// WaitDown blocks until the link has acknowledged going down.
	WaitDown(ctx context.Context) error
}

// Mux splits the physical transport into logical channels.
type Mux interface {
	// Alloc returns a fresh, unattached channel.
	Alloc() (Transport, error)
	// Attach binds ch to logical address dlci on physical. done is invoked
	// exactly once, from another goroutine, when negotiation finishes.
	Attach(ch, physical Transport, dlci int, done func(connected bool)) error
	Enable(ch Transport) error
	Disable(ch Transport) error
}

type nopPower struct{}

func (nopPower) PowerOn() error  { return nil }
func (nopPower) PowerOff() error { return nil }

type nopLink struct{}

func (nopLink) BringUp(bool) error             { return nil }
func (nopLink) SetEnabled(bool) error          { return nil }
func (nopLink) WaitDown(context.Context) error { return nil }
