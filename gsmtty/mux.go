// Package gsmtty provides the modem multiplexer on top of the Linux n_gsm
// line discipline.
//
// The kernel exposes DLCI N of a multiplexed serial line as /dev/gsmttyN.
// The line discipline itself is attached outside this package (for example
// with `ldattach GSM0710`), after the modem accepted AT+CMUX. DLCI 0 is the
// control channel owned by the kernel and needs no device node.
package gsmtty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/warthog618/modem/trace"
	"go.bug.st/serial"

	"i4.energy/across/mgsm/modem"
)

var (
	// ErrNotAttached is returned by channel I/O before the channel's device
	// node has been opened.
	ErrNotAttached = errors.New("channel not attached")

	// ErrForeignChannel is returned when a transport not allocated by this
	// Mux is passed to it.
	ErrForeignChannel = errors.New("channel not allocated by this mux")
)

type openFunc func(path string, mode *serial.Mode) (io.ReadWriteCloser, error)

func openSerial(path string, mode *serial.Mode) (io.ReadWriteCloser, error) {
	return serial.Open(path, mode)
}

// Config configures a Mux.
type Config struct {
	// Dir holds the gsmtty nodes. Defaults to /dev.
	Dir string
	// NodeTimeout bounds the wait for a device node to appear after the
	// modem switched to CMUX. Defaults to 5s.
	NodeTimeout time.Duration
	// Trace, if set, logs the traffic of every opened channel.
	Trace  *log.Logger
	Logger *slog.Logger
}

// Mux implements modem.Mux over /dev/gsmttyN nodes.
type Mux struct {
	cfg    Config
	logger *slog.Logger
	open   openFunc
	poll   time.Duration

	mu       sync.Mutex
	channels map[*Channel]bool
}

// New returns a Mux for the given configuration.
func New(cfg Config) *Mux {
	if cfg.Dir == "" {
		cfg.Dir = "/dev"
	}
	if cfg.NodeTimeout == 0 {
		cfg.NodeTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Mux{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "gsmtty"),
		open:     openSerial,
		poll:     50 * time.Millisecond,
		channels: make(map[*Channel]bool),
	}
}

// Path returns the device node of dlci.
func (m *Mux) Path(dlci int) string {
	return filepath.Join(m.cfg.Dir, fmt.Sprintf("gsmtty%d", dlci))
}

// Alloc returns a new, unattached channel.
func (m *Mux) Alloc() (modem.Transport, error) {
	ch := &Channel{dlci: -1, enabled: true}
	m.mu.Lock()
	m.channels[ch] = true
	m.mu.Unlock()
	return ch, nil
}

// Attach binds ch to dlci and opens its device node in the background.
// done is always called from another goroutine, with false if the node
// did not appear or could not be opened.
func (m *Mux) Attach(t, physical modem.Transport, dlci int, done func(connected bool)) error {
	ch, err := m.lookup(t)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	ch.dlci = dlci
	ch.mu.Unlock()

	if dlci == 0 {
		go done(true)
		return nil
	}

	go func() {
		err := m.attach(ch, dlci)
		if err != nil {
			m.logger.Warn("attach failed", "dlci", dlci, "err", err)
		}
		done(err == nil)
	}()
	return nil
}

func (m *Mux) attach(ch *Channel, dlci int) error {
	path := m.Path(dlci)
	if err := m.waitNode(path); err != nil {
		return err
	}

	port, err := m.open(path, &serial.Mode{BaudRate: 115200})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if m.cfg.Trace != nil {
		port = tracedPort{trace.New(port, trace.WithLogger(m.cfg.Trace)), port}
	}

	ch.mu.Lock()
	old := ch.port
	ch.port = port
	ch.enabled = true
	timeout := ch.readTimeout
	ch.mu.Unlock()
	if timeout > 0 {
		if err := setReadTimeout(port, timeout); err != nil {
			m.logger.Warn("set read timeout", "dlci", dlci, "err", err)
		}
	}
	if old != nil {
		old.Close()
	}
	m.logger.Debug("channel open", "dlci", dlci, "path", path)
	return nil
}

func (m *Mux) waitNode(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.NodeTimeout)
	defer cancel()

	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s did not appear: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Enable resumes traffic on a channel paused by Disable.
func (m *Mux) Enable(t modem.Transport) error {
	ch, err := m.lookup(t)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.enabled = true
	return nil
}

// Disable pauses a channel. Writes fail until it is enabled again; the
// device node stays open.
func (m *Mux) Disable(t modem.Transport) error {
	ch, err := m.lookup(t)
	if err != nil {
		return err
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.enabled = false
	return nil
}

func (m *Mux) lookup(t modem.Transport) (*Channel, error) {
	ch, ok := t.(*Channel)
	if !ok {
		return nil, ErrForeignChannel
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.channels[ch] {
		return nil, ErrForeignChannel
	}
	return ch, nil
}

// Channel is one multiplexed logical channel.
type Channel struct {
	mu          sync.Mutex
	dlci        int
	port        io.ReadWriteCloser
	enabled     bool
	readTimeout time.Duration
}

// SetReadTimeout bounds every Read on the channel, now and after a later
// attach. Read returns (0, nil) when it expires.
func (c *Channel) SetReadTimeout(t time.Duration) error {
	c.mu.Lock()
	c.readTimeout = t
	port := c.port
	c.mu.Unlock()
	if port == nil {
		return nil
	}
	return setReadTimeout(port, t)
}

func setReadTimeout(port io.ReadWriteCloser, t time.Duration) error {
	rt, ok := port.(modem.ReadTimeouter)
	if !ok {
		return nil
	}
	return rt.SetReadTimeout(t)
}

// DLCI returns the channel's address, or -1 before Attach.
func (c *Channel) DLCI() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dlci
}

func (c *Channel) current() (io.ReadWriteCloser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port, c.enabled
}

func (c *Channel) Read(p []byte) (int, error) {
	port, _ := c.current()
	if port == nil {
		return 0, ErrNotAttached
	}
	return port.Read(p)
}

func (c *Channel) Write(p []byte) (int, error) {
	port, enabled := c.current()
	if port == nil {
		return 0, ErrNotAttached
	}
	if !enabled {
		return 0, fmt.Errorf("dlci %d disabled: %w", c.DLCI(), io.ErrClosedPipe)
	}
	return port.Write(p)
}

func (c *Channel) Close() error {
	c.mu.Lock()
	port := c.port
	c.port = nil
	c.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.Close()
}

// tracedPort logs the traffic of port and controls port underneath.
type tracedPort struct {
	io.ReadWriter
	port io.ReadWriteCloser
}

func (p tracedPort) Close() error {
	return p.port.Close()
}

func (p tracedPort) SetReadTimeout(t time.Duration) error {
	return setReadTimeout(p.port, t)
}
