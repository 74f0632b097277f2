package gsmtty

import (
	"bytes"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.bug.st/serial"

	"i4.energy/across/mgsm/modem"
)

type fakePort struct {
	bytes.Buffer
	closed      bool
	readTimeout time.Duration
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func newTestMux(t *testing.T) (*Mux, string) {
	t.Helper()
	dir := t.TempDir()
	m := New(Config{Dir: dir, NodeTimeout: 100 * time.Millisecond, Logger: slog.New(slog.DiscardHandler)})
	m.poll = 5 * time.Millisecond
	return m, dir
}

func waitDone(t *testing.T, result <-chan bool) bool {
	t.Helper()
	select {
	case ok := <-result:
		return ok
	case <-time.After(time.Second):
		t.Fatal("attach never completed")
	}
	return false
}

func TestMux_Path(t *testing.T) {
	m := New(Config{})
	if got := m.Path(2); got != "/dev/gsmtty2" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestMux_AttachControl(t *testing.T) {
	m, _ := newTestMux(t)
	ch, err := m.Alloc()
	if err != nil {
		t.Fatal(err)
	}

	result := make(chan bool, 1)
	if err := m.Attach(ch, nil, modem.DLCIControl, func(ok bool) { result <- ok }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !waitDone(t, result) {
		t.Error("control channel should attach without a device node")
	}
}

func TestMux_AttachOpensNode(t *testing.T) {
	m, dir := newTestMux(t)
	port := &fakePort{}
	var opened string
	m.open = func(path string, mode *serial.Mode) (io.ReadWriteCloser, error) {
		opened = path
		return port, nil
	}
	if err := os.WriteFile(filepath.Join(dir, "gsmtty1"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ch, _ := m.Alloc()
	result := make(chan bool, 1)
	if err := m.Attach(ch, nil, modem.DLCIPPP, func(ok bool) { result <- ok }); err != nil {
		t.Fatal(err)
	}
	if !waitDone(t, result) {
		t.Fatal("expected attach to succeed")
	}
	if opened != filepath.Join(dir, "gsmtty1") {
		t.Errorf("opened %q", opened)
	}
	if got := ch.(*Channel).DLCI(); got != modem.DLCIPPP {
		t.Errorf("expected dlci %d, got %d", modem.DLCIPPP, got)
	}

	if _, err := ch.Write([]byte("AT\r")); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if port.String() != "AT\r" {
		t.Errorf("unexpected port content %q", port.String())
	}

	if err := m.Disable(ch); err != nil {
		t.Fatal(err)
	}
	if _, err := ch.Write([]byte("AT\r")); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("expected write to fail while disabled, got: %v", err)
	}
	if err := m.Enable(ch); err != nil {
		t.Fatal(err)
	}
	if _, err := ch.Write([]byte("AT\r")); err != nil {
		t.Errorf("unexpected write error after enable: %v", err)
	}

	if err := ch.Close(); err != nil {
		t.Fatal(err)
	}
	if !port.closed {
		t.Error("port not closed")
	}
}

func TestMux_ReadTimeout(t *testing.T) {
	m, dir := newTestMux(t)
	port := &fakePort{}
	m.open = func(string, *serial.Mode) (io.ReadWriteCloser, error) { return port, nil }
	m.cfg.Trace = log.New(io.Discard, "", 0)
	if err := os.WriteFile(filepath.Join(dir, "gsmtty1"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	ch, _ := m.Alloc()
	// Set before attach, applied once the node is open.
	if err := ch.(*Channel).SetReadTimeout(100 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	result := make(chan bool, 1)
	if err := m.Attach(ch, nil, modem.DLCIPPP, func(ok bool) { result <- ok }); err != nil {
		t.Fatal(err)
	}
	if !waitDone(t, result) {
		t.Fatal("expected attach to succeed")
	}
	if port.readTimeout != 100*time.Millisecond {
		t.Errorf("expected read timeout on attach, got %s", port.readTimeout)
	}

	if err := ch.(*Channel).SetReadTimeout(time.Second); err != nil {
		t.Fatal(err)
	}
	if port.readTimeout != time.Second {
		t.Errorf("expected read timeout forwarded through trace, got %s", port.readTimeout)
	}
	var _ modem.ReadTimeouter = &Channel{}
}

func TestMux_AttachMissingNode(t *testing.T) {
	m, _ := newTestMux(t)
	ch, _ := m.Alloc()

	result := make(chan bool, 1)
	if err := m.Attach(ch, nil, modem.DLCIAT, func(ok bool) { result <- ok }); err != nil {
		t.Fatal(err)
	}
	if waitDone(t, result) {
		t.Error("expected attach to fail without a device node")
	}
	if _, err := ch.Read(make([]byte, 8)); !errors.Is(err, ErrNotAttached) {
		t.Errorf("expected ErrNotAttached, got: %v", err)
	}
}

func TestMux_ForeignChannel(t *testing.T) {
	m, _ := newTestMux(t)
	other := modem.NewTestTransport()

	if err := m.Attach(other, nil, 1, func(bool) {}); !errors.Is(err, ErrForeignChannel) {
		t.Errorf("expected ErrForeignChannel, got: %v", err)
	}
	if err := m.Enable(other); !errors.Is(err, ErrForeignChannel) {
		t.Errorf("expected ErrForeignChannel, got: %v", err)
	}

	stray := &Channel{}
	if err := m.Disable(stray); !errors.Is(err, ErrForeignChannel) {
		t.Errorf("expected ErrForeignChannel, got: %v", err)
	}
}

func TestChannel_ImplementsTransport(t *testing.T) {
	var _ modem.Transport = &Channel{}
	var _ modem.Mux = New(Config{})
}
