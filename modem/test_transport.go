package modem

import (
	"io"
	"strings"
	"sync"
	"time"
)

// TestTransport is a test helper that simulates a modem behind a blocking
// transport using channels. Reads block until data is available, like a real
// serial port, because the Commander reader continuously reads from it.
//
// Replies are scripted per command with Respond. A command without a script
// gets no reply at all, which makes the exchange time out.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	closed   bool
	echo     bool
	written  []string
	replies  map[string][][]string
	unread   []byte
	timeout  time.Duration
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 64),
		replies:  make(map[string][][]string),
	}
}

// Echo makes the fake modem repeat every command before its reply.
func (t *TestTransport) Echo(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.echo = on
}

// Respond queues a reply for cmd. Replies are used in order; the last one
// keeps answering once the others are used up. Respond with no lines
// queues a silent reply.
func (t *TestTransport) Respond(cmd string, lines ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[cmd] = append(t.replies[cmd], lines)
}

// Commands returns every command written so far, without terminators.
func (t *TestTransport) Commands() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.written...)
}

// Count returns how often cmd was written.
func (t *TestTransport) Count(cmd string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.written {
		if c == cmd {
			n++
		}
	}
	return n
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}

	cmd := strings.TrimRight(string(p), "\r\n")
	t.written = append(t.written, cmd)

	var out strings.Builder
	if t.echo {
		out.WriteString(cmd + "\r\n")
	}
	if queue := t.replies[cmd]; len(queue) > 0 {
		for _, l := range queue[0] {
			out.WriteString(l + "\r\n")
		}
		if len(queue) > 1 {
			t.replies[cmd] = queue[1:]
		}
	}
	if out.Len() > 0 {
		t.readChan <- []byte(out.String())
	}
	return len(p), nil
}

// SetReadTimeout makes Read return (0, nil) after d without data, like a
// serial port. Zero blocks indefinitely.
func (t *TestTransport) SetReadTimeout(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = d
	return nil
}

// Queued returns the number of SendData chunks and replies nobody has
// started reading yet.
func (t *TestTransport) Queued() int {
	return len(t.readChan)
}

// Read is meant for a single reader goroutine.
func (t *TestTransport) Read(p []byte) (n int, err error) {
	if len(t.unread) == 0 {
		t.mu.Lock()
		timeout := t.timeout
		t.mu.Unlock()

		var expired <-chan time.Time
		if timeout > 0 {
			timer := time.NewTimer(timeout)
			defer timer.Stop()
			expired = timer.C
		}
		select {
		case data, ok := <-t.readChan:
			if !ok {
				return 0, io.EOF
			}
			t.unread = data
		case <-expired:
			return 0, nil
		}
	}
	n = copy(p, t.unread)
	t.unread = t.unread[n:]
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the modem.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}
