package modem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"i4.energy/across/mgsm/at"
)

const (
	defaultTimeout = 8 * time.Second

	// readPoll bounds each Read on transports implementing ReadTimeouter,
	// so a reader notices that its transport was handed over.
	readPoll = 100 * time.Millisecond
)

// Exchange is one AT command together with the handlers for the information
// lines it is expected to produce. Handlers are only consulted while the
// exchange is outstanding.
type Exchange struct {
	Cmd      string
	Handlers []at.Cmd
	Timeout  time.Duration
}

// pending tracks the exchange that is waiting for its terminal response.
type pending struct {
	cmd      string
	handlers []at.Cmd
	done     chan error
}

// reader tracks the goroutine reading one transport. active is guarded by
// Commander.mu; done is closed when the goroutine returns.
type reader struct {
	active bool
	done   chan struct{}
}

// rxLine is one line read from a transport. src identifies the transport it
// was read from so lines from a channel that is no longer current can be
// discarded.
type rxLine struct {
	src  Transport
	text string
	err  error
}

// Commander turns the line-oriented, asynchronous modem channel into a
// sequence of synchronous request/response calls.
//
// A single Loop goroutine consumes every received line and feeds it to the
// handler registry. Send writes one command and blocks the caller until a
// terminal handler (OK, ERROR, +CME ERROR, CONNECT) fires or the exchange
// times out. At most one exchange is outstanding at any time; the transmit
// lock serializes callers.
type Commander struct {
	logger  *slog.Logger
	maxLine int
	reg     *at.Registry

	// tx is the transmit lock: a one-slot semaphore.
	tx chan struct{}

	mu      sync.Mutex
	current Transport
	readers map[Transport]*reader
	pending *pending

	lines   chan rxLine
	quit    chan struct{}
	quitted sync.Once
	running atomic.Bool
}

// NewCommander returns a Commander with the terminal matchers registered.
// maxLine is the longest line accepted; longer lines are dropped.
func NewCommander(logger *slog.Logger, maxLine int) *Commander {
	if logger == nil {
		logger = slog.Default()
	}
	if maxLine <= 0 {
		maxLine = 256
	}
	c := &Commander{
		logger:  logger,
		maxLine: maxLine,
		tx:      make(chan struct{}, 1),
		readers: make(map[Transport]*reader),
		lines:   make(chan rxLine, 16),
		quit:    make(chan struct{}),
	}
	c.reg = at.NewRegistry(
		at.Cmd{Prefix: at.OK, Func: func([]string) { c.finish(nil) }},
		at.Cmd{Prefix: at.Connect, Func: func([]string) { c.finish(nil) }},
		at.Cmd{Prefix: at.ERROR, Func: func([]string) { c.finishError("") }},
		at.Cmd{Prefix: at.CmeError, MinArgs: 1, Func: func(args []string) { c.finishError(args[0]) }},
	)
	return c
}

// Register adds handlers that stay active for every exchange, such as
// unsolicited status reports. It must be called before Loop starts.
func (c *Commander) Register(cmds ...at.Cmd) {
	c.reg.Register(cmds...)
}

// SetTransport directs commands and reading to t. Every other transport is
// released: its reader stops at the end of its current Read and leaves the
// following bytes to whoever opens the channel next. Use WaitReleased to
// wait for that. A nil t releases every transport.
//
// Readers can only be stopped on transports implementing ReadTimeouter;
// others are read until their next byte arrives.
func (c *Commander) SetTransport(t Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = t
	for rt, r := range c.readers {
		r.active = rt == t
	}
	if t == nil {
		return
	}
	if _, ok := c.readers[t]; ok {
		return
	}

	if rt, ok := t.(ReadTimeouter); ok {
		if err := rt.SetReadTimeout(readPoll); err != nil {
			c.logger.Warn("set read timeout", "err", err)
		}
	}
	r := &reader{active: true, done: make(chan struct{})}
	c.readers[t] = r
	go c.read(t, r)
}

// WaitReleased waits until the readers of every transport other than the
// current one have stopped, or ctx is done.
func (c *Commander) WaitReleased(ctx context.Context) error {
	c.mu.Lock()
	var pending []chan struct{}
	for _, r := range c.readers {
		if !r.active {
			pending = append(pending, r.done)
		}
	}
	c.mu.Unlock()

	for _, done := range pending {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Transport returns the transport commands are sent on.
func (c *Commander) Transport() Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Lock acquires the transmit lock, waiting until ctx is done.
func (c *Commander) Lock(ctx context.Context) error {
	select {
	case c.tx <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LockTimeout acquires the transmit lock, giving up after d.
func (c *Commander) LockTimeout(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case c.tx <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Unlock releases the transmit lock.
func (c *Commander) Unlock() {
	select {
	case <-c.tx:
	default:
		c.logger.Warn("transmit lock released while not held")
	}
}

// Send performs one exchange. With lock set, the transmit lock is taken for
// the duration of the call; callers that already hold it pass false.
//
// Send returns nil on OK or CONNECT, a *ProtocolError on ERROR or
// +CME ERROR, and an error wrapping ErrTimeout when no terminal response
// arrives within the exchange timeout.
func (c *Commander) Send(ctx context.Context, ex Exchange, lock bool) error {
	if lock {
		if err := c.Lock(ctx); err != nil {
			return err
		}
		defer c.Unlock()
	}
	return c.send(ctx, ex)
}

// SendSequence performs exs in order under a single lock hold and stops at
// the first failure.
func (c *Commander) SendSequence(ctx context.Context, exs []Exchange, lock bool) error {
	if lock {
		if err := c.Lock(ctx); err != nil {
			return err
		}
		defer c.Unlock()
	}
	for _, ex := range exs {
		if err := c.send(ctx, ex); err != nil {
			return err
		}
	}
	return nil
}

func (c *Commander) send(ctx context.Context, ex Exchange) error {
	timeout := ex.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	p := &pending{
		cmd:      ex.Cmd,
		handlers: ex.Handlers,
		done:     make(chan error, 1),
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", ex.Cmd, ErrExchangeBusy)
	}
	t := c.current
	if t == nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", ex.Cmd, ErrTransportUnavailable)
	}
	c.pending = p
	c.mu.Unlock()

	c.logger.Debug("at tx", "cmd", ex.Cmd)
	if _, err := io.WriteString(t, ex.Cmd+at.EOL); err != nil {
		c.clear(p)
		return fmt.Errorf("write %s: %w: %w", ex.Cmd, ErrTransportUnavailable, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-p.done:
		return err
	case <-timer.C:
		c.clear(p)
		return fmt.Errorf("%s: %w after %v", ex.Cmd, ErrTimeout, timeout)
	case <-ctx.Done():
		c.clear(p)
		return ctx.Err()
	}
}

// clear drops p if it is still outstanding. Once clear returns, no handler
// of p runs any more.
func (c *Commander) clear(p *pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == p {
		c.pending = nil
	}
}

// finish completes the outstanding exchange. It runs from a handler, with
// c.mu held by dispatch.
func (c *Commander) finish(err error) {
	p := c.pending
	if p == nil {
		return
	}
	c.pending = nil
	p.done <- err
}

func (c *Commander) finishError(extended string) {
	if c.pending == nil {
		return
	}
	code := -1
	if extended != "" {
		code = at.ParseInt(extended, 10, -1)
	}
	c.finish(&ProtocolError{Cmd: c.pending.cmd, Code: code, Extended: extended})
}

// Loop dispatches received lines until ctx is done. It must run for Send to
// ever complete. Only one Loop may run at a time.
func (c *Commander) Loop(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer c.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.pending != nil {
				c.finish(ctx.Err())
			}
			c.mu.Unlock()
			return ctx.Err()

		case l := <-c.lines:
			c.dispatch(l)
		}
	}
}

func (c *Commander) dispatch(l rxLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l.src != c.current {
		return
	}
	if l.err != nil {
		c.logger.Warn("read failed", "err", l.err)
		if c.pending != nil {
			c.finish(fmt.Errorf("%s: %w: %w", c.pending.cmd, ErrTransportUnavailable, l.err))
		}
		return
	}
	if l.text == "" {
		return
	}

	var extra []at.Cmd
	if c.pending != nil {
		if strings.TrimSpace(l.text) == c.pending.cmd {
			return // echo
		}
		extra = c.pending.handlers
	}

	c.logger.Debug("at rx", "line", l.text)
	if err := c.reg.Dispatch(l.text, extra); err != nil {
		c.logger.Debug("line dropped", "line", l.text, "err", err)
	}
}

// read splits the bytes of t into lines for as long as r stays active. It
// ends on the first read error, which is forwarded to Loop.
func (c *Commander) read(t Transport, r *reader) {
	defer close(r.done)

	split := limitLines(c.maxLine, func() {
		c.logger.Debug("line dropped", "err", ErrLineTooLong)
	})
	buf := make([]byte, c.maxLine+2)
	var data []byte

	for {
		if !c.owns(t, r) {
			return
		}
		n, err := t.Read(buf)
		if !c.owns(t, r) {
			return
		}

		data = append(data, buf[:n]...)
		var ok bool
		if data, ok = c.scan(t, split, data, err != nil); !ok {
			return
		}

		if err != nil {
			c.mu.Lock()
			if c.readers[t] == r {
				delete(c.readers, t)
			}
			c.mu.Unlock()
			c.deliver(rxLine{src: t, err: err})
			return
		}
	}
}

// scan delivers every complete line in data and returns the remainder.
func (c *Commander) scan(t Transport, split bufio.SplitFunc, data []byte, atEOF bool) ([]byte, bool) {
	for len(data) > 0 {
		advance, token, err := split(data, atEOF)
		if err != nil || advance == 0 {
			break
		}
		data = data[advance:]
		if token == nil {
			continue
		}
		if !c.deliver(rxLine{src: t, text: string(token)}) {
			return data, false
		}
	}
	return data, true
}

// owns reports whether r may keep reading t. A released reader removes
// itself so the next SetTransport(t) starts a fresh one.
func (c *Commander) owns(t Transport, r *reader) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.active {
		return true
	}
	if c.readers[t] == r {
		delete(c.readers, t)
	}
	return false
}

func (c *Commander) deliver(l rxLine) bool {
	select {
	case c.lines <- l:
		return true
	case <-c.quit:
		return false
	}
}

// Close stops all readers from delivering further lines. Transports are
// owned by the caller and are not closed.
func (c *Commander) Close() {
	c.quitted.Do(func() { close(c.quit) })
}

// limitLines wraps at.Splitter so that lines longer than max are skipped
// instead of aborting the scan.
func limitLines(max int, dropped func()) bufio.SplitFunc {
	discarding := false
	return func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := at.Splitter(data, atEOF)
		if err != nil {
			return advance, token, err
		}
		if advance > 0 {
			if discarding || len(token) > max {
				discarding = false
				dropped()
				return advance, nil, nil
			}
			return advance, token, nil
		}
		if len(data) >= max {
			discarding = true
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
}
