package modem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"i4.energy/across/mgsm/at"
)

// Session drives one cellular modem from power-off to an established packet
// data link.
//
// Bring-up runs as a sequence of discrete steps on a single work queue. Each
// step holds the session lock for its whole duration, issues its commands
// through the Commander and feeds the outcome to the transition table, which
// decides whether to continue, retry after a delay, wait for a multiplexer
// callback or stop. Once the link is configured on a multiplexed modem, a
// poller refreshes signal and cell information under the same lock.
//
// Usage:
//
//	s, err := modem.New(ctx, config)
//	if err != nil { return err }
//
//	go s.Loop(ctx)
//
//	if err := s.Start(); err != nil { return err }
//	...
//	s.Stop(ctx)
type Session struct {
	cfg      Config
	logger   *slog.Logger
	physical Transport
	cmd      *Commander
	info     *infoStore

	q         *workQueue
	configure *delayedWork
	poll      *delayedWork

	// mu is the foreground exclusion. Every bring-up step, the poller and
	// the lifecycle calls hold it while touching the fields below.
	mu          sync.Mutex
	state       State
	retries     retryCounter
	infoQueried bool
	txHeld      bool
	linkUp      bool
	linkStarted bool
	channels    [3]Transport
	attaching   bool
	attachDone  chan bool
	closed      bool

	// statMu guards the copies read by Status, which must not wait for a
	// step to finish.
	statMu   sync.Mutex
	statView State
	lastErr  error

	running atomic.Bool
	loopCtx context.Context
	cancel  context.CancelFunc
}

// Status is a point-in-time view of a Session for status displays.
type Status struct {
	State  State  `json:"state"`
	Muxed  bool   `json:"muxed"`
	LinkUp bool   `json:"linkUp"`
	Error  string `json:"error,omitempty"`
	Info
}

// New creates a Session with the given configuration. It applies defaults,
// validates the configuration and opens the physical transport; the modem
// is not touched until Start.
//
// Returns an error if the configuration is invalid or the transport cannot
// be established.
func New(ctx context.Context, config Config) (*Session, error) {
	if config.Dialer == nil {
		return nil, ErrNoDialer
	}
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial modem: %w", err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	s := &Session{
		cfg:        config,
		logger:     config.Logger.With("component", "mgsm"),
		physical:   transport,
		info:       newInfoStore(),
		q:          newWorkQueue(),
		attachDone: make(chan bool, 1),
	}
	s.cmd = NewCommander(s.logger, config.MaxLineLen)
	s.cmd.Register(s.registrationHandler())
	s.configure = newDelayedWork(s.q, s.runConfigure)
	s.poll = newDelayedWork(s.q, s.runPoll)

	// Prepare context for Loop (but don't start it yet)
	s.loopCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	return s, nil
}

// Loop runs the receive loop and the work queue until ctx is done or the
// Session is closed. It must be running for Start to make progress.
func (s *Session) Loop(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.loopCtx, cancel)
	defer stop()

	go s.q.run(ctx)
	return s.cmd.Loop(ctx)
}

// Start powers the modem and begins bring-up. It returns immediately;
// progress is reported through Status.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrAlreadyClosed
	}
	if s.state != StateStopped {
		return fmt.Errorf("%w (%s)", ErrAlreadyStarted, s.state)
	}

	s.retries = 0
	s.attaching = false
	s.drainAttach()
	s.setErr(nil)
	s.cmd.SetTransport(s.physical)
	s.schedule(s.advance(evStart))
	return nil
}

// Stop cancels pending bring-up work, takes the link down, powers the modem
// off and returns to StateStopped. ctx bounds the wait for the link to
// acknowledge going down, together with Config.LinkDownTimeout.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	stopped := s.state == StateStopped
	s.mu.Unlock()
	if stopped {
		return ErrAlreadyStopped
	}

	s.configure.CancelSync()
	s.poll.CancelSync()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return ErrAlreadyStopped
	}

	if s.linkUp {
		if err := s.cfg.Link.SetEnabled(false); err != nil {
			s.logger.Warn("disable link", "err", err)
		}
		wctx, cancel := context.WithTimeout(ctx, s.cfg.LinkDownTimeout)
		if err := s.cfg.Link.WaitDown(wctx); err != nil {
			s.logger.Warn("link down not acknowledged", "err", err)
		}
		cancel()
		s.linkUp = false
	}

	if s.cfg.MuxEnabled {
		if ppp := s.channels[DLCIPPP]; ppp != nil {
			if err := s.cfg.Mux.Disable(ppp); err != nil {
				s.logger.Warn("disable ppp channel", "err", err)
			}
		}
		if !s.txHeld {
			if s.cmd.LockTimeout(s.cfg.LockCeiling) {
				s.txHeld = true
			} else {
				s.logger.Warn("failed locking modem commands")
			}
		}
	}

	if err := s.cfg.Power.PowerOff(); err != nil {
		s.logger.Warn("power off", "err", err)
	}

	s.advance(evStop)
	s.info.update(func(i *Info) { i.Registration = RegistrationInit })
	s.attaching = false
	s.drainAttach()
	s.releaseTx()
	return nil
}

// Close stops the loop and releases the transports. A running bring-up is
// abandoned without powering the modem off; call Stop first for that.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrAlreadyClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.configure.CancelSync()
	s.poll.CancelSync()
	s.cancel()
	s.q.close()
	s.cmd.Close()

	var errs []error
	for _, ch := range s.channels {
		if ch != nil {
			errs = append(errs, ch.Close())
		}
	}
	errs = append(errs, s.physical.Close())
	return errors.Join(errs...)
}

// State returns the current bring-up phase.
func (s *Session) State() State {
	s.statMu.Lock()
	defer s.statMu.Unlock()
	return s.statView
}

// Info returns a snapshot of the modem identity and radio state.
func (s *Session) Info() Info {
	return s.info.snapshot()
}

// Status returns the phase, the last terminal error and the modem info.
func (s *Session) Status() Status {
	s.statMu.Lock()
	st := Status{State: s.statView, Muxed: s.cfg.MuxEnabled}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	s.statMu.Unlock()

	st.LinkUp = st.State == StateLinkConfigured
	st.Info = s.info.snapshot()
	return st
}

// Err returns the error that moved the session to StateError, if any.
func (s *Session) Err() error {
	s.statMu.Lock()
	defer s.statMu.Unlock()
	return s.lastErr
}

// runConfigure is the bring-up task. It steps through states until the
// table asks it to pause.
func (s *Session) runConfigure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		ev, ok := s.step(s.loopCtx)
		if !ok {
			return
		}
		eff := s.advance(ev)
		if eff.act != actContinue {
			s.schedule(eff)
			return
		}
	}
}

func (s *Session) step(ctx context.Context) (event, bool) {
	switch s.state {
	case StateStarting:
		return s.powerOn(), true
	case StateWaitAT:
		return s.waitAT(ctx), true
	case StateATReady:
		return s.atReady(ctx), true
	case StateMuxControl:
		return s.attachChannel(DLCIControl), true
	case StateMuxPPP:
		return s.attachChannel(DLCIPPP), true
	case StateMuxAT:
		return s.attachChannel(DLCIAT), true
	case StateMuxDone:
		return s.muxDone(), true
	case StateSetup:
		return s.setup(ctx), true
	case StateOperatorConfigured:
		return s.setupCommands(ctx), true
	case StateRegistering:
		return s.register(ctx), true
	case StateAttaching:
		return s.attachPacket(ctx), true
	case StateAttached:
		return s.connect(ctx), true
	case StateLinkConfigured:
		if s.linkUp {
			return 0, false
		}
		return s.linkConfigured(ctx), true
	}
	// Stopped and Error only leave through Start and Stop.
	return 0, false
}

// advance applies ev to the current state.
func (s *Session) advance(ev event) effect {
	from := s.state
	to, eff := transition(from, ev)
	if to != from {
		s.logger.Info("state", "from", from.String(), "to", to.String())
	}
	if to == StateError && s.Err() == nil {
		s.setErr(fmt.Errorf("no transition from %s on event %d", from, ev))
	}

	s.state = to
	s.statMu.Lock()
	s.statView = to
	s.statMu.Unlock()
	return eff
}

func (s *Session) schedule(eff effect) {
	if eff.act != actReschedule {
		return
	}
	var d time.Duration
	switch eff.delay {
	case delayRetry:
		d = s.cfg.RetryDelay
	case delayAttach:
		d = s.cfg.AttachDelay
	case delayRegister:
		d = s.cfg.RegisterDelay
	case delayRSSI:
		d = s.cfg.RSSIDelay
	}
	s.configure.Reschedule(d)
}

func (s *Session) setErr(err error) {
	if err != nil {
		s.logger.Error("bring-up failed", "err", err)
	}
	s.statMu.Lock()
	s.lastErr = err
	s.statMu.Unlock()
}

// send issues one command. While the transmit lock is held across steps,
// commands go out without taking it again.
func (s *Session) send(ctx context.Context, cmd string, timeout time.Duration, handlers ...at.Cmd) error {
	return s.cmd.Send(ctx, Exchange{Cmd: cmd, Handlers: handlers, Timeout: timeout}, !s.txHeld)
}

func (s *Session) sendAll(ctx context.Context, exs []Exchange) error {
	return s.cmd.SendSequence(ctx, exs, !s.txHeld)
}

func (s *Session) releaseTx() {
	if s.txHeld {
		s.txHeld = false
		s.cmd.Unlock()
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (s *Session) powerOn() event {
	s.logger.Debug("starting modem configuration")
	if err := s.cfg.Power.PowerOn(); err != nil {
		s.logger.Error("power on", "err", err)
	}
	return evPoweredOn
}

// waitAT probes the modem until it answers. Each failed probe is bounded
// by the AT timeout, so retrying without delay waits out the boot time.
func (s *Session) waitAT(ctx context.Context) event {
	if err := s.send(ctx, at.CmdAt, s.cfg.ATTimeout); err != nil {
		s.logger.Debug("modem not ready", "err", err)
		return evProbeFailed
	}
	return evProbeOK
}

// setup is the first half of finalize: probe over the mux, optional factory
// reset and operator selection. Any failure restarts it from the top.
func (s *Session) setup(ctx context.Context) event {
	if s.cfg.MuxEnabled {
		if err := s.send(ctx, at.CmdAt, s.cfg.ATTimeout); err != nil {
			s.logger.Warn("probe over mux failed, retrying", "err", err)
			return evSetupFailed
		}
	}

	if s.cfg.FactoryReset {
		s.logger.Info("factory reset")
		_ = s.send(ctx, at.CmdFactoryReset, s.cfg.ATTimeout)
		s.sleep(ctx, s.cfg.FactoryResetDelay)
	}

	if err := s.selectOperator(ctx); err != nil {
		s.logger.Warn("operator selection failed, retrying", "err", err)
		return evSetupFailed
	}
	return evOperatorSet
}

func (s *Session) selectOperator(ctx context.Context) error {
	if err := s.send(ctx, at.CmdFullFunction, s.cfg.ATTimeout); err != nil {
		s.logger.Warn("full functionality", "err", err)
	}

	if op := s.cfg.ManualOperator; op != "" {
		return s.send(ctx, fmt.Sprintf(at.CmdOperatorFmt, op), s.cfg.ATTimeout)
	}

	s.info.update(func(i *Info) { i.AutomaticOperator = false })
	if err := s.send(ctx, at.CmdOperatorQuery, s.cfg.SetupTimeout, s.operatorHandler()); err != nil {
		return err
	}
	if s.info.snapshot().AutomaticOperator {
		return nil
	}
	return s.send(ctx, at.CmdOperatorAuto, s.cfg.ATTimeout)
}

// setupCommands is the second half of finalize: the fixed command list and
// the identity query.
func (s *Session) setupCommands(ctx context.Context) event {
	t := s.cfg.SetupTimeout
	exs := []Exchange{
		{Cmd: at.CmdFullFunction, Timeout: t},
		{Cmd: at.CmdNumericError, Timeout: t},
		{Cmd: at.CmdRegNotifyOff, Timeout: t},
		{Cmd: at.CmdIMSI, Timeout: t, Handlers: []at.Cmd{
			s.textHandler("imsi", func(i *Info, v string) { i.IMSI = v }),
		}},
		{Cmd: fmt.Sprintf(at.CmdPDPContextFmt, s.cfg.APN), Timeout: t},
		{Cmd: at.CmdAttach, Timeout: t},
	}
	if err := s.sendAll(ctx, exs); err != nil {
		s.logger.Warn("setup commands failed, retrying", "err", err)
		return evSetupFailed
	}
	if err := s.queryIdentity(ctx); err != nil {
		s.logger.Warn("unable to query modem information, retrying", "err", err)
		return evSetupFailed
	}
	return evSetupDone
}

// queryIdentity reads manufacturer, model, revision and IMEI, and the IMSI
// when SIM numbers are enabled. It only succeeds once per session.
func (s *Session) queryIdentity(ctx context.Context) error {
	if s.infoQueried {
		return nil
	}

	t := s.cfg.SetupTimeout
	exs := []Exchange{
		{Cmd: at.CmdManufacturer, Timeout: t, Handlers: []at.Cmd{
			s.textHandler("manufacturer", func(i *Info, v string) { i.Manufacturer = v }),
		}},
		{Cmd: at.CmdModel, Timeout: t, Handlers: []at.Cmd{
			s.textHandler("model", func(i *Info, v string) { i.Model = v }),
		}},
		{Cmd: at.CmdRevision, Timeout: t, Handlers: []at.Cmd{
			s.textHandler("revision", func(i *Info, v string) { i.Revision = v }),
		}},
		{Cmd: at.CmdIMEI, Timeout: t, Handlers: []at.Cmd{
			s.textHandler("imei", func(i *Info, v string) { i.IMEI = v }),
		}},
	}
	if s.cfg.QuerySIMNumbers {
		exs = append(exs, Exchange{Cmd: at.CmdIMSI, Timeout: t, Handlers: []at.Cmd{
			s.textHandler("imsi", func(i *Info, v string) { i.IMSI = v }),
		}})
	}

	if err := s.sendAll(ctx, exs); err != nil {
		return err
	}
	s.infoQueried = true
	return nil
}

// register queries the registration status. Unless strict registration is
// configured, any outcome moves on to the attach check.
func (s *Session) register(ctx context.Context) event {
	err := s.send(ctx, at.CmdRegQuery, s.cfg.SetupTimeout)
	reg := s.info.snapshot().Registration

	if !s.cfg.StrictRegistration {
		if err != nil {
			s.logger.Warn("registration query failed", "err", err)
		}
		s.retries = 0
		return evRegistered
	}

	if err == nil && reg.Registered() {
		s.retries = 0
		return evRegistered
	}
	if s.retries.fail(int(s.cfg.RegisterTimeout / s.cfg.RegisterDelay)) {
		s.logger.Debug("not registered, retrying", "registration", reg.String(), "left", int(s.retries))
		return evRegWaiting
	}
	s.logger.Warn("registration timed out, restarting setup", "registration", reg.String())
	return evRegExhausted
}

// attachPacket waits for packet service attachment.
func (s *Session) attachPacket(ctx context.Context) event {
	if err := s.send(ctx, at.CmdAttachQuery, s.cfg.SetupTimeout, s.attachHandler()); err != nil {
		if s.retries.fail(int(s.cfg.AttachTimeout / s.cfg.AttachDelay)) {
			s.logger.Debug("not attached, retrying", "left", int(s.retries), "err", err)
			return evAttachRetry
		}
		s.logger.Warn("attach timed out, restarting setup", "err", err)
		return evAttachExhausted
	}

	// The counter now bounds RSSI validation.
	s.retries = retryCounter(s.cfg.RSSIRetries)
	return evAttachOK
}

// connect reads the packet data address, validates the signal when not
// multiplexed, and dials the data call.
func (s *Session) connect(ctx context.Context) event {
	if err := s.send(ctx, at.CmdAddress, s.cfg.SetupTimeout, s.addressHandler()); err != nil {
		s.logger.Warn("unable to retrieve packet data address", "err", err)
	}

	if !s.cfg.MuxEnabled {
		s.queryRSSI(ctx)
		if rssi := s.info.snapshot().RSSI; !rssiAcceptable(rssi, s.cfg.RSSICeiling) {
			if s.retries > 0 {
				s.retries--
				s.logger.Debug("signal not valid, retrying", "rssi", rssi, "left", int(s.retries))
				return evRSSILow
			}
			s.logger.Warn("signal still not valid, connecting anyway", "rssi", rssi)
		}
		if s.cfg.CellInfo {
			s.queryCellInfo(ctx)
		}
	}

	t := s.cfg.SetupTimeout
	exs := []Exchange{
		{Cmd: at.CmdAddress, Timeout: t, Handlers: []at.Cmd{s.addressHandler()}},
		{Cmd: at.CmdDialPPP, Timeout: t},
	}
	if err := s.sendAll(ctx, exs); err != nil {
		s.logger.Warn("connect commands failed, retrying", "err", err)
		return evConnectFailed
	}
	s.logger.Info("data call connected", "rssi", s.info.snapshot().RSSI)
	return evConnected
}

// linkConfigured hands the data channel over to the link and raises it.
// When multiplexed, AT traffic moves to its own channel and the poller is
// armed; otherwise no command is sent until the next Start.
func (s *Session) linkConfigured(ctx context.Context) event {
	if s.cfg.MuxEnabled {
		s.cmd.SetTransport(s.channels[DLCIAT])
	} else {
		s.cmd.SetTransport(nil)
	}
	rctx, cancel := context.WithTimeout(ctx, s.cfg.ATTimeout)
	if err := s.cmd.WaitReleased(rctx); err != nil {
		s.logger.Warn("data channel still being read", "err", err)
	}
	cancel()

	s.linkUp = true
	first := !s.linkStarted
	s.linkStarted = true
	if err := s.cfg.Link.BringUp(first); err != nil {
		s.logger.Error("bring link up", "first", first, "err", err)
	}

	if !s.cfg.MuxEnabled {
		return evLinkUp
	}

	err := s.send(ctx, at.CmdAt, s.cfg.ATTimeout)
	s.releaseTx()
	if err != nil {
		s.setErr(fmt.Errorf("at channel: %w: %w", ErrTerminal, err))
		return evLinkFailed
	}

	s.logger.Info("at channel connected", "dlci", DLCIAT)
	s.poll.Reschedule(s.cfg.PollPeriod)
	return evLinkUp
}

// queryRSSI reads the signal strength. A missing answer is not an error.
func (s *Session) queryRSSI(ctx context.Context) {
	ex := s.signalExchange()
	if err := s.cmd.Send(ctx, ex, !s.txHeld); err != nil {
		s.logger.Debug("no answer to signal readout, ignoring", "err", err)
	}
}

func (s *Session) queryCellInfo(ctx context.Context) {
	t := s.cfg.SetupTimeout
	exs := []Exchange{
		{Cmd: at.CmdRegNotifyLoc, Timeout: t},
		{Cmd: at.CmdRegQuery, Timeout: t, Handlers: []at.Cmd{s.cellHandler()}},
		{Cmd: at.CmdOperatorQuery, Timeout: t, Handlers: []at.Cmd{s.operatorHandler()}},
	}
	if err := s.sendAll(ctx, exs); err != nil {
		s.logger.Warn("cell info query failed", "err", err)
	}
}

// retryCounter counts the attempts left in a phase. Zero means unarmed:
// the first failure seeds it with the phase budget.
type retryCounter int

// fail records a failed attempt and reports whether the phase should be
// retried. It returns false once the budget is spent, leaving the counter
// unarmed for the next round.
func (r *retryCounter) fail(budget int) bool {
	if *r <= 0 {
		*r = retryCounter(max(budget, 1))
		return true
	}
	*r--
	return *r > 0
}
