package modem

// State is the bring-up phase of a Session.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateWaitAT
	StateATReady
	StateMuxControl
	StateMuxPPP
	StateMuxAT
	StateMuxDone
	StateSetup
	StateOperatorConfigured
	StateRegistering
	StateAttaching
	StateAttached
	StateLinkConfigured
	StateError
)

var stateNames = [...]string{
	StateStopped:            "stopped",
	StateStarting:           "starting",
	StateWaitAT:             "wait-at",
	StateATReady:            "at-ready",
	StateMuxControl:         "mux-control",
	StateMuxPPP:             "mux-ppp",
	StateMuxAT:              "mux-at",
	StateMuxDone:            "mux-done",
	StateSetup:              "setup",
	StateOperatorConfigured: "operator-configured",
	StateRegistering:        "registering",
	StateAttaching:          "attaching",
	StateAttached:           "attached",
	StateLinkConfigured:     "link-configured",
	StateError:              "error",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText makes states readable in JSON status reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// event is the outcome of running one bring-up step.
type event int

const (
	evStart event = iota
	evStop
	evPoweredOn
	evProbeOK
	evProbeFailed
	evMuxOff
	evMuxRequested
	evMuxRefused
	evAttachPending
	evChannelUp
	evChannelFailed
	evMuxReady
	evOperatorSet
	evSetupDone
	evSetupFailed
	evRegistered
	evRegWaiting
	evRegExhausted
	evAttachOK
	evAttachRetry
	evAttachExhausted
	evRSSILow
	evConnectFailed
	evConnected
	evLinkUp
	evLinkFailed
)

// action tells the configure task what to do after a transition.
type action int

const (
	// actContinue runs the next state's step in the same task.
	actContinue action = iota
	// actReschedule ends the task and runs it again after a delay.
	actReschedule
	// actWait ends the task; an external callback reschedules it.
	actWait
	// actIdle ends the task with nothing further scheduled.
	actIdle
)

type delayClass int

const (
	delayNone delayClass = iota
	delayRetry
	delayAttach
	delayRegister
	delayRSSI
)

type effect struct {
	act   action
	delay delayClass
}

var (
	effCont     = effect{act: actContinue}
	effWait     = effect{act: actWait}
	effIdle     = effect{act: actIdle}
	effNow      = effect{act: actReschedule, delay: delayNone}
	effRetry    = effect{act: actReschedule, delay: delayRetry}
	effAttach   = effect{act: actReschedule, delay: delayAttach}
	effRegister = effect{act: actReschedule, delay: delayRegister}
	effRSSI     = effect{act: actReschedule, delay: delayRSSI}
)

type edge struct {
	from State
	ev   event
}

type target struct {
	to  State
	eff effect
}

// transitions is the complete bring-up table. Progress is strictly forward;
// the only backward edges are the error-driven rollbacks to a retry point.
var transitions = map[edge]target{
	{StateStopped, evStart}:      {StateStarting, effNow},
	{StateStarting, evPoweredOn}: {StateWaitAT, effCont},

	{StateWaitAT, evProbeOK}:     {StateATReady, effCont},
	{StateWaitAT, evProbeFailed}: {StateWaitAT, effNow},

	{StateATReady, evMuxOff}:       {StateSetup, effCont},
	{StateATReady, evMuxRequested}: {StateMuxControl, effCont},
	{StateATReady, evMuxRefused}:   {StateWaitAT, effNow},

	{StateMuxControl, evAttachPending}: {StateMuxControl, effWait},
	{StateMuxControl, evChannelUp}:     {StateMuxPPP, effCont},
	{StateMuxControl, evChannelFailed}: {StateError, effIdle},
	{StateMuxPPP, evAttachPending}:     {StateMuxPPP, effWait},
	{StateMuxPPP, evChannelUp}:         {StateMuxAT, effCont},
	{StateMuxPPP, evChannelFailed}:     {StateError, effIdle},
	{StateMuxAT, evAttachPending}:      {StateMuxAT, effWait},
	{StateMuxAT, evChannelUp}:          {StateMuxDone, effCont},
	{StateMuxAT, evChannelFailed}:      {StateError, effIdle},
	{StateMuxDone, evMuxReady}:         {StateSetup, effCont},

	{StateSetup, evOperatorSet}:              {StateOperatorConfigured, effCont},
	{StateSetup, evSetupFailed}:              {StateSetup, effRetry},
	{StateOperatorConfigured, evSetupDone}:   {StateRegistering, effCont},
	{StateOperatorConfigured, evSetupFailed}: {StateSetup, effRetry},

	{StateRegistering, evRegistered}:   {StateAttaching, effCont},
	{StateRegistering, evRegWaiting}:   {StateRegistering, effRegister},
	{StateRegistering, evRegExhausted}: {StateSetup, effRetry},

	{StateAttaching, evAttachOK}:        {StateAttached, effCont},
	{StateAttaching, evAttachRetry}:     {StateAttaching, effAttach},
	{StateAttaching, evAttachExhausted}: {StateSetup, effRetry},

	{StateAttached, evRSSILow}:       {StateAttached, effRSSI},
	{StateAttached, evConnectFailed}: {StateAttached, effRetry},
	{StateAttached, evConnected}:     {StateLinkConfigured, effCont},

	{StateLinkConfigured, evLinkUp}:     {StateLinkConfigured, effIdle},
	{StateLinkConfigured, evLinkFailed}: {StateError, effIdle},
}

// transition returns the state that follows st when ev occurs, and what
// the configure task must do next. Stop is accepted from every state.
// Any other pair missing from the table leads to StateError.
func transition(st State, ev event) (State, effect) {
	if ev == evStop {
		return StateStopped, effIdle
	}
	if t, ok := transitions[edge{st, ev}]; ok {
		return t.to, t.eff
	}
	return StateError, effIdle
}
