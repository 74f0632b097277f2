package modem

import (
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		ev      event
		wantTo  State
		wantEff effect
	}{
		{"start", StateStopped, evStart, StateStarting, effNow},
		{"powered on", StateStarting, evPoweredOn, StateWaitAT, effCont},
		{"probe ok", StateWaitAT, evProbeOK, StateATReady, effCont},
		{"probe failed", StateWaitAT, evProbeFailed, StateWaitAT, effNow},
		{"no mux", StateATReady, evMuxOff, StateSetup, effCont},
		{"mux requested", StateATReady, evMuxRequested, StateMuxControl, effCont},
		{"mux refused", StateATReady, evMuxRefused, StateWaitAT, effNow},
		{"control pending", StateMuxControl, evAttachPending, StateMuxControl, effWait},
		{"control up", StateMuxControl, evChannelUp, StateMuxPPP, effCont},
		{"ppp up", StateMuxPPP, evChannelUp, StateMuxAT, effCont},
		{"at up", StateMuxAT, evChannelUp, StateMuxDone, effCont},
		{"at failed", StateMuxAT, evChannelFailed, StateError, effIdle},
		{"mux ready", StateMuxDone, evMuxReady, StateSetup, effCont},
		{"operator set", StateSetup, evOperatorSet, StateOperatorConfigured, effCont},
		{"setup failed", StateSetup, evSetupFailed, StateSetup, effRetry},
		{"commands failed", StateOperatorConfigured, evSetupFailed, StateSetup, effRetry},
		{"setup done", StateOperatorConfigured, evSetupDone, StateRegistering, effCont},
		{"registered", StateRegistering, evRegistered, StateAttaching, effCont},
		{"registration waiting", StateRegistering, evRegWaiting, StateRegistering, effRegister},
		{"registration exhausted", StateRegistering, evRegExhausted, StateSetup, effRetry},
		{"attached", StateAttaching, evAttachOK, StateAttached, effCont},
		{"attach retry", StateAttaching, evAttachRetry, StateAttaching, effAttach},
		{"attach exhausted", StateAttaching, evAttachExhausted, StateSetup, effRetry},
		{"rssi low", StateAttached, evRSSILow, StateAttached, effRSSI},
		{"connect failed", StateAttached, evConnectFailed, StateAttached, effRetry},
		{"connected", StateAttached, evConnected, StateLinkConfigured, effCont},
		{"link up", StateLinkConfigured, evLinkUp, StateLinkConfigured, effIdle},
		{"link failed", StateLinkConfigured, evLinkFailed, StateError, effIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, eff := transition(tt.from, tt.ev)
			if to != tt.wantTo {
				t.Errorf("expected %s, got %s", tt.wantTo, to)
			}
			if eff != tt.wantEff {
				t.Errorf("expected effect %+v, got %+v", tt.wantEff, eff)
			}
		})
	}
}

func TestTransition_StopFromAnyState(t *testing.T) {
	for st := StateStopped; st <= StateError; st++ {
		to, eff := transition(st, evStop)
		if to != StateStopped || eff != effIdle {
			t.Errorf("%s: expected stopped/idle, got %s/%+v", st, to, eff)
		}
	}
}

func TestTransition_UnknownPairIsError(t *testing.T) {
	tests := []struct {
		from State
		ev   event
	}{
		{StateStopped, evProbeOK},
		{StateWaitAT, evConnected},
		{StateSetup, evChannelUp},
		{StateLinkConfigured, evStart},
		{StateError, evStart},
	}
	for _, tt := range tests {
		to, eff := transition(tt.from, tt.ev)
		if to != StateError || eff != effIdle {
			t.Errorf("%s on %d: expected error/idle, got %s/%+v", tt.from, tt.ev, to, eff)
		}
	}
}

// Bring-up only moves forward except for the rollbacks to a retry point.
func TestTransition_NoBackwardEdges(t *testing.T) {
	rollbacks := map[State]bool{StateSetup: true, StateWaitAT: true, StateError: true}
	for e, tgt := range transitions {
		if tgt.to < e.from && !rollbacks[tgt.to] {
			t.Errorf("%s -> %s goes backwards", e.from, tgt.to)
		}
	}
}

func TestStateString(t *testing.T) {
	if got := StateLinkConfigured.String(); got != "link-configured" {
		t.Errorf("unexpected name %q", got)
	}
	if got := State(99).String(); got != "unknown" {
		t.Errorf("unexpected name %q", got)
	}
	b, err := StateWaitAT.MarshalText()
	if err != nil || string(b) != "wait-at" {
		t.Errorf("unexpected text %q (%v)", b, err)
	}
}
