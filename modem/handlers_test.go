package modem

import (
	"log/slog"
	"testing"

	"i4.energy/across/mgsm/at"
)

func newTestSession() *Session {
	return &Session{logger: slog.New(slog.DiscardHandler), info: newInfoStore()}
}

// feed runs line through h the way the Commander would.
func feed(t *testing.T, h at.Cmd, line string) {
	t.Helper()
	if err := at.NewRegistry().Dispatch(line, []at.Cmd{h}); err != nil {
		t.Fatalf("dispatch %q: %v", line, err)
	}
}

func TestDecodeCSQ(t *testing.T) {
	tests := []struct {
		index int
		want  int
	}{
		{0, -113},
		{1, -111},
		{31, -51},
		{32, RSSIInvalid},
		{99, RSSIInvalid},
		{-1, RSSIInvalid},
	}
	for _, tt := range tests {
		if got := decodeCSQ(tt.index); got != tt.want {
			t.Errorf("decodeCSQ(%d) = %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestDecodeCESQ(t *testing.T) {
	tests := []struct {
		name              string
		rxlev, rscp, rsrp int
		want              int
	}{
		{"rsrp low end", 99, 255, 1, -140},
		{"rsrp high end", 99, 255, 97, -44},
		{"rsrp preferred", 30, 40, 50, -91},
		{"rscp fallback", 99, 1, 255, -120},
		{"rscp high end", 99, 96, 255, -25},
		{"rxlev fallback", 1, 255, 255, -110},
		{"rxlev high end", 63, 255, 255, -48},
		{"nothing known", 99, 255, 255, RSSIInvalid},
		{"unparsed fields", rssiNotKnown, rssiNotKnown, rssiNotKnown, RSSIInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeCESQ(tt.rxlev, tt.rscp, tt.rsrp); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRSSIAcceptable(t *testing.T) {
	tests := []struct {
		dbm, ceiling int
		want         bool
	}{
		{-80, -51, true},
		{-51, -51, false},
		{0, -51, false},
		{RSSIInvalid, -51, false},
		{-100, 0, true},
	}
	for _, tt := range tests {
		if got := rssiAcceptable(tt.dbm, tt.ceiling); got != tt.want {
			t.Errorf("rssiAcceptable(%d, %d) = %v", tt.dbm, tt.ceiling, got)
		}
	}
}

func TestSignalHandlers(t *testing.T) {
	t.Run("CSQ", func(t *testing.T) {
		s := newTestSession()
		feed(t, s.csqHandler(), "+CSQ: 20,99")
		if got := s.info.snapshot().RSSI; got != -73 {
			t.Errorf("expected -73, got %d", got)
		}
		feed(t, s.csqHandler(), "+CSQ: 99,99")
		if got := s.info.snapshot().RSSI; got != RSSIInvalid {
			t.Errorf("expected invalid, got %d", got)
		}
	})

	t.Run("CESQ", func(t *testing.T) {
		s := newTestSession()
		feed(t, s.cesqHandler(), "+CESQ: 99,99,255,255,20,41")
		if got := s.info.snapshot().RSSI; got != -100 {
			t.Errorf("expected -100, got %d", got)
		}
		feed(t, s.cesqHandler(), "+CESQ: x,99,y,255,20,z")
		if got := s.info.snapshot().RSSI; got != RSSIInvalid {
			t.Errorf("expected invalid, got %d", got)
		}
	})
}

func TestRegistrationHandler(t *testing.T) {
	tests := []struct {
		line string
		want RegistrationState
	}{
		{"+CEREG: 0,1", RegistrationHome},
		{"+CEREG: 0,5", RegistrationRoaming},
		{"+CEREG: 0,2", RegistrationSearching},
		{"+CEREG: 0,0", RegistrationNotRegistered},
		{"+CEREG: 0,3", RegistrationDenied},
		{"+CEREG: 0,4", RegistrationUnknown},
		{"+CEREG: 0,9", RegistrationUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			s := newTestSession()
			feed(t, s.registrationHandler(), tt.line)
			if got := s.info.snapshot().Registration; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCellHandler(t *testing.T) {
	s := newTestSession()
	feed(t, s.cellHandler(), `+CEREG: 2,1,"1A2B","01C3D4E5",7`)

	info := s.info.snapshot()
	if info.LAC != 0x1A2B || info.CellID != 0x01C3D4E5 || info.AccessTechnology != 7 {
		t.Errorf("unexpected cell info %+v", info)
	}
	if info.Registration != RegistrationHome {
		t.Errorf("expected home, got %s", info.Registration)
	}
}

func TestCellHandlerShadowsRegistration(t *testing.T) {
	s := newTestSession()
	reg := at.NewRegistry(s.registrationHandler())

	cell := false
	h := s.cellHandler()
	inner := h.Func
	h.Func = func(args []string) { cell = true; inner(args) }

	if err := reg.Dispatch(`+CEREG: 2,5,"00FF","0000ABCD",7`, []at.Cmd{h}); err != nil {
		t.Fatal(err)
	}
	if !cell {
		t.Error("cell handler not chosen")
	}
}

func TestOperatorHandler(t *testing.T) {
	t.Run("Automatic with operator", func(t *testing.T) {
		s := newTestSession()
		feed(t, s.operatorHandler(), `+COPS: 0,2,"26201",7`)
		info := s.info.snapshot()
		if !info.AutomaticOperator || info.Operator != 26201 {
			t.Errorf("unexpected %+v", info)
		}
	})

	t.Run("Manual", func(t *testing.T) {
		s := newTestSession()
		feed(t, s.operatorHandler(), `+COPS: 1,2,"23410"`)
		info := s.info.snapshot()
		if info.AutomaticOperator || info.Operator != 23410 {
			t.Errorf("unexpected %+v", info)
		}
	})

	t.Run("Mode only", func(t *testing.T) {
		s := newTestSession()
		feed(t, s.operatorHandler(), "+COPS: 0")
		info := s.info.snapshot()
		if !info.AutomaticOperator || info.Operator != 0 {
			t.Errorf("unexpected %+v", info)
		}
	})
}

func TestAddressAndAttachHandlers(t *testing.T) {
	s := newTestSession()
	feed(t, s.addressHandler(), `+CGPADDR: 1,"10.64.3.17"`)
	feed(t, s.attachHandler(), "+CGATT: 1")

	info := s.info.snapshot()
	if info.Address != "10.64.3.17" {
		t.Errorf("unexpected address %q", info.Address)
	}
	if !info.Attached {
		t.Error("expected attached")
	}
}

func TestRetryCounter(t *testing.T) {
	var r retryCounter

	// First failure arms the counter with the budget.
	if !r.fail(3) || r != 3 {
		t.Fatalf("expected armed at 3, got %d", r)
	}
	if !r.fail(3) || r != 2 {
		t.Fatalf("expected 2 left, got %d", r)
	}
	if !r.fail(3) || r != 1 {
		t.Fatalf("expected 1 left, got %d", r)
	}
	if r.fail(3) {
		t.Fatal("expected budget to be spent")
	}
	if r != 0 {
		t.Errorf("expected unarmed counter, got %d", r)
	}

	// A zero budget still allows one retry.
	var z retryCounter
	if !z.fail(0) || z != 1 {
		t.Errorf("expected armed at 1, got %d", z)
	}
}
