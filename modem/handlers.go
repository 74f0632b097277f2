package modem

import (
	"i4.energy/across/mgsm/at"
)

// rssiNotKnown stands in for CESQ fields that do not parse. It is outside
// every valid range, so decoding falls through to the next technology.
const rssiNotKnown = 255

// decodeCSQ maps a +CSQ <rssi> index onto dBm.
func decodeCSQ(index int) int {
	if index >= 0 && index <= 31 {
		return -113 + 2*index
	}
	return RSSIInvalid
}

// decodeCESQ picks the best signal figure out of a +CESQ report, preferring
// LTE RSRP, then UMTS RSCP, then GSM RXLEV.
func decodeCESQ(rxlev, rscp, rsrp int) int {
	switch {
	case rsrp >= 0 && rsrp <= 97:
		return -140 + (rsrp - 1)
	case rscp >= 0 && rscp <= 96:
		return -120 + (rscp - 1)
	case rxlev >= 0 && rxlev <= 63:
		return -110 + (rxlev - 1)
	}
	return RSSIInvalid
}

// rssiAcceptable reports whether dbm is a usable reading below ceiling.
func rssiAcceptable(dbm, ceiling int) bool {
	return dbm != 0 && dbm != RSSIInvalid && dbm < ceiling
}

func (s *Session) csqHandler() at.Cmd {
	return at.Cmd{
		Prefix:  at.RespSignal,
		MinArgs: 2,
		Delim:   ",",
		Func: func(args []string) {
			dbm := decodeCSQ(at.ParseInt(args[0], 10, -1))
			s.info.update(func(i *Info) { i.RSSI = dbm })
			s.logger.Debug("signal", "rssi", dbm)
		},
	}
}

func (s *Session) cesqHandler() at.Cmd {
	return at.Cmd{
		Prefix:  at.RespSignalExt,
		MinArgs: 6,
		Delim:   ",",
		Func: func(args []string) {
			dbm := decodeCESQ(
				at.ParseInt(args[0], 10, rssiNotKnown),
				at.ParseInt(args[2], 10, rssiNotKnown),
				at.ParseInt(args[5], 10, rssiNotKnown),
			)
			s.info.update(func(i *Info) { i.RSSI = dbm })
			s.logger.Debug("signal", "rssi", dbm)
		},
	}
}

// registrationHandler decodes +CEREG: <n>,<stat>. It stays registered for
// the life of the session.
func (s *Session) registrationHandler() at.Cmd {
	return at.Cmd{
		Prefix:  at.RespRegistration,
		MinArgs: 2,
		Delim:   ",",
		Func: func(args []string) {
			st := registrationFromCode(at.ParseInt(args[1], 10, -1))
			s.info.update(func(i *Info) { i.Registration = st })
			s.logger.Info("registration", "state", st.String())
		},
	}
}

// cellHandler decodes +CEREG: <n>,<stat>,<tac>,<ci>,<AcT> while cell info
// is queried. It shadows registrationHandler for that exchange.
func (s *Session) cellHandler() at.Cmd {
	return at.Cmd{
		Prefix:  at.RespRegistration,
		MinArgs: 5,
		Delim:   ",",
		Func: func(args []string) {
			st := registrationFromCode(at.ParseInt(args[1], 10, -1))
			lac := at.ParseInt(args[2], 16, 0)
			ci := at.ParseInt(args[3], 16, 0)
			act := at.ParseInt(args[4], 10, 0)
			s.info.update(func(i *Info) {
				i.Registration = st
				i.LAC = lac
				i.CellID = ci
				i.AccessTechnology = act
			})
			s.logger.Debug("cell", "lac", lac, "ci", ci, "act", act)
		},
	}
}

// operatorHandler decodes +COPS: <mode>[,<format>,<oper>[,<AcT>]].
func (s *Session) operatorHandler() at.Cmd {
	return at.Cmd{
		Prefix:  at.RespOperator,
		MinArgs: 1,
		MaxArgs: 4,
		Delim:   ",",
		Func: func(args []string) {
			auto := at.ParseInt(args[0], 10, -1) == 0
			op := -1
			if len(args) >= 3 {
				op = at.ParseInt(args[2], 10, 0)
			}
			s.info.update(func(i *Info) {
				i.AutomaticOperator = auto
				if op >= 0 {
					i.Operator = op
				}
			})
			s.logger.Debug("operator", "automatic", auto, "operator", op)
		},
	}
}

func (s *Session) attachHandler() at.Cmd {
	return at.Cmd{
		Prefix:  at.RespAttach,
		MinArgs: 1,
		Delim:   ",",
		Func: func(args []string) {
			attached := at.ParseInt(args[0], 10, 0) == 1
			s.info.update(func(i *Info) { i.Attached = attached })
			if attached {
				s.logger.Info("attached to packet service")
			}
		},
	}
}

func (s *Session) addressHandler() at.Cmd {
	return at.Cmd{
		Prefix:  at.RespAddress,
		MinArgs: 2,
		Delim:   ",",
		Func: func(args []string) {
			addr := at.Unquote(args[1])
			s.info.update(func(i *Info) { i.Address = addr })
			s.logger.Info("packet data address", "addr", addr)
		},
	}
}

// textHandler captures a free-form response line, such as the reply to
// AT+CGMI, into the field chosen by set.
func (s *Session) textHandler(name string, set func(*Info, string)) at.Cmd {
	return at.Cmd{
		Prefix: "",
		Func: func(args []string) {
			if len(args) == 0 {
				return
			}
			v := args[0]
			s.info.update(func(i *Info) { set(i, v) })
			s.logger.Info("modem info", name, v)
		},
	}
}

// signalExchange queries signal strength in the configured mode.
func (s *Session) signalExchange() Exchange {
	if s.cfg.RSSIMode == RSSICESQ {
		return Exchange{Cmd: at.CmdSignalExt, Handlers: []at.Cmd{s.cesqHandler()}, Timeout: s.cfg.SetupTimeout}
	}
	return Exchange{Cmd: at.CmdSignal, Handlers: []at.Cmd{s.csqHandler()}, Timeout: s.cfg.SetupTimeout}
}
