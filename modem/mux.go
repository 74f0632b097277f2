package modem

import (
	"context"
	"errors"
	"fmt"

	"i4.energy/across/mgsm/at"
)

// atReady switches the modem into CMUX mode when multiplexing is enabled.
// From here until the AT channel is verified after link-up, the session
// keeps the transmit lock and sends without taking it.
func (s *Session) atReady(ctx context.Context) event {
	if !s.cfg.MuxEnabled {
		return evMuxOff
	}

	if !s.txHeld {
		if !s.cmd.LockTimeout(s.cfg.LockCeiling) {
			s.logger.Warn("transmit lock busy, muxing disabled")
			return evMuxRefused
		}
		s.txHeld = true
	}

	if err := s.enableMux(ctx); err != nil {
		s.logger.Warn("muxing disabled", "err", err)
		s.releaseTx()
		return evMuxRefused
	}
	s.logger.Debug("muxing enabled", "variant", s.cfg.MuxVariant.String())
	return evMuxRequested
}

func (s *Session) enableMux(ctx context.Context) error {
	switch s.cfg.MuxVariant {
	case MuxSIMCom:
		cmd := fmt.Sprintf(at.CmdMuxFmt, s.cfg.MuxMRU)
		if s.cfg.MuxSrvPort {
			cmd = fmt.Sprintf(at.CmdMuxSrvPortFmt, DLCIPPP, DLCIAT, s.cfg.MuxMRU)
		}
		return s.send(ctx, cmd, s.cfg.ATTimeout)

	case MuxQuectel:
		err := s.send(ctx, fmt.Sprintf(at.CmdMuxFmt, s.cfg.MuxMRU), s.cfg.ATTimeout)
		// Quectel parts need a moment before the first framed command.
		s.sleep(ctx, s.cfg.MuxSettleDelay)
		return err
	}
	return s.send(ctx, at.CmdMuxGeneric, s.cfg.ATTimeout)
}

// attachChannel negotiates the channel for dlci. The first run allocates
// and requests the attach, then waits; the completion callback reschedules
// the task and the next run collects the result.
func (s *Session) attachChannel(dlci int) event {
	if s.attaching {
		select {
		case connected := <-s.attachDone:
			s.attaching = false
			if !connected {
				s.setErr(fmt.Errorf("dlci %d: %w", dlci, ErrAttachFailure))
				return evChannelFailed
			}
			s.logger.Info("channel attached", "dlci", dlci)
			return evChannelUp
		default:
			return evAttachPending
		}
	}

	// Reactivate the data channel left disabled by a previous stop.
	if dlci == DLCIControl && s.channels[DLCIPPP] != nil {
		if err := s.cfg.Mux.Enable(s.channels[DLCIPPP]); err != nil {
			s.logger.Warn("enable ppp channel", "err", err)
		}
	}

	ch := s.channels[dlci]
	if ch == nil {
		var err error
		ch, err = s.cfg.Mux.Alloc()
		if err == nil && ch == nil {
			err = errors.New("no channel available")
		}
		if err != nil {
			s.setErr(fmt.Errorf("alloc dlci %d: %w: %w", dlci, ErrAttachFailure, err))
			return evChannelFailed
		}
		s.channels[dlci] = ch
	}

	s.attaching = true
	if err := s.cfg.Mux.Attach(ch, s.physical, dlci, s.onAttached); err != nil {
		s.attaching = false
		s.setErr(fmt.Errorf("attach dlci %d: %w: %w", dlci, ErrAttachFailure, err))
		return evChannelFailed
	}
	return evAttachPending
}

// onAttached is the Mux completion callback. It never blocks and never
// takes the session lock.
func (s *Session) onAttached(connected bool) {
	select {
	case s.attachDone <- connected:
	default:
	}
	s.configure.Reschedule(0)
}

func (s *Session) drainAttach() {
	select {
	case <-s.attachDone:
	default:
	}
}

// muxDone carries setup traffic over the PPP channel; the AT channel takes
// over once the data call owns it.
func (s *Session) muxDone() event {
	s.cmd.SetTransport(s.channels[DLCIPPP])
	s.logger.Info("ppp channel carries setup", "dlci", DLCIPPP)
	return evMuxReady
}
