package modem

// runPoll refreshes signal strength and, if enabled, cell information while
// the multiplexed link is up. It re-arms itself after every run.
func (s *Session) runPoll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLinkConfigured {
		return
	}

	s.queryRSSI(s.loopCtx)
	if s.cfg.CellInfo {
		s.queryCellInfo(s.loopCtx)
	}
	s.poll.Reschedule(s.cfg.PollPeriod)
}
