package table

// signal is a single-shot condition that can be re-armed for the next hand.
// Waiters grab the channel from wait and block until fire closes it. All
// methods require the table lock.
type signal struct {
	ch    chan struct{}
	fired bool
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) wait() <-chan struct{} {
	return s.ch
}

func (s *signal) fire() {
	if !s.fired {
		s.fired = true
		close(s.ch)
	}
}

func (s *signal) reset() {
	if s.fired {
		s.ch = make(chan struct{})
		s.fired = false
	}
}
