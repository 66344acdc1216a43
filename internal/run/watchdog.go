package run

import "time"

// Watchdog enforces a maximum silence interval from the agent. It is not
// armed until the first call to Arm; after that exactly one deadline is
// pending at any time.
type Watchdog struct {
	deadline time.Duration
	timer    *time.Timer
	lastSeen time.Time
	now      func() time.Time
}

func NewWatchdog(deadline time.Duration) *Watchdog {
	return &Watchdog{
		deadline: deadline,
		now:      time.Now,
	}
}

// Arm records a liveness signal and restarts the deadline. Reset on a
// go1.23+ timer drops any fire that has not been received yet, so the
// previous deadline can never be delivered after this returns.
func (w *Watchdog) Arm() {
	w.lastSeen = w.now()
	if w.timer == nil {
		w.timer = time.NewTimer(w.deadline)
		return
	}
	w.timer.Reset(w.deadline)
}

// C delivers once when the deadline elapses. It is nil, and blocks
// forever in a select, until the watchdog is first armed.
func (w *Watchdog) C() <-chan time.Time {
	if w.timer == nil {
		return nil
	}
	return w.timer.C
}

func (w *Watchdog) Armed() bool {
	return w.timer != nil
}

func (w *Watchdog) LastSeen() time.Time {
	return w.lastSeen
}

func (w *Watchdog) Deadline() time.Duration {
	return w.deadline
}

// Stop cancels the pending deadline, if any.
func (w *Watchdog) Stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}
