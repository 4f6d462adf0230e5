package server

import (
	"time"

	"github.com/draftforge/draftforge/pkg/events"
)

// minPickSeconds is the countdown floor as picks speed up late in a pack.
const minPickSeconds = 5

// pickTimer is one running countdown. The goroutine only broadcasts; it
// never picks for anyone, so an expired clock just sits at zero until the
// player acts.
type pickTimer struct {
	stop chan struct{}
}

// pickDuration scales the base timer down as the pack empties. Lock held.
func (s *Session) pickDuration() int {
	base := s.opts.PickTimer
	pick := 0
	if s.draft != nil {
		pick = s.draft.PickNumber()
	}
	d := base - (base/15)*pick
	if d < minPickSeconds {
		d = minPickSeconds
	}
	return d
}

// restartPickTimer replaces any running countdown with a fresh one for the
// current pick. Lock held.
func (s *Session) restartPickTimer() {
	s.timerRemaining = 0
	s.stopPickTimer()
	t := &pickTimer{stop: make(chan struct{})}
	s.timer = t
	go s.runTimer(t, s.pickDuration())
}

// resumePickTimer continues a countdown frozen by a disconnect from where
// it stopped, falling back to a full pick window when nothing was frozen.
// Lock held.
func (s *Session) resumePickTimer() {
	seconds := s.timerRemaining
	s.timerRemaining = 0
	if seconds <= 0 {
		seconds = s.pickDuration()
	}
	s.stopPickTimer()
	t := &pickTimer{stop: make(chan struct{})}
	s.timer = t
	go s.runTimer(t, seconds)
}

// stopPickTimer cancels the running countdown, if any. Lock held.
func (s *Session) stopPickTimer() {
	if s.timer != nil {
		close(s.timer.stop)
		s.timer = nil
	}
}

func (s *Session) runTimer(t *pickTimer, seconds int) {
	s.broadcastCountdown(t, seconds)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for remaining := seconds; remaining > 0; {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			s.broadcastCountdown(t, remaining)
		}
	}
}

func (s *Session) broadcastCountdown(t *pickTimer, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A stale goroutine whose timer was replaced must not speak.
	if s.timer != t {
		return
	}
	s.timerRemaining = remaining
	s.toSession(events.OutTimer, events.TimerPayload{Countdown: remaining})
}
