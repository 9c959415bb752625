// Package timer runs the one-timer-per-session phase countdowns. The
// scheduler dispatches by session identifier; the fire callback re-enters
// the session's inbox, so state is always re-read at fire time and a
// cancelled-then-recreated timer can never act on stale data.
package timer

import (
	"sync"
	"time"
)

type entry struct {
	t   *time.Timer
	gen uint64
}

type Scheduler struct {
	mu      sync.Mutex
	active  map[string]entry
	nextGen uint64
}

func NewScheduler() *Scheduler {
	return &Scheduler{active: map[string]entry{}}
}

// Start arms the timer for a session, replacing any existing one. Only one
// phase is ever time-gated at once, so replacement is always safe.
func (s *Scheduler) Start(sessionID string, d time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.active[sessionID]; ok {
		prev.t.Stop()
	}
	s.nextGen++
	gen := s.nextGen

	t := time.AfterFunc(d, func() {
		// The generation check makes Stop races harmless: a timer that
		// lost to Cancel or a replacement finds a mismatch and does
		// nothing.
		s.mu.Lock()
		cur, ok := s.active[sessionID]
		if !ok || cur.gen != gen {
			s.mu.Unlock()
			return
		}
		delete(s.active, sessionID)
		s.mu.Unlock()
		fire()
	})
	s.active[sessionID] = entry{t: t, gen: gen}
}

// Cancel stops the session's timer if one is running. Cancelling with no
// active timer is a no-op.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.active[sessionID]; ok {
		prev.t.Stop()
		delete(s.active, sessionID)
	}
}

// Running reports whether a timer is armed for the session.
func (s *Scheduler) Running(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[sessionID]
	return ok
}
