package transfer

import (
	"slices"
	"time"
)

// ManualScheduler is a Scheduler driven by a virtual clock. Nothing fires
// until Advance is called.
type ManualScheduler struct {
	now     time.Duration
	seq     uint64
	pending []manualTimer
}

type manualTimer struct {
	at  time.Duration
	seq uint64
	fn  func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	s.pending = append(s.pending, manualTimer{at: s.now + delay, seq: s.seq, fn: fn})
}

func (s *ManualScheduler) CancelAll() {
	s.pending = nil
}

func (s *ManualScheduler) Now() time.Duration {
	return s.now
}

func (s *ManualScheduler) Pending() int {
	return len(s.pending)
}

// Advance moves the clock forward by d, firing due callbacks in deadline
// order. Callbacks may schedule or cancel; newly due work fires in the same
// call.
func (s *ManualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		idx := s.nextDue(target)
		if idx < 0 {
			break
		}
		t := s.pending[idx]
		s.pending = slices.Delete(s.pending, idx, idx+1)
		s.now = t.at
		t.fn()
	}
	s.now = target
}

// Drain advances until nothing is pending and returns the elapsed virtual
// time.
func (s *ManualScheduler) Drain() time.Duration {
	start := s.now
	for len(s.pending) > 0 {
		latest := s.pending[0].at
		for _, t := range s.pending[1:] {
			latest = max(latest, t.at)
		}
		s.Advance(latest - s.now)
	}
	return s.now - start
}

func (s *ManualScheduler) nextDue(target time.Duration) int {
	best := -1
	for i, t := range s.pending {
		if t.at > target {
			continue
		}
		if best < 0 || t.at < s.pending[best].at || (t.at == s.pending[best].at && t.seq < s.pending[best].seq) {
			best = i
		}
	}
	return best
}
