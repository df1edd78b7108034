package cli

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type timerFiredMsg struct {
	id uint64
}

type teaTimer struct {
	due time.Time
	fn  func()
}

// teaScheduler runs controller timers as tea.Tick commands so completions
// arrive through Update like every other message. A tick whose id was
// cancelled is ignored when it lands.
type teaScheduler struct {
	now     func() time.Time
	nextID  uint64
	pending map[uint64]teaTimer
	cmds    []tea.Cmd
}

func newTeaScheduler() *teaScheduler {
	return &teaScheduler{now: time.Now, pending: map[uint64]teaTimer{}}
}

func (s *teaScheduler) Schedule(delay time.Duration, fn func()) {
	s.nextID++
	id := s.nextID
	s.pending[id] = teaTimer{due: s.now().Add(delay), fn: fn}
	s.cmds = append(s.cmds, tea.Tick(delay, func(time.Time) tea.Msg {
		return timerFiredMsg{id: id}
	}))
}

func (s *teaScheduler) CancelAll() {
	clear(s.pending)
}

// Fire runs the callback registered under id, at most once.
func (s *teaScheduler) Fire(id uint64) bool {
	t, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	t.fn()
	return true
}

func (s *teaScheduler) Pending() int {
	return len(s.pending)
}

// Remaining is the time until the last pending timer fires, zero when
// nothing is armed.
func (s *teaScheduler) Remaining() time.Duration {
	var last time.Time
	for _, t := range s.pending {
		if t.due.After(last) {
			last = t.due
		}
	}
	if last.IsZero() {
		return 0
	}
	return max(last.Sub(s.now()), 0)
}

// Drain hands the ticks armed since the last call to the bubbletea runtime.
func (s *teaScheduler) Drain() tea.Cmd {
	if len(s.cmds) == 0 {
		return nil
	}
	cmds := s.cmds
	s.cmds = nil
	return tea.Batch(cmds...)
}
