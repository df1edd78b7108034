package cli

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"archive-relay/internal/archive"
	"archive-relay/internal/batch"
	"archive-relay/internal/destination"
	"archive-relay/internal/model"
)

func newTestUIModel(t *testing.T, dest string) uiModel {
	t.Helper()
	s := settings{delayPerByte: time.Millisecond}
	if dest != "" {
		s.destination = destination.Destination{Path: dest}
	}
	return newUIModel(s, zerolog.Nop(), "")
}

func step(t *testing.T, m uiModel, msg tea.Msg) (uiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	um, ok := next.(uiModel)
	if !ok {
		t.Fatalf("expected uiModel, got %T", next)
	}
	return um, cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func loadTestBatch(t *testing.T, m uiModel) uiModel {
	t.Helper()
	m, _ = step(t, m, archiveLoadedMsg{
		path:   "batch.zip",
		format: archive.FormatZip,
		members: []batch.Member{
			{Name: "a.zip", Size: 1000},
			{Name: "b.zip", Size: 2000},
		},
	})
	if got := len(m.ctrl.Snapshot().Entries); got != 2 {
		t.Fatalf("expected 2 entries after load, got %d", got)
	}
	return m
}

func TestUIToggleWithoutDestinationReportsError(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, ""))

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if cmd != nil {
		t.Fatal("expected no timers when the start is rejected")
	}
	if !strings.Contains(m.statusMessage, "please choose a destination folder") {
		t.Fatalf("expected missing destination message, got %q", m.statusMessage)
	}
	if got := m.ctrl.Status(); got != model.StatusIdle {
		t.Fatalf("expected idle, got %q", got)
	}
}

func TestUIUploadPauseResumeDone(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, t.TempDir()))

	m, cmd := step(t, m, runeKey('u'))
	if cmd == nil {
		t.Fatal("expected timer commands after start")
	}
	if got := m.ctrl.Status(); got != model.StatusRunning {
		t.Fatalf("expected running, got %q", got)
	}
	if m.sched.Pending() != 2 {
		t.Fatalf("expected 2 pending timers, got %d", m.sched.Pending())
	}

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if got := m.ctrl.Status(); got != model.StatusPaused {
		t.Fatalf("expected paused, got %q", got)
	}
	// ticks armed before the pause still arrive and must be ignored
	m, _ = step(t, m, timerFiredMsg{id: 1})
	m, _ = step(t, m, timerFiredMsg{id: 2})
	if n := m.ctrl.Snapshot().ProcessedCount(); n != 0 {
		t.Fatalf("expected no completions while paused, got %d", n)
	}

	m, cmd = step(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if cmd == nil {
		t.Fatal("expected timers to be rearmed on resume")
	}
	if got := m.ctrl.Status(); got != model.StatusRunning {
		t.Fatalf("expected running after resume, got %q", got)
	}
	m, _ = step(t, m, timerFiredMsg{id: 3})
	m, _ = step(t, m, timerFiredMsg{id: 4})
	if got := m.ctrl.Status(); got != model.StatusDone {
		t.Fatalf("expected done, got %q", got)
	}
	if !strings.Contains(m.View(), "✓") {
		t.Fatal("expected processed entries to be marked in the view")
	}
}

func TestUIRenamePrefillsCurrentName(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, ""))
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m, _ = step(t, m, runeKey('r'))
	if m.mode != uiModeRename {
		t.Fatalf("expected rename mode, got %d", m.mode)
	}
	if got := m.input.Value(); got != "b.zip" {
		t.Fatalf("expected input prefilled with b.zip, got %q", got)
	}

	m.input.SetValue("renamed.zip")
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.mode != uiModeBrowse {
		t.Fatal("expected browse mode after rename")
	}
	entries := m.ctrl.Snapshot().Entries
	if entries[0].Filename != "a.zip" || entries[1].Filename != "renamed.zip" {
		t.Fatalf("unexpected names after rename: %q, %q", entries[0].Filename, entries[1].Filename)
	}
}

func TestUIRenameEscapeKeepsName(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, ""))
	m, _ = step(t, m, runeKey('r'))
	m.input.SetValue("other.zip")
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if got := m.ctrl.Snapshot().Entries[0].Filename; got != "a.zip" {
		t.Fatalf("expected name unchanged after esc, got %q", got)
	}
}

func TestUIDuplicateAppendsCopy(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, ""))

	m, _ = step(t, m, runeKey('d'))
	m, _ = step(t, m, runeKey('d'))
	entries := m.ctrl.Snapshot().Entries
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[2].Filename != "a (Copy).zip" || entries[3].Filename != "a (Copy 2).zip" {
		t.Fatalf("unexpected copy names: %q, %q", entries[2].Filename, entries[3].Filename)
	}
}

func TestUIDuplicateOnEmptyBatchIsSilent(t *testing.T) {
	m := newTestUIModel(t, "")
	m, _ = step(t, m, runeKey('d'))
	if m.statusMessage != "" {
		t.Fatalf("expected no status message, got %q", m.statusMessage)
	}
}

func TestUIDuplicateWhileRunningArmsTimer(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, t.TempDir()))
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeySpace})

	m, cmd := step(t, m, runeKey('d'))
	if cmd == nil {
		t.Fatal("expected a timer for the copy")
	}
	if m.sched.Pending() != 3 {
		t.Fatalf("expected 3 pending timers, got %d", m.sched.Pending())
	}
}

func TestUIChooseDestination(t *testing.T) {
	m := newTestUIModel(t, "")
	dir := t.TempDir()

	m, _ = step(t, m, runeKey('o'))
	if m.mode != uiModeDestination {
		t.Fatalf("expected destination mode, got %d", m.mode)
	}
	m.input.SetValue(dir)
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.dest.Chosen() {
		t.Fatal("expected destination to be chosen")
	}
	if !strings.HasPrefix(m.statusMessage, "Saving to") {
		t.Fatalf("expected saving-to message, got %q", m.statusMessage)
	}

	// an empty answer keeps the current destination
	m, _ = step(t, m, runeKey('o'))
	m.input.SetValue("")
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.dest.Chosen() {
		t.Fatal("expected destination to be kept after an empty answer")
	}
}

func TestUIArchiveErrorLeavesEmptyIdleBatch(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, ""))
	m, _ = step(t, m, archiveLoadedMsg{path: "broken.rar", err: archive.ErrUnsupportedFormat})

	st := m.ctrl.Snapshot()
	if len(st.Entries) != 0 || st.Status() != model.StatusIdle {
		t.Fatalf("expected empty idle batch, got %d entries status %q", len(st.Entries), st.Status())
	}
	if !strings.HasPrefix(m.statusMessage, "error:") {
		t.Fatalf("expected error status, got %q", m.statusMessage)
	}
}

func TestUILoadDropsInFlightTimers(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, t.TempDir()))
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = loadTestBatch(t, m)

	if m.sched.Pending() != 0 {
		t.Fatalf("expected no pending timers after reload, got %d", m.sched.Pending())
	}
	m, _ = step(t, m, timerFiredMsg{id: 1})
	if n := m.ctrl.Snapshot().ProcessedCount(); n != 0 {
		t.Fatalf("expected stale tick to be ignored, got %d processed", n)
	}
	if got := m.ctrl.Status(); got != model.StatusIdle {
		t.Fatalf("expected idle after reload, got %q", got)
	}
}

func TestTeaSchedulerFireOnce(t *testing.T) {
	s := newTeaScheduler()
	if s.Drain() != nil {
		t.Fatal("expected nil command with nothing scheduled")
	}
	calls := 0
	s.Schedule(time.Second, func() { calls++ })
	if s.Drain() == nil {
		t.Fatal("expected a command after Schedule")
	}
	if !s.Fire(1) || s.Fire(1) {
		t.Fatal("expected the first fire to run and the second to be ignored")
	}
	s.Schedule(time.Second, func() { calls++ })
	s.CancelAll()
	if s.Fire(2) {
		t.Fatal("expected cancelled timer to be ignored")
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestUISpinnerShownWhilePaused(t *testing.T) {
	m := loadTestBatch(t, newTestUIModel(t, t.TempDir()))
	if strings.Contains(m.View(), m.spinner.View()) {
		t.Fatal("expected no spinner before the upload starts")
	}

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if got := m.ctrl.Status(); got != model.StatusPaused {
		t.Fatalf("expected paused, got %q", got)
	}
	if !strings.Contains(m.View(), m.spinner.View()) {
		t.Fatal("expected spinner next to unprocessed entries while paused")
	}
}

func TestTeaSchedulerRemainingCountsDown(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s := newTeaScheduler()
	s.now = func() time.Time { return now }

	if got := s.Remaining(); got != 0 {
		t.Fatalf("expected zero with nothing armed, got %s", got)
	}
	s.Schedule(10*time.Minute, func() {})
	s.Schedule(30*time.Minute, func() {})

	now = base.Add(5 * time.Minute)
	if got := s.Remaining(); got != 25*time.Minute {
		t.Fatalf("expected 25m remaining, got %s", got)
	}

	// a timer armed later extends the estimate from its own start
	s.Schedule(40*time.Minute, func() {})
	if got := s.Remaining(); got != 40*time.Minute {
		t.Fatalf("expected 40m remaining, got %s", got)
	}

	now = base.Add(2 * time.Hour)
	if got := s.Remaining(); got != 0 {
		t.Fatalf("expected overdue timers to clamp to zero, got %s", got)
	}

	s.CancelAll()
	if got := s.Remaining(); got != 0 {
		t.Fatalf("expected zero after CancelAll, got %s", got)
	}
}
