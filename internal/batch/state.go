// Package batch holds the canonical entry list and transfer flags. Every
// transition is a pure function from one State to the next.
package batch

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"archive-relay/internal/model"
	"archive-relay/internal/naming"
)

var ErrUnknownEntry = errors.New("unknown entry id")

// State is an immutable snapshot. Reduce never modifies the Entries slice of
// its input; it always builds a new one.
type State struct {
	Entries   []model.Entry
	Uploading bool
	Paused    bool
}

func (s State) AllProcessed() bool {
	return model.AllProcessed(s.Entries)
}

func (s State) Status() model.BatchStatus {
	return model.DeriveStatus(s.Uploading, s.Paused, s.AllProcessed())
}

func (s State) ProcessedCount() int {
	n := 0
	for _, e := range s.Entries {
		if e.Processed {
			n++
		}
	}
	return n
}

func (s State) TotalBytes() uint64 {
	var n uint64
	for _, e := range s.Entries {
		n += e.SizeBytes
	}
	return n
}

func (s State) ProcessedBytes() uint64 {
	var n uint64
	for _, e := range s.Entries {
		if e.Processed {
			n += e.SizeBytes
		}
	}
	return n
}

// Pending returns the entries still waiting for completion, in list order.
func (s State) Pending() []model.Entry {
	out := make([]model.Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if !e.Processed {
			out = append(out, e)
		}
	}
	return out
}

func (s State) IndexOf(id string) int {
	for i, e := range s.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s State) Summary() model.BatchSummary {
	entries := s.Entries
	if entries == nil {
		entries = []model.Entry{}
	}
	return model.BatchSummary{
		Status:         string(s.Status()),
		Total:          len(s.Entries),
		Processed:      s.ProcessedCount(),
		TotalBytes:     s.TotalBytes(),
		ProcessedBytes: s.ProcessedBytes(),
		Entries:        entries,
	}
}

// Member is an archive file as handed over by the inspector.
type Member struct {
	Name string
	Size uint64
}

type Action interface {
	apply(State, naming.Options) (State, error)
}

// Load replaces the whole batch. Flags reset, so the status is Idle.
type Load struct {
	Members []Member
}

type Rename struct {
	Index int
	Name  string
}

type Duplicate struct {
	Index int
}

// Complete marks one entry processed. Completing an already processed entry
// is a no-op.
type Complete struct {
	ID string
}

type Start struct{}

type Pause struct{}

type Resume struct{}

// Reduce applies a single action and returns the next state. On error the
// returned state equals the input.
func Reduce(s State, a Action, opts naming.Options) (State, error) {
	if a == nil {
		return s, errors.New("nil action")
	}
	next, err := a.apply(s, opts)
	if err != nil {
		return s, err
	}
	return next, nil
}

func (a Load) apply(_ State, _ naming.Options) (State, error) {
	entries := make([]model.Entry, 0, len(a.Members))
	for _, m := range a.Members {
		entries = append(entries, model.Entry{
			ID:        uuid.NewString(),
			Filename:  m.Name,
			SizeBytes: m.Size,
		})
	}
	return State{Entries: entries}, nil
}

func (a Rename) apply(s State, _ naming.Options) (State, error) {
	entries, err := naming.Rename(s.Entries, a.Index, a.Name)
	if err != nil {
		return s, err
	}
	s.Entries = entries
	return s, nil
}

func (a Duplicate) apply(s State, opts naming.Options) (State, error) {
	if a.Index < 0 || a.Index >= len(s.Entries) {
		return s, fmt.Errorf("duplicate %d of %d: %w", a.Index, len(s.Entries), naming.ErrIndexOutOfRange)
	}
	clone := opts.Duplicate(s.Entries, s.Entries[a.Index])
	entries := make([]model.Entry, len(s.Entries), len(s.Entries)+1)
	copy(entries, s.Entries)
	s.Entries = append(entries, clone)
	return s, nil
}

func (a Complete) apply(s State, _ naming.Options) (State, error) {
	idx := s.IndexOf(a.ID)
	if idx < 0 {
		return s, fmt.Errorf("complete %q: %w", a.ID, ErrUnknownEntry)
	}
	if s.Entries[idx].Processed {
		return s, nil
	}
	entries := make([]model.Entry, len(s.Entries))
	copy(entries, s.Entries)
	entries[idx].Processed = true
	s.Entries = entries
	return s, nil
}

func (Start) apply(s State, _ naming.Options) (State, error) {
	s.Uploading = true
	s.Paused = false
	return s, nil
}

func (Pause) apply(s State, _ naming.Options) (State, error) {
	if !s.Uploading {
		return s, fmt.Errorf("pause: %w", model.CheckTransition(s.Status(), model.StatusPaused))
	}
	s.Paused = true
	return s, nil
}

func (Resume) apply(s State, _ naming.Options) (State, error) {
	if !s.Uploading || !s.Paused {
		return s, fmt.Errorf("resume from %q: batch is not paused", s.Status())
	}
	s.Paused = false
	return s, nil
}
