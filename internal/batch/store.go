package batch

import (
	"sync/atomic"

	"archive-relay/internal/model"
	"archive-relay/internal/naming"
)

type snapshot struct {
	state   State
	version uint64
}

// Store is the single point of mutation for a batch. Dispatch must be called
// from one goroutine (the event loop); Snapshot may be called from anywhere
// and always returns a fully applied state.
type Store struct {
	opts    naming.Options
	current atomic.Pointer[snapshot]
}

func NewStore(opts naming.Options) *Store {
	s := &Store{opts: opts}
	s.current.Store(&snapshot{})
	return s
}

func (s *Store) Snapshot() State {
	return s.current.Load().state
}

// Version increases by one with every successful Dispatch, so pollers can
// tell whether anything changed.
func (s *Store) Version() uint64 {
	return s.current.Load().version
}

func (s *Store) Status() model.BatchStatus {
	return s.Snapshot().Status()
}

func (s *Store) Dispatch(a Action) (State, error) {
	prev := s.current.Load()
	next, err := Reduce(prev.state, a, s.opts)
	if err != nil {
		return prev.state, err
	}
	s.current.Store(&snapshot{state: next, version: prev.version + 1})
	return next, nil
}
