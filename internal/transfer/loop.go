package transfer

import (
	"context"
	"errors"
	"time"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Loop is a single-goroutine event loop. Posted functions and timer
// callbacks all run on the goroutine executing Run, one at a time.
//
// Schedule and CancelAll must be called from inside the loop (from a posted
// function or a timer callback).
type Loop struct {
	actions chan func()
	done    chan struct{}

	// loop-owned
	gen    uint64
	timers map[*time.Timer]struct{}
}

func NewLoop() *Loop {
	return &Loop{
		actions: make(chan func(), 64),
		done:    make(chan struct{}),
		timers:  make(map[*time.Timer]struct{}),
	}
}

// Run processes posted work until ctx is cancelled. Outstanding timers are
// stopped before it returns.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.CancelAll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.actions:
			fn()
		}
	}
}

// Post queues fn to run on the loop. It reports false if the loop has
// stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.actions <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

func (l *Loop) Schedule(delay time.Duration, fn func()) {
	gen := l.gen
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		l.Post(func() {
			delete(l.timers, t)
			// a CancelAll ran between expiry and now
			if gen != l.gen {
				return
			}
			fn()
		})
	})
	l.timers[t] = struct{}{}
}

func (l *Loop) CancelAll() {
	for t := range l.timers {
		t.Stop()
	}
	clear(l.timers)
	l.gen++
}

// Pending is the number of timers that have not fired or been cancelled.
// Loop-only.
func (l *Loop) Pending() int {
	return len(l.timers)
}
