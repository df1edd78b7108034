// Package transfer simulates moving batch entries to a destination. Each
// unprocessed entry gets one deferred completion whose delay is proportional
// to its size; pausing cancels every pending completion at once.
package transfer

import "time"

// Scheduler registers deferred callbacks. Implementations run callbacks on
// the same goroutine that calls Schedule and CancelAll, and guarantee that
// no callback runs once CancelAll has returned.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
	CancelAll()
}
