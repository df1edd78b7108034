package model

import "fmt"

type BatchStatus string

const (
	StatusIdle    BatchStatus = "idle"
	StatusRunning BatchStatus = "running"
	StatusPaused  BatchStatus = "paused"
	StatusDone    BatchStatus = "done"
)

// DeriveStatus maps the stored flags onto a BatchStatus. Done is never
// stored; it is Running with every entry processed.
func DeriveStatus(uploading, paused, allProcessed bool) BatchStatus {
	switch {
	case !uploading:
		return StatusIdle
	case paused:
		return StatusPaused
	case allProcessed:
		return StatusDone
	default:
		return StatusRunning
	}
}

// AllProcessed reports whether every entry is processed. An empty list is
// vacuously processed.
func AllProcessed(entries []Entry) bool {
	for _, e := range entries {
		if !e.Processed {
			return false
		}
	}
	return true
}

var allowedTransitions = map[BatchStatus]map[BatchStatus]bool{
	StatusIdle: {
		StatusIdle:    true,
		StatusRunning: true,
		StatusDone:    true, // start on an empty or fully processed batch
	},
	StatusRunning: {
		StatusIdle:    true,
		StatusRunning: true,
		StatusPaused:  true,
		StatusDone:    true,
	},
	StatusPaused: {
		StatusIdle:    true,
		StatusPaused:  true,
		StatusRunning: true,
		StatusDone:    true, // resume with nothing left pending
	},
	StatusDone: {
		StatusIdle:    true,
		StatusDone:    true, // a new pass over a processed batch
		StatusRunning: true, // a duplicate added after completion
	},
}

func IsKnownStatus(status BatchStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to BatchStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func CheckTransition(from, to BatchStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid batch status transition: %q -> %q", from, to)
	}
	return nil
}

// Label is the upload button text for each status.
func (s BatchStatus) Label() string {
	switch s {
	case StatusRunning:
		return "Uploading"
	case StatusPaused:
		return "Paused"
	case StatusDone:
		return "Done"
	default:
		return "Upload"
	}
}
