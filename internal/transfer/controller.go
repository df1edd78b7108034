package transfer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"archive-relay/internal/batch"
	"archive-relay/internal/model"
)

var ErrMissingDestination = errors.New("please choose a destination folder")

// DefaultDelayPerByte simulates roughly 1 MB/s.
const DefaultDelayPerByte = time.Microsecond

type Options struct {
	DelayPerByte time.Duration
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Controller drives the toggle protocol over a batch store. All methods must
// run on the goroutine that owns the Scheduler.
type Controller struct {
	store   *batch.Store
	sched   Scheduler
	perByte time.Duration
	log     zerolog.Logger
}

func NewController(store *batch.Store, sched Scheduler, opts Options) *Controller {
	perByte := opts.DelayPerByte
	if perByte < 0 {
		perByte = DefaultDelayPerByte
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Controller{
		store:   store,
		sched:   sched,
		perByte: perByte,
		log:     log,
	}
}

func (c *Controller) Snapshot() batch.State {
	return c.store.Snapshot()
}

func (c *Controller) Status() model.BatchStatus {
	return c.store.Status()
}

// Delay is the simulated transfer time for an entry of the given size.
func (c *Controller) Delay(size uint64) time.Duration {
	if c.perByte <= 0 || size == 0 {
		return 0
	}
	if size > uint64(math.MaxInt64/int64(c.perByte)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(size) * c.perByte
}

// Load replaces the batch with freshly inspected members and returns to
// Idle. Any in-flight completions are dropped.
func (c *Controller) Load(members []batch.Member) error {
	c.sched.CancelAll()
	st, err := c.store.Dispatch(batch.Load{Members: members})
	if err != nil {
		return err
	}
	c.log.Debug().Int("entries", len(st.Entries)).Uint64("bytes", st.TotalBytes()).Msg("batch loaded")
	return nil
}

func (c *Controller) Rename(index int, name string) error {
	_, err := c.store.Dispatch(batch.Rename{Index: index, Name: name})
	if err != nil {
		return err
	}
	c.log.Debug().Int("index", index).Str("filename", name).Msg("entry renamed")
	return nil
}

// Duplicate appends a copy of the entry at index. A copy added while the
// batch is running is scheduled right away.
func (c *Controller) Duplicate(index int) error {
	st, err := c.store.Dispatch(batch.Duplicate{Index: index})
	if err != nil {
		return err
	}
	clone := st.Entries[len(st.Entries)-1]
	c.log.Debug().Int("index", index).Str("filename", clone.Filename).Msg("entry duplicated")
	if st.Uploading && !st.Paused {
		c.schedule(clone)
	}
	return nil
}

// Toggle is the single start/pause/resume action. Starting requires a
// destination; pause and resume do not.
func (c *Controller) Toggle(destinationChosen bool) (model.BatchStatus, error) {
	from := c.store.Status()
	var err error
	switch from {
	case model.StatusRunning:
		err = c.pause()
	case model.StatusPaused:
		err = c.resume()
	default:
		if !destinationChosen {
			c.log.Warn().Str("status", string(from)).Msg("transfer not started: no destination")
			return from, ErrMissingDestination
		}
		err = c.start()
	}
	if err != nil {
		return c.store.Status(), err
	}

	to := c.store.Status()
	if err := model.CheckTransition(from, to); err != nil {
		return to, err
	}
	c.log.Debug().Str("from", string(from)).Str("to", string(to)).Msg("transfer toggled")
	return to, nil
}

func (c *Controller) start() error {
	c.sched.CancelAll()
	st, err := c.store.Dispatch(batch.Start{})
	if err != nil {
		return fmt.Errorf("start transfer: %w", err)
	}
	c.scheduleAll(st)
	return nil
}

func (c *Controller) pause() error {
	if _, err := c.store.Dispatch(batch.Pause{}); err != nil {
		return fmt.Errorf("pause transfer: %w", err)
	}
	c.sched.CancelAll()
	return nil
}

func (c *Controller) resume() error {
	st, err := c.store.Dispatch(batch.Resume{})
	if err != nil {
		return fmt.Errorf("resume transfer: %w", err)
	}
	c.sched.CancelAll()
	c.scheduleAll(st)
	return nil
}

func (c *Controller) scheduleAll(st batch.State) {
	for _, e := range st.Pending() {
		c.schedule(e)
	}
}

func (c *Controller) schedule(e model.Entry) {
	id := e.ID
	c.sched.Schedule(c.Delay(e.SizeBytes), func() {
		c.complete(id)
	})
}

func (c *Controller) complete(id string) {
	st, err := c.store.Dispatch(batch.Complete{ID: id})
	if err != nil {
		// the batch was replaced after this timer was armed
		c.log.Debug().Err(err).Str("id", id).Msg("completion dropped")
		return
	}
	if idx := st.IndexOf(id); idx >= 0 {
		c.log.Debug().
			Str("filename", st.Entries[idx].Filename).
			Int("processed", st.ProcessedCount()).
			Int("total", len(st.Entries)).
			Msg("entry transferred")
	}
	if st.Status() == model.StatusDone {
		c.log.Info().Int("entries", len(st.Entries)).Uint64("bytes", st.TotalBytes()).Msg("transfer done")
	}
}
