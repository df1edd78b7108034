package transfer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archive-relay/internal/batch"
	"archive-relay/internal/model"
	"archive-relay/internal/naming"
)

func startLoop(t *testing.T) *Loop {
	t.Helper()
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return l
}

func TestLoop_CancelAllBeatsExpiredTimer(t *testing.T) {
	l := startLoop(t)
	var fired atomic.Int32

	require.NoError(t, l.Do(func() {
		l.Schedule(0, func() { fired.Add(1) })
		// let the timer expire and queue its callback behind us
		time.Sleep(20 * time.Millisecond)
		l.CancelAll()
	}))
	require.NoError(t, l.Do(func() {}))
	require.NoError(t, l.Do(func() {}))

	assert.Zero(t, fired.Load())
}

func TestLoop_FiresScheduledCallbacks(t *testing.T) {
	l := startLoop(t)
	var fired atomic.Int32

	require.NoError(t, l.Do(func() {
		l.Schedule(time.Millisecond, func() { fired.Add(1) })
		l.Schedule(2*time.Millisecond, func() { fired.Add(1) })
	}))
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, 5*time.Millisecond)

	var pending int
	require.NoError(t, l.Do(func() { pending = l.Pending() }))
	assert.Zero(t, pending)
}

func TestLoop_StoppedRejectsWork(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(func() {}), ErrLoopStopped)
}

func TestLoop_ControllerScenario(t *testing.T) {
	l := startLoop(t)
	store := batch.NewStore(naming.Options{})
	c := NewController(store, l, Options{DelayPerByte: time.Millisecond})

	var (
		loadErr, startErr, pauseErr error
		started, paused             model.BatchStatus
	)
	require.NoError(t, l.Do(func() {
		loadErr = c.Load([]batch.Member{{Name: "a.zip", Size: 100}, {Name: "b.zip", Size: 150}})
		started, startErr = c.Toggle(true)
		paused, pauseErr = c.Toggle(true)
	}))
	require.NoError(t, loadErr)
	require.NoError(t, startErr)
	require.NoError(t, pauseErr)
	assert.Equal(t, model.StatusRunning, started)
	assert.Equal(t, model.StatusPaused, paused)

	time.Sleep(250 * time.Millisecond)
	assert.Zero(t, store.Snapshot().ProcessedCount())
	assert.Equal(t, model.StatusPaused, store.Status())

	var resumeErr error
	require.NoError(t, l.Do(func() { _, resumeErr = c.Toggle(true) }))
	require.NoError(t, resumeErr)
	require.Eventually(t, func() bool { return store.Status() == model.StatusDone }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, store.Snapshot().ProcessedCount())
}
