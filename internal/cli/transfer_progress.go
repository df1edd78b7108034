package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"archive-relay/internal/batch"
	"archive-relay/internal/model"
)

// transferReporter renders batch snapshots for the headless transfer command.
// Calls come from a single goroutine.
type transferReporter interface {
	Start(st batch.State)
	Update(st batch.State)
	Finish(st batch.State)
}

func newTransferReporter(stdout, stderr io.Writer, asJSON, compact bool) transferReporter {
	switch {
	case asJSON:
		return quietReporter{}
	case compact:
		return &barReporter{out: stderr}
	case stderrIsTTY():
		return newMPBReporter(stderr)
	default:
		return newLineReporter(stdout)
	}
}

type quietReporter struct{}

func (quietReporter) Start(batch.State)  {}
func (quietReporter) Update(batch.State) {}
func (quietReporter) Finish(batch.State) {}

// lineReporter prints one line per processed entry and per status change.
type lineReporter struct {
	out    io.Writer
	seen   map[string]bool
	status model.BatchStatus
}

func newLineReporter(out io.Writer) *lineReporter {
	return &lineReporter{out: out, seen: map[string]bool{}}
}

func (r *lineReporter) Start(st batch.State) {
	r.status = st.Status()
	fmt.Fprintf(r.out, "%s %d files (%s)\n", r.status.Label(), len(st.Entries), formatBytes(st.TotalBytes()))
}

func (r *lineReporter) Update(st batch.State) {
	done := 0
	for _, e := range st.Entries {
		if !e.Processed {
			continue
		}
		done++
		if r.seen[e.ID] {
			continue
		}
		r.seen[e.ID] = true
		fmt.Fprintf(r.out, "[%d/%d] ✓ %s (%s)\n", done, len(st.Entries), e.Filename, formatBytes(e.SizeBytes))
	}
	if status := st.Status(); status != r.status {
		r.status = status
		if status == model.StatusPaused || status == model.StatusRunning {
			fmt.Fprintf(r.out, "%s\n", status.Label())
		}
	}
}

func (r *lineReporter) Finish(st batch.State) {
	r.Update(st)
}

// barReporter is a single overall byte bar.
type barReporter struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	total int64
}

func (r *barReporter) Start(st batch.State) {
	r.total = clampBytes(st.TotalBytes())
	limit := r.total
	if limit <= 0 {
		limit = 1
	}
	r.bar = progressbar.NewOptions64(limit,
		progressbar.OptionSetDescription(model.StatusRunning.Label()),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(r.out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (r *barReporter) Update(st batch.State) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(fmt.Sprintf("%s %d/%d", st.Status().Label(), st.ProcessedCount(), len(st.Entries)))
	_ = r.bar.Set64(min(clampBytes(st.ProcessedBytes()), r.bar.GetMax64()))
}

func (r *barReporter) Finish(st batch.State) {
	if r.bar == nil {
		return
	}
	r.Update(st)
	if st.Status() == model.StatusDone {
		_ = r.bar.Finish()
		return
	}
	_ = r.bar.Exit()
}

// mpbReporter draws one bar per entry. Entries finish in a single step so
// each bar jumps from empty to full.
type mpbReporter struct {
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
	status   model.BatchStatus
}

func newMPBReporter(out io.Writer) *mpbReporter {
	return &mpbReporter{
		progress: mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(150*time.Millisecond),
			mpb.WithWidth(80),
		),
		bars: map[string]*mpb.Bar{},
	}
}

func (r *mpbReporter) Start(st batch.State) {
	r.status = st.Status()
	for i, e := range st.Entries {
		label := fmt.Sprintf("[%d/%d] %s", i+1, len(st.Entries), truncateRunes(e.Filename, 40))
		r.bars[e.ID] = r.progress.New(clampBytes(e.SizeBytes),
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(label, decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.OnComplete(decor.Name("queued", decor.WCSyncSpace), "✓"),
			),
		)
	}
}

func (r *mpbReporter) Update(st batch.State) {
	for _, e := range st.Entries {
		bar, ok := r.bars[e.ID]
		if !ok || !e.Processed || bar.Completed() {
			continue
		}
		size := clampBytes(e.SizeBytes)
		bar.SetCurrent(size)
		bar.SetTotal(size, true)
	}
	if status := st.Status(); status != r.status {
		r.status = status
		if status == model.StatusPaused || status == model.StatusRunning {
			_, _ = r.progress.Write([]byte(status.Label() + "\n"))
		}
	}
}

func (r *mpbReporter) Finish(st batch.State) {
	r.Update(st)
	for _, bar := range r.bars {
		if !bar.Completed() {
			bar.Abort(false)
		}
	}
	r.progress.Wait()
}

func clampBytes(n uint64) int64 {
	if n > uint64(1<<63-1) {
		return 1<<63 - 1
	}
	return int64(n)
}
