package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"archive-relay/internal/archive"
	"archive-relay/internal/batch"
	"archive-relay/internal/destination"
	"archive-relay/internal/logging"
	"archive-relay/internal/model"
	"archive-relay/internal/transfer"
)

const transferPollInterval = 100 * time.Millisecond

func newTransferCommand(flags *globalFlags) *cobra.Command {
	var (
		dest    string
		compact bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "transfer <archive>",
		Short: "relay every file of an archive to a destination folder (simulated)",
		Long: strings.Join([]string{
			"relay every file of an archive to a destination folder (simulated)",
			"",
			"Type p and press Enter to pause; do it again to resume.",
		}, "\n"),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(flags)
			if err != nil {
				return err
			}
			log, closer, err := s.logger(logging.ModeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()
			if err := s.resolveDestination(dest, log); err != nil {
				return err
			}

			members, format, err := archive.InspectFile(args[0])
			if err != nil {
				return err
			}
			log.Debug().Str("archive", args[0]).Str("format", string(format)).Int("members", len(members)).Msg("archive inspected")

			reporter := newTransferReporter(cmd.OutOrStdout(), cmd.ErrOrStderr(), asJSON, compact)
			st, err := runTransfer(cmd.Context(), transferJob{
				members:     toBatchMembers(members),
				settings:    s,
				log:         log,
				input:       cmd.InOrStdin(),
				reporter:    reporter,
				destination: s.destination,
			})
			if err != nil {
				return err
			}

			summary := st.Summary()
			summary.Archive = args[0]
			summary.Destination = s.destination.Path
			if asJSON {
				return printJSON(cmd.OutOrStdout(), summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d files, %s relayed to %s\n",
				model.BatchStatus(summary.Status).Label(), summary.Processed, summary.Total,
				formatBytes(summary.ProcessedBytes), s.destination.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "destination folder (overrides destination.default)")
	cmd.Flags().BoolVar(&compact, "compact", false, "single overall progress bar instead of one per file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a machine-readable summary and no progress")
	return cmd
}

type transferJob struct {
	members     []batch.Member
	settings    settings
	log         zerolog.Logger
	input       io.Reader
	reporter    transferReporter
	destination destination.Destination
}

// runTransfer drives one batch on a dedicated event loop until every entry
// is processed or ctx is cancelled. The caller's goroutine only polls
// snapshots.
func runTransfer(parent context.Context, job transferJob) (batch.State, error) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	loop := transfer.NewLoop()
	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(loopCtx) }()
	defer func() {
		cancelLoop()
		<-loopDone
	}()

	store := batch.NewStore(job.settings.naming)
	ctrl := transfer.NewController(store, loop, transfer.Options{
		DelayPerByte: job.settings.delayPerByte,
		Logger:       &job.log,
	})

	var startErr error
	if err := loop.Do(func() {
		if startErr = ctrl.Load(job.members); startErr != nil {
			return
		}
		_, startErr = ctrl.Toggle(job.destination.Chosen())
	}); err != nil {
		return store.Snapshot(), err
	}
	if startErr != nil {
		return store.Snapshot(), startErr
	}
	job.log.Info().
		Int("files", len(job.members)).
		Str("destination", job.destination.Path).
		Dur("delay_per_byte", job.settings.delayPerByte).
		Msg("transfer started")

	if job.input != nil {
		go watchToggleInput(job.input, loop, ctrl, job.destination, job.log)
	}

	job.reporter.Start(store.Snapshot())
	ticker := time.NewTicker(transferPollInterval)
	defer ticker.Stop()
	var last uint64
	for {
		v := store.Version()
		st := store.Snapshot()
		if v != last {
			last = v
			job.reporter.Update(st)
		}
		if st.Status() == model.StatusDone {
			job.reporter.Finish(st)
			return st, nil
		}
		select {
		case <-ctx.Done():
			st = store.Snapshot()
			job.reporter.Finish(st)
			return st, fmt.Errorf("transfer interrupted after %d/%d files: %w", st.ProcessedCount(), len(st.Entries), ctx.Err())
		case <-ticker.C:
		}
	}
}

// watchToggleInput toggles pause/resume for every "p" line read from r.
func watchToggleInput(r io.Reader, loop *transfer.Loop, ctrl *transfer.Controller, dest destination.Destination, log zerolog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "p", "pause", "resume", "space":
		default:
			continue
		}
		posted := loop.Post(func() {
			status, err := ctrl.Toggle(dest.Chosen())
			if err != nil {
				log.Warn().Err(err).Msg("toggle rejected")
				return
			}
			log.Info().Str("status", string(status)).Msg("transfer toggled")
		})
		if !posted {
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Msg("stopped reading toggle input")
	}
}

func toBatchMembers(members []archive.Member) []batch.Member {
	out := make([]batch.Member, 0, len(members))
	for _, m := range members {
		out = append(out, batch.Member{Name: m.Name, Size: m.UncompressedSize})
	}
	return out
}
