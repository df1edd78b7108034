package cli

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"archive-relay/internal/config"
	"archive-relay/internal/destination"
	"archive-relay/internal/logging"
	"archive-relay/internal/naming"
)

// Run executes the CLI with os.Args-style arguments (without the program
// name).
func Run(args []string) error {
	return runWithIO(args, os.Stdin, os.Stdout, os.Stderr)
}

func runWithIO(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCommand(stdin)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

type globalFlags struct {
	configPath   string
	logLevel     string
	logFile      string
	delayPerByte string
	legacySplit  bool
}

func newRootCommand(stdin io.Reader) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "archive-relay",
		Short: "archive-relay: inspect an archive and relay its files to a destination folder",
		Long: strings.Join([]string{
			"archive-relay: inspect an archive and relay its files to a destination folder",
			"",
			"The relay is simulated: every file takes size x delay-per-byte to complete,",
			"and the whole batch can be paused and resumed.",
		}, "\n"),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", config.DefaultConfigPath, "settings file path")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level override (trace|debug|info|warn|error)")
	pf.StringVar(&flags.logFile, "log-file", "", "append logs to this file")
	pf.StringVar(&flags.delayPerByte, "delay-per-byte", "", "simulated transfer delay per byte, e.g. 1us (overrides config)")
	pf.BoolVar(&flags.legacySplit, "legacy-split", false, "split duplicate names at the first period")

	root.AddCommand(
		newInspectCommand(flags),
		newTransferCommand(flags),
		newUICommand(flags),
		newConfigCommand(flags),
	)
	return root
}

// settings is the effective configuration after flags are applied.
type settings struct {
	configPath   string
	cfg          config.Config
	delayPerByte time.Duration
	naming       naming.Options
	destination  destination.Destination
}

func loadSettings(flags *globalFlags) (settings, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return settings{}, err
	}
	if lvl := strings.TrimSpace(flags.logLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	if f := strings.TrimSpace(flags.logFile); f != "" {
		cfg.Log.File = f
	}
	cfg = config.Normalize(cfg)

	delay := cfg.DelayPerByte()
	if strings.TrimSpace(flags.delayPerByte) != "" {
		delay, err = config.ParseDelayPerByte(flags.delayPerByte)
		if err != nil {
			return settings{}, err
		}
	}

	return settings{
		configPath:   flags.configPath,
		cfg:          cfg,
		delayPerByte: delay,
		naming:       naming.Options{LegacySplit: cfg.Naming.LegacySplit || flags.legacySplit},
	}, nil
}

// resolveDestination applies --dest or the configured default. An explicit
// flag must resolve; a stale default is logged and left unchosen so the user
// can pick another folder.
func (s *settings) resolveDestination(flagValue string, log zerolog.Logger) error {
	if p := strings.TrimSpace(flagValue); p != "" {
		dest, err := destination.Resolve(p)
		if err != nil {
			return err
		}
		s.destination = dest
		return nil
	}
	p := s.cfg.Destination.Default
	if p == "" {
		return nil
	}
	dest, err := destination.Resolve(p)
	if err != nil {
		log.Warn().Err(err).Str("config", s.configPath).Msg("configured destination ignored")
		return nil
	}
	s.destination = dest
	return nil
}

func (s settings) logger(mode logging.Mode, w io.Writer) (zerolog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Mode:   mode,
		Writer: w,
		Level:  s.cfg.Log.Level,
		File:   s.cfg.Log.File,
	})
}
