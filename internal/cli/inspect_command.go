package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"archive-relay/internal/archive"
	"archive-relay/internal/logging"
)

type inspectResult struct {
	Archive    string           `json:"archive"`
	Format     archive.Format   `json:"format"`
	Total      int              `json:"total"`
	TotalBytes uint64           `json:"total_bytes"`
	Members    []archive.Member `json:"members"`
}

func newInspectCommand(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "list the files inside an archive",
		Args:  cobra.ExactArgs(1),
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

			members, format, err := archive.InspectFile(args[0])
			if err != nil {
				return err
			}
			log.Debug().Str("archive", args[0]).Str("format", string(format)).Int("members", len(members)).Msg("archive inspected")

			res := inspectResult{
				Archive: args[0],
				Format:  format,
				Total:   len(members),
				Members: members,
			}
			for _, m := range members {
				res.TotalBytes += m.UncompressedSize
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s): %d files, %s\n", res.Archive, res.Format, res.Total, formatBytes(res.TotalBytes))
			width := len(strconv.Itoa(len(members)))
			for i, m := range members {
				fmt.Fprintf(out, "  %*d  %10s  %s\n", width, i+1, formatBytes(m.UncompressedSize), m.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")
	return cmd
}
