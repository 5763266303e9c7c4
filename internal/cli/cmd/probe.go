package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao7sep/downScale/internal/batch"
	"github.com/nao7sep/downScale/internal/probe"
	"github.com/nao7sep/downScale/internal/util/deps"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "probe [files...]",
		Short:         "Inspect inputs and report which are convertible, without converting",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ffprobePath, err := deps.FindFFprobe(viper.GetString("ffprobe"))
			if err != nil {
				return &ExitError{Code: ExitMissingDep, Err: err}
			}

			files := make([]string, 0, len(args))
			for _, raw := range args {
				abs, aerr := filepath.Abs(raw)
				if aerr != nil {
					return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("resolve %q: %w", raw, aerr)}
				}
				files = append(files, abs)
			}

			report, err := batch.Classify(cmd.Context(), files, probe.Options{FFprobePath: ffprobePath})
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			rows := make([][]string, 0, len(report))
			invalid := 0
			for _, c := range report {
				verdict := "ok"
				details := ""
				if c.Valid {
					m := c.File.Metadata
					details = fmt.Sprintf("%dx%d %s", m.Width, m.Height, m.PixelFormat)
					if m.DurationSec > 0 {
						details += fmt.Sprintf(" %.1fs", m.DurationSec)
					}
				} else {
					verdict = "unusable"
					details = c.Reason
					invalid++
				}
				rows = append(rows, []string{c.File.Path, verdict, details})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"File", "Verdict", "Details"}, rows, nil))

			if invalid > 0 {
				return &ExitError{Code: ExitUnusableInput, Err: fmt.Errorf("%d of %d files are unusable", invalid, len(report))}
			}
			return nil
		},
	}
}
