package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao7sep/downScale/internal/util"
	"github.com/nao7sep/downScale/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose the external engine binaries (ffmpeg, ffprobe)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ffmpeg, ferr := deps.FindFFmpeg(viper.GetString("ffmpeg"))
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			ffprobe, perr := deps.FindFFprobe(viper.GetString("ffprobe"))
			if perr != nil {
				return &ExitError{Code: ExitMissingDep, Err: perr}
			}

			runner := util.NewDefaultRunner()
			rows := [][]string{
				{"ffmpeg", ffmpeg, toolVersion(cmd, runner, ffmpeg)},
				{"ffprobe", ffprobe, toolVersion(cmd, runner, ffprobe)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Path", "Version"}, rows, nil))
			return nil
		},
	}
}

// toolVersion returns the first line of `<tool> -version`, or a short note
// when the binary exists but will not run.
func toolVersion(cmd *cobra.Command, runner util.Runner, path string) string {
	res, err := runner.Run(cmd.Context(), util.CmdSpec{
		Path:          path,
		Args:          []string{"-version"},
		CaptureStdout: true,
	})
	if err != nil {
		return "(failed to run)"
	}
	line := strings.SplitN(string(res.Stdout), "\n", 2)[0]
	return strings.TrimSpace(line)
}
