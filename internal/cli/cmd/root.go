package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao7sep/downScale/internal/config"
)

const (
	ExitOK            = 0
	ExitCLIError      = 1
	ExitMissingDep    = 2
	ExitConfigError   = 3
	ExitUnusableInput = 4
	ExitJobsFailed    = 5
	ExitCancelled     = 6
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "downscale [files...]",
		Short:         "Batch-transcode videos into space-saving archival copies",
		Long:          "downScale validates a batch of video files, asks where the converted copies should go and how hard to squeeze them, then runs the conversions one by one. Resolution is capped at 1920 pixels on the long side; one broken input rejects the whole batch before anything is written.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation is a help request, not an error.
			if len(args) == 0 {
				return cmd.Help()
			}
			return runExecute(cmd, args, runMode{})
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().StringP("out-dir", "o", "", "Output directory (prompted when omitted)")
	root.PersistentFlags().StringP("preset", "p", "", "Conversion preset (menu shown when omitted)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Mirror the session log and engine output to the console")
	root.PersistentFlags().Bool("chime", false, "Ring the terminal bell when the batch finishes")
	root.PersistentFlags().Bool("history", true, "Record sessions in the local history database")
	root.PersistentFlags().String("log-dir", "", "Directory for session logs (defaults to the state dir)")
	root.PersistentFlags().String("ffmpeg", "", "Path to the ffmpeg binary")
	root.PersistentFlags().String("ffprobe", "", "Path to the ffprobe binary")

	// Also bind run-specific flags on root, so `downscale <files...>` works
	// without the explicit subcommand.
	bindRunFlags(root.Flags())

	// Subcommands
	root.AddCommand(newRunCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newPresetsCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.BoolP("yes", "y", false, "Skip the start confirmation")
	fs.Bool("dry-run", false, "Print the engine commands without executing them")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	_ = config.Init(root)
	return root.ExecuteContext(ctx)
}
