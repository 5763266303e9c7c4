package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao7sep/downScale/internal/batch"
	"github.com/nao7sep/downScale/internal/console"
	"github.com/nao7sep/downScale/internal/dirs"
	"github.com/nao7sep/downScale/internal/errs"
	"github.com/nao7sep/downScale/internal/history"
	"github.com/nao7sep/downScale/internal/logging"
	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/notify"
	"github.com/nao7sep/downScale/internal/preset"
	"github.com/nao7sep/downScale/internal/prompt"
	"github.com/nao7sep/downScale/internal/ui"
	"github.com/nao7sep/downScale/internal/util/deps"
)

type runMode struct {
	ForceTUI bool
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run [files...]",
		Short:         "Validate and convert a batch of video files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, args, runMode{})
		},
	}
	// Bind same flags as root for explicit subcommand usage
	bindRunFlags(cmd.Flags())
	return cmd
}

type runInputs struct {
	Files   []string
	Options model.RunOptions
}

// assembleRunInputs resolves every setting with flag > env > config > default
// precedence (viper owns the persistent ones) and normalizes the file list
// to absolute paths.
func assembleRunInputs(cmd *cobra.Command, args []string) (runInputs, error) {
	outDir := viper.GetString("out_dir")
	if outDir != "" {
		abs, err := filepath.Abs(outDir)
		if err != nil {
			return runInputs{}, fmt.Errorf("resolve output dir: %w", err)
		}
		outDir = abs
	}

	tag := viper.GetString("preset")
	if tag != "" {
		if _, err := preset.Parse(tag); err != nil {
			return runInputs{}, err
		}
	}

	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	files := make([]string, 0, len(args))
	for _, raw := range args {
		abs, err := filepath.Abs(raw)
		if err != nil {
			return runInputs{}, fmt.Errorf("resolve %q: %w", raw, err)
		}
		files = append(files, abs)
	}

	opts := model.RunOptions{
		OutDir:      outDir,
		Preset:      tag,
		Yes:         yes,
		DryRun:      dryRun,
		Chime:       viper.GetBool("chime"),
		History:     viper.GetBool("history"),
		Verbose:     viper.GetBool("verbose"),
		LogDir:      viper.GetString("log_dir"),
		FFmpegPath:  viper.GetString("ffmpeg"),
		FFprobePath: viper.GetString("ffprobe"),
	}
	return runInputs{Files: files, Options: opts}, nil
}

func runExecute(cmd *cobra.Command, args []string, mode runMode) error {
	in, err := assembleRunInputs(cmd, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	opts := in.Options

	ffmpegPath, err := deps.FindFFmpeg(opts.FFmpegPath)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	ffprobePath, err := deps.FindFFprobe(opts.FFprobePath)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}

	logDir := opts.LogDir
	if logDir == "" {
		logDir, err = dirs.DefaultLogDir()
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("resolve log dir: %w", err)}
		}
	}
	var mirror io.Writer
	if opts.Verbose {
		mirror = os.Stderr
	}
	session, err := logging.NewSession(logDir, mirror)
	if err != nil {
		return &ExitError{Code: ExitConfigError, Err: err}
	}
	defer func() { _ = session.Close() }()
	sessionID := strings.TrimSuffix(filepath.Base(session.Path), ".log")

	if mode.ForceTUI {
		return runTUI(cmd, in, session, ffmpegPath, ffprobePath)
	}

	cons := console.New(os.Stdout)

	var recorder batch.Recorder
	if opts.History && !opts.DryRun {
		rec, closeRec := openRecorder(session.Logger)
		defer closeRec()
		recorder = rec
	}

	orch := batch.New(
		batch.WithRunOptions(opts),
		batch.WithSessionID(sessionID),
		batch.WithEnginePaths(ffmpegPath, ffprobePath),
		batch.WithReporter(cons.NewReporter(opts.Verbose)),
		batch.WithPrompter(prompt.New(os.Stdin, os.Stdout)),
		batch.WithConsole(cons),
		batch.WithLogger(session.Logger),
		batch.WithNotifier(notify.New(opts.Chime && cons.IsTerminal(), cons.Out())),
		batch.WithRecorder(recorder),
	)

	sum, err := orch.Run(cmd.Context(), in.Files)
	if err != nil {
		return exitFor(err)
	}
	return report(cons, sum)
}

// openRecorder opens the history store, warning instead of failing when the
// database (or its directory) is unavailable. The returned cleanup is always
// safe to call.
func openRecorder(log *slog.Logger) (batch.Recorder, func()) {
	noop := func() {}
	dbPath, err := dirs.HistoryDBPath()
	if err != nil {
		log.Warn("history database unavailable", "error", err.Error())
		return nil, noop
	}
	store, err := history.Open(dbPath)
	if err != nil {
		log.Warn("history database unavailable", "error", err.Error())
		return nil, noop
	}
	return store, func() { _ = store.Close() }
}

func runTUI(cmd *cobra.Command, in runInputs, session *logging.Session, ffmpegPath, ffprobePath string) error {
	opts := in.Options

	// The TUI has no prompt step; fall back to the plain flow's defaults.
	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(in.Files[0]), "converted")
	}
	chosen := preset.H264Standard
	if opts.Preset != "" {
		p, err := preset.Parse(opts.Preset)
		if err != nil {
			return &ExitError{Code: ExitConfigError, Err: err}
		}
		chosen = p
	}
	if err := dirs.Ensure(outDir); err != nil {
		return &ExitError{Code: ExitConfigError, Err: fmt.Errorf("create output dir: %w", err)}
	}

	sum, err := ui.Run(cmd.Context(), ui.Params{
		Files:       in.Files,
		Options:     opts,
		OutDir:      outDir,
		Preset:      chosen,
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Log:         session.Logger,
	})
	if err != nil {
		return exitFor(err)
	}
	return report(console.New(os.Stdout), sum)
}

// exitFor maps a run-scoped error to its process exit code.
func exitFor(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: ExitCancelled, Err: err}
	case errors.Is(err, batch.ErrClassification):
		return &ExitError{Code: ExitUnusableInput, Err: err}
	case errors.Is(err, errs.ErrConfiguration):
		return &ExitError{Code: ExitConfigError, Err: err}
	case errors.Is(err, errs.ErrMissingDependency):
		return &ExitError{Code: ExitMissingDep, Err: err}
	default:
		return &ExitError{Code: ExitCLIError, Err: err}
	}
}

// report prints the closing line and maps the summary to an exit code.
func report(cons *console.Console, sum batch.Summary) error {
	switch {
	case sum.Cancelled:
		cons.Printf(console.Warning, "Cancelled after %d conversion(s).", sum.Converted)
		return &ExitError{Code: ExitCancelled}
	case sum.Failed > 0:
		cons.Printf(console.Error, "%d of %d conversion(s) failed.", sum.Failed, sum.Converted+sum.Failed)
		return &ExitError{Code: ExitJobsFailed, Err: fmt.Errorf("%d conversion(s) failed", sum.Failed)}
	case sum.Declined:
		cons.Print(console.Info, "Nothing converted.")
		return nil
	case sum.Planned > 0:
		cons.Printf(console.Info, "Planned %d conversion(s); nothing executed.", sum.Planned)
		return nil
	default:
		cons.Printf(console.Info, "Converted %d file(s) to %s.", sum.Converted, sum.OutDir)
		return nil
	}
}
