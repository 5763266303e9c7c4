// Package batch orchestrates the whole conversion workflow: validate,
// classify, resolve settings, then convert the files one at a time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nao7sep/downScale/internal/console"
	"github.com/nao7sep/downScale/internal/encoder"
	"github.com/nao7sep/downScale/internal/errs"
	"github.com/nao7sep/downScale/internal/history"
	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/notify"
	"github.com/nao7sep/downScale/internal/preset"
	"github.com/nao7sep/downScale/internal/probe"
	"github.com/nao7sep/downScale/internal/progress"
	"github.com/nao7sep/downScale/internal/prompt"
	"github.com/nao7sep/downScale/internal/util"
	"github.com/nao7sep/downScale/internal/util/format"
	"github.com/nao7sep/downScale/internal/util/media"
)

// ErrClassification is returned when any input file is unusable: one bad
// file rejects the whole batch before anything is converted.
var ErrClassification = errors.New("batch rejected at classification")

// Recorder is the slice of the history store the orchestrator needs.
// Recording is best-effort; failures are logged as warnings and ignored.
type Recorder interface {
	BeginSession(ctx context.Context, id, preset, outDir string) error
	RecordJob(ctx context.Context, j history.Job) error
	FinishSession(ctx context.Context, id string, converted, failed int) error
}

// Summary is the outcome of one batch run.
type Summary struct {
	OutDir    string
	Preset    preset.Preset
	Converted int
	Failed    int
	Planned   int // dry-run only
	Declined  bool
	Cancelled bool
}

// Orchestrator owns the batch state machine.
type Orchestrator struct {
	opts        model.RunOptions
	sessionID   string
	ffmpegPath  string
	ffprobePath string

	runner   util.Runner
	reporter progress.Reporter
	prompter prompt.Prompter
	console  *console.Console
	log      *slog.Logger
	notifier notify.Notifier
	recorder Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunOptions sets the resolved runtime options.
func WithRunOptions(o model.RunOptions) Option {
	return func(b *Orchestrator) { b.opts = o }
}

// WithSessionID sets the id used for history rows. Defaults derive from the
// session log file name in the CLI wiring.
func WithSessionID(id string) Option {
	return func(b *Orchestrator) { b.sessionID = id }
}

// WithEnginePaths sets the located ffmpeg and ffprobe binaries.
func WithEnginePaths(ffmpeg, ffprobe string) Option {
	return func(b *Orchestrator) {
		b.ffmpegPath = ffmpeg
		b.ffprobePath = ffprobe
	}
}

// WithRunner injects a custom command runner (useful for testing).
func WithRunner(r util.Runner) Option {
	return func(b *Orchestrator) { b.runner = r }
}

// WithReporter attaches a progress reporter (plain console or TUI).
func WithReporter(rp progress.Reporter) Option {
	return func(b *Orchestrator) { b.reporter = rp }
}

// WithPrompter injects the interactive input boundary.
func WithPrompter(p prompt.Prompter) Option {
	return func(b *Orchestrator) { b.prompter = p }
}

// WithConsole sets the severity-tagged output renderer.
func WithConsole(c *console.Console) Option {
	return func(b *Orchestrator) { b.console = c }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Orchestrator) { b.log = l }
}

// WithNotifier sets the completion notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(b *Orchestrator) { b.notifier = n }
}

// WithRecorder attaches the history store.
func WithRecorder(r Recorder) Option {
	return func(b *Orchestrator) { b.recorder = r }
}

// New constructs an Orchestrator, applying defaults for missing collaborators.
func New(opts ...Option) *Orchestrator {
	b := &Orchestrator{}
	for _, o := range opts {
		o(b)
	}
	if b.runner == nil {
		b.runner = util.NewDefaultRunner()
	}
	if b.reporter == nil {
		b.reporter = progress.Discard
	}
	if b.log == nil {
		b.log = slog.New(slog.NewTextHandler(nullWriter{}, nil))
	}
	if b.notifier == nil {
		b.notifier = notify.New(false, nil)
	}
	if b.sessionID == "" {
		b.sessionID = "session"
	}
	return b
}

// Run drives the batch end to end. File-scoped failures never escape the
// conversion loop; run-scoped failures abort with a classified error.
func (b *Orchestrator) Run(ctx context.Context, inputs []string) (Summary, error) {
	var sum Summary
	if len(inputs) == 0 {
		return sum, nil
	}

	b.log.Info("starting batch", "files", len(inputs))

	// Validate: probe everything concurrently, report deterministically.
	report, err := Classify(ctx, inputs, probe.Options{
		FFprobePath: b.ffprobePath,
		Runner:      b.runner,
	})
	if err != nil {
		b.log.Error("probing aborted", "error", err.Error())
		return sum, err
	}

	valid, invalid := b.reportClassification(report)
	if invalid > 0 {
		b.log.Error("batch rejected", "invalid", invalid, "total", len(report))
		b.printf(console.Error, "%d of %d files are unusable; nothing was converted.", invalid, len(report))
		return sum, fmt.Errorf("%w: %d unusable file(s)", ErrClassification, invalid)
	}

	outDir, err := b.resolveOutputDir(report)
	if err != nil {
		b.log.Error("output directory rejected", "error", err.Error())
		return sum, err
	}
	sum.OutDir = outDir

	chosen, err := b.selectPreset()
	if err != nil {
		b.log.Error("preset selection failed", "error", err.Error())
		return sum, err
	}
	sum.Preset = chosen
	b.log.Info("batch configured", "out_dir", outDir, "preset", string(chosen))

	// A nil prompter accepts the default, like the other prompt sites.
	if !b.opts.Yes && b.prompter != nil {
		ok, confirmErr := b.prompter.Confirm(fmt.Sprintf("Convert %d file(s) to %s?", len(valid), outDir), true)
		if confirmErr != nil {
			return sum, errs.Wrap(errs.ErrConfiguration, "start confirmation", confirmErr)
		}
		if !ok {
			b.log.Info("conversion declined by user")
			sum.Declined = true
			return sum, nil
		}
	}

	b.recordSessionStart(ctx, chosen, outDir)
	b.convertLoop(ctx, valid, outDir, chosen, &sum)
	b.recordSessionEnd(ctx, sum)

	b.log.Info("batch finished",
		"converted", sum.Converted, "failed", sum.Failed, "cancelled", sum.Cancelled)
	b.notifier.BatchCompleted(sum.Converted, sum.Failed)
	return sum, nil
}

// reportClassification prints every verdict in order and logs it.
func (b *Orchestrator) reportClassification(report []Classification) (valid []model.MediaFile, invalid int) {
	for _, c := range report {
		if c.Valid {
			b.printf(console.Info, "  ok    %s", c.Describe())
			b.log.Info("probed", "file", c.File.Path)
			valid = append(valid, c.File)
			continue
		}
		invalid++
		b.printf(console.Error, "  bad   %s", c.Describe())
		b.log.Warn("unusable input", "file", c.File.Path, "reason", c.Reason)
	}
	return valid, invalid
}

// resolveOutputDir applies the flag value or prompts with a default of
// <dir of first input>/converted. The answer must be absolute; anything
// else aborts the run. There is no retry for this field.
func (b *Orchestrator) resolveOutputDir(report []Classification) (string, error) {
	outDir := b.opts.OutDir
	if outDir == "" {
		def := filepath.Join(filepath.Dir(report[0].File.Path), "converted")
		if b.prompter == nil {
			outDir = def
		} else {
			answer, err := b.prompter.Ask("Output directory", def)
			if err != nil {
				return "", errs.Wrap(errs.ErrConfiguration, "output directory", err)
			}
			outDir = answer
		}
	}
	if !filepath.IsAbs(outDir) {
		return "", errs.Wrap(errs.ErrConfiguration, "output directory must be absolute: "+outDir, nil)
	}
	if err := util.EnsureDir(outDir); err != nil {
		return "", errs.Wrap(errs.ErrConfiguration, "create output directory", err)
	}
	return outDir, nil
}

// selectPreset applies the flag value or runs the numbered menu. The menu
// is the one prompt with an indefinite retry loop.
func (b *Orchestrator) selectPreset() (preset.Preset, error) {
	if b.opts.Preset != "" {
		p, err := preset.Parse(b.opts.Preset)
		if err != nil {
			return "", errs.Wrap(errs.ErrConfiguration, err.Error(), nil)
		}
		return p, nil
	}
	if b.prompter == nil {
		return preset.H264Standard, nil
	}

	all := preset.All()
	for i, p := range all {
		params := preset.Parameters(p)
		b.printf(console.Info, "  %d) %-14s %s crf %d, audio %dk",
			i+1, p, params.Codec, params.QualityFactor, params.AudioBitrateKbps)
	}
	n, err := b.prompter.AskInt("Select preset", 1, len(all))
	if err != nil {
		return "", errs.Wrap(errs.ErrConfiguration, "preset selection", err)
	}
	p, _ := preset.ByIndex(n)
	return p, nil
}

// convertLoop runs the files strictly sequentially: file N+1 never starts
// before file N's conversion returns. Per-file failures are logged and the
// loop continues; once cancellation is signaled no further files start.
func (b *Orchestrator) convertLoop(ctx context.Context, files []model.MediaFile, outDir string, chosen preset.Preset, sum *Summary) {
	params := preset.Parameters(chosen)

	for i, f := range files {
		if ctx.Err() != nil {
			b.log.Warn("cancellation requested; stopping batch", "remaining", len(files)-i)
			sum.Cancelled = true
			return
		}

		jobID := fmt.Sprintf("job-%d", i)
		job := model.ConversionJob{
			File:       f,
			Params:     params,
			OutputPath: media.OutputPath(outDir, f.Path),
			LogPath:    media.JobLogPath(media.OutputPath(outDir, f.Path)),
		}

		if b.opts.DryRun {
			cmd := util.ShellQuote(b.ffmpegPath, encoder.BuildConvertArgs(job.File.Path, job.OutputPath, job.Params))
			b.log.Info("dry run", "cmd", cmd)
			b.printf(console.Info, "Would run: %s", cmd)
			sum.Planned++
			continue
		}

		res, err := encoder.Convert(ctx, job, encoder.Options{
			FFmpegPath: b.ffmpegPath,
			Runner:     b.runner,
			Reporter:   b.reporter,
			JobID:      jobID,
			Log:        b.log,
			Verbose:    b.opts.Verbose,
		})
		if errors.Is(err, context.Canceled) {
			b.log.Warn("conversion cancelled", "file", f.Path)
			sum.Cancelled = true
			return
		}
		if err != nil {
			sum.Failed++
			b.log.Error("conversion failed", "file", f.Path, "error", err.Error())
			b.printf(console.Error, "Failed: %s (%v)", filepath.Base(f.Path), err)
			b.reporter.Result(progress.Result{JobID: jobID, Err: err})
			b.recordJob(ctx, history.Job{
				SessionID: b.sessionID,
				Input:     f.Path,
				Status:    "failed",
				Error:     err.Error(),
			})
			continue
		}

		sum.Converted++
		b.log.Info("Converted "+filepath.Base(res.OutputPath),
			"output", res.OutputPath, "bytes", res.Bytes, "elapsed", res.Elapsed.Round(time.Second).String())
		size := format.HumanizeBytes(res.Bytes)
		if saved := format.Reduction(util.FileSize(f.Path), res.Bytes); saved != "" {
			size += ", " + saved
		}
		b.printf(console.Info, "Converted: %s (%s)", filepath.Base(res.OutputPath), size)
		b.reporter.Result(progress.Result{JobID: jobID, OutputPath: res.OutputPath, Bytes: res.Bytes})
		b.recordJob(ctx, history.Job{
			SessionID: b.sessionID,
			Input:     f.Path,
			Output:    res.OutputPath,
			Bytes:     res.Bytes,
			Elapsed:   res.Elapsed,
			Status:    "converted",
		})
	}
}

func (b *Orchestrator) recordSessionStart(ctx context.Context, chosen preset.Preset, outDir string) {
	if b.recorder == nil || b.opts.DryRun {
		return
	}
	if err := b.recorder.BeginSession(ctx, b.sessionID, string(chosen), outDir); err != nil {
		b.log.Warn("history recording unavailable", "error", err.Error())
		b.recorder = nil
	}
}

func (b *Orchestrator) recordJob(ctx context.Context, j history.Job) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.RecordJob(ctx, j); err != nil {
		b.log.Warn("history job not recorded", "error", err.Error())
	}
}

func (b *Orchestrator) recordSessionEnd(ctx context.Context, sum Summary) {
	if b.recorder == nil || b.opts.DryRun {
		return
	}
	if err := b.recorder.FinishSession(ctx, b.sessionID, sum.Converted, sum.Failed); err != nil {
		b.log.Warn("history session not finalized", "error", err.Error())
	}
}

func (b *Orchestrator) printf(sev console.Severity, format string, args ...any) {
	if b.console == nil {
		return
	}
	b.console.Printf(sev, format, args...)
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
