// Package encoder drives one external transcoding process per job and
// observes its progress and diagnostic streams.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao7sep/downScale/internal/errs"
	"github.com/nao7sep/downScale/internal/logging"
	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/progress"
	"github.com/nao7sep/downScale/internal/util"
)

// Options control engine execution for one conversion.
type Options struct {
	FFmpegPath string
	Runner     util.Runner
	Reporter   progress.Reporter
	JobID      string
	Log        *slog.Logger // session logger; required
	Verbose    bool
}

// Convert runs the engine against one job. The per-job diagnostic sink is
// opened here and closed on every exit path. Failures carry the file
// identity; the caller decides whether the batch continues.
func Convert(ctx context.Context, job model.ConversionJob, opts Options) (model.JobResult, error) {
	// An already-signaled cancellation does no work at all.
	if err := ctx.Err(); err != nil {
		return model.JobResult{}, err
	}

	if opts.FFmpegPath == "" {
		return model.JobResult{}, errs.Wrap(errs.ErrMissingDependency, "ffmpeg path is required", nil)
	}
	if job.File.Metadata == nil || !job.File.Metadata.HasVideoStream {
		return model.JobResult{}, errs.Wrap(errs.ErrNoVideoStream, job.File.Path, nil)
	}

	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.Discard
	}

	if err := util.EnsureDir(filepath.Dir(job.OutputPath)); err != nil {
		return model.JobResult{}, errs.Wrap(errs.ErrConfiguration, "ensure output dir", err)
	}

	jobSink, err := logging.OpenSink(job.LogPath)
	if err != nil {
		return model.JobResult{}, errs.Wrap(errs.ErrEngineExecution, job.File.Path, err)
	}
	defer jobSink.Close()

	args := BuildConvertArgs(job.File.Path, job.OutputPath, job.Params)

	// The fully assembled command goes to the session log before execution,
	// so a failed run can be reproduced by hand.
	opts.Log.Info("running engine", "cmd", util.ShellQuote(opts.FFmpegPath, args))

	durationSec := job.File.Metadata.DurationSec
	ps := &ProgressState{}

	// Remember whether the output already existed: a failed run must not
	// take a file it didn't create down with it.
	_, preStatErr := os.Stat(job.OutputPath)
	preexisted := preStatErr == nil

	started := time.Now()
	_, runErr := runner.Run(ctx, util.CmdSpec{
		Path: opts.FFmpegPath,
		Args: args,
		StdoutLine: func(line string) {
			if u, ok := ps.UpdateFromLine(line, opts.JobID, durationSec); ok {
				reporter.Update(u)
			}
		},
		StderrLine: func(line string) {
			if line == "" {
				return
			}
			jobSink.WriteLine(line)
			reporter.Log(progress.Log{JobID: opts.JobID, Stream: progress.StreamStderr, Line: line})
		},
		Verbose: opts.Verbose,
	})
	elapsed := time.Since(started)

	if runErr != nil {
		if !preexisted {
			_ = util.RemoveIfExists(job.OutputPath)
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return model.JobResult{}, ctxErr
		}
		return model.JobResult{}, errs.Wrap(errs.ErrEngineExecution, job.File.Path, runErr)
	}

	fi, statErr := os.Stat(job.OutputPath)
	if statErr != nil {
		return model.JobResult{}, errs.Wrap(errs.ErrEngineExecution, job.File.Path, fmt.Errorf("stat output: %w", statErr))
	}

	return model.JobResult{
		OutputPath: job.OutputPath,
		Bytes:      fi.Size(),
		Elapsed:    elapsed,
	}, nil
}
