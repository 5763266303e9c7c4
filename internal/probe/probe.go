// Package probe inspects media files via the engine's read-only metadata
// facility (ffprobe).
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/nao7sep/downScale/internal/errs"
	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/util"
)

// Options controls probing.
type Options struct {
	FFprobePath string
	Runner      util.Runner
}

// InspectArgs returns the argument list for the engine's inspection mode.
func InspectArgs(path string) []string {
	return []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	}
}

// Probe inspects one file. The path must be absolute and the file must
// exist; those violations are errors. An engine that cannot parse the file
// is not an error: the returned MediaFile carries a nil Metadata, because
// unusable files are a classification the caller reports, not a crash.
func Probe(ctx context.Context, path string, opts Options) (model.MediaFile, error) {
	if !filepath.IsAbs(path) {
		return model.MediaFile{}, errs.Wrap(errs.ErrInvalidArgument, "path must be absolute: "+path, nil)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return model.MediaFile{}, errs.Wrap(errs.ErrNotFound, path, nil)
		}
		return model.MediaFile{}, errs.Wrap(errs.ErrNotFound, path, err)
	}
	if opts.FFprobePath == "" {
		return model.MediaFile{}, errs.Wrap(errs.ErrMissingDependency, "ffprobe path is required", nil)
	}

	runner := opts.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}

	res, runErr := runner.Run(ctx, util.CmdSpec{
		Path:          opts.FFprobePath,
		Args:          InspectArgs(path),
		CaptureStdout: true,
	})
	if runErr != nil {
		if ctx.Err() != nil {
			return model.MediaFile{}, ctx.Err()
		}
		// Unsupported container or corruption: soft failure.
		return model.MediaFile{Path: path}, nil
	}

	var parsed result
	if err := json.Unmarshal(res.Stdout, &parsed); err != nil {
		return model.MediaFile{Path: path}, nil
	}
	if len(parsed.Streams) == 0 && parsed.Format.NBStreams == 0 {
		return model.MediaFile{Path: path}, nil
	}

	meta := &model.Metadata{}
	if vs, ok := parsed.firstVideoStream(); ok {
		meta.HasVideoStream = true
		meta.Width = vs.Width
		meta.Height = vs.Height
		meta.PixelFormat = vs.PixFmt
		meta.DurationSec = parsed.durationSeconds(vs)
	} else {
		meta.DurationSec = parsed.durationSeconds(stream{})
	}

	return model.MediaFile{Path: path, Metadata: meta}, nil
}

// IsFileScoped reports whether a probe error concerns only the probed file
// (as opposed to a run-wide problem like a missing engine binary).
func IsFileScoped(err error) bool {
	return errors.Is(err, errs.ErrInvalidArgument) || errors.Is(err, errs.ErrNotFound)
}
