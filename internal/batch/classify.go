package batch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/probe"
)

// Classification is the probe verdict for one input file.
type Classification struct {
	File   model.MediaFile
	Valid  bool
	Reason string // why the file is unusable; empty when valid
}

// Classify probes every input concurrently and returns the verdicts sorted
// case-insensitively by path, so reports are deterministic regardless of
// probe completion order. Probing is read-only and the files are
// independent, so the fan-out is unbounded.
func Classify(ctx context.Context, paths []string, opts probe.Options) ([]Classification, error) {
	out := make([]Classification, len(paths))
	errors := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			mf, err := probe.Probe(ctx, p, opts)
			if err != nil {
				if probe.IsFileScoped(err) {
					out[i] = Classification{
						File:   model.MediaFile{Path: p},
						Reason: err.Error(),
					}
					return
				}
				errors[i] = err
				return
			}
			out[i] = classify(mf)
		}(i, p)
	}
	wg.Wait()

	for _, err := range errors {
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].File.Path) < strings.ToLower(out[j].File.Path)
	})
	return out, nil
}

func classify(mf model.MediaFile) Classification {
	switch {
	case mf.Metadata == nil:
		return Classification{File: mf, Reason: "not a readable media file"}
	case !mf.Metadata.HasVideoStream:
		return Classification{File: mf, Reason: "no video stream"}
	default:
		return Classification{File: mf, Valid: true}
	}
}

// Describe renders a one-line summary of a classification for reports.
func (c Classification) Describe() string {
	if !c.Valid {
		return fmt.Sprintf("%s: %s", c.File.Path, c.Reason)
	}
	m := c.File.Metadata
	desc := fmt.Sprintf("%s: %dx%d %s", c.File.Path, m.Width, m.Height, m.PixelFormat)
	if m.DurationSec > 0 {
		desc += fmt.Sprintf(" %.1fs", m.DurationSec)
	}
	return desc
}
