// Package ui is the optional bubbletea front end for the conversion
// workflow. It replaces the terminal prompts with resolved Params, so the
// caller decides output directory and preset before the program starts.
package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nao7sep/downScale/internal/batch"
)

// Run launches the TUI and drives the whole batch. The returned summary
// mirrors the plain flow's, so the caller maps exit codes the same way.
func Run(ctx context.Context, p Params) (batch.Summary, error) {
	m := NewModel(ctx, p)
	// Releases the event listener even when the program ends without a
	// quit keypress.
	defer m.cancel()
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return batch.Summary{}, err
	}

	fm, ok := final.(Model)
	if !ok {
		return batch.Summary{}, fmt.Errorf("unexpected final model %T", final)
	}
	if fm.classifyErr != nil {
		return batch.Summary{}, fm.classifyErr
	}
	if fm.invalid > 0 {
		return batch.Summary{}, fmt.Errorf("%w: %d unusable file(s)", batch.ErrClassification, fm.invalid)
	}

	sum := batch.Summary{OutDir: p.OutDir, Preset: p.Preset, Cancelled: fm.cancelled}
	for _, id := range fm.jobOrder {
		js := fm.jobs[id]
		switch {
		case js.done && js.err != nil:
			sum.Failed++
		case js.done && p.Options.DryRun:
			sum.Planned++
		case js.done:
			sum.Converted++
		}
	}
	return sum, nil
}
