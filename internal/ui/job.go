package ui

import (
	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/progress"
)

type jobState struct {
	id     string
	file   model.MediaFile
	stage  progress.Stage
	status string
	err    error
	done   bool

	outputPath string
	bytes      int64
	percent    float64 // -1 means unknown

	spinner spinner.Model
	bar     bubblesprogress.Model

	started bool

	// Recent engine diagnostics (kept small)
	logsRing []string
}

func newJobState(id, path string, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      id,
		file:    model.MediaFile{Path: path},
		stage:   progress.StageProbing,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}
