package ui

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nao7sep/downScale/internal/batch"
	"github.com/nao7sep/downScale/internal/encoder"
	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/preset"
	"github.com/nao7sep/downScale/internal/probe"
	"github.com/nao7sep/downScale/internal/progress"
	"github.com/nao7sep/downScale/internal/util"
	"github.com/nao7sep/downScale/internal/util/format"
	"github.com/nao7sep/downScale/internal/util/media"
)

// Params is everything the TUI needs resolved up front: the interactive
// prompts of the plain flow have no place inside a bubbletea program.
type Params struct {
	Files       []string
	Options     model.RunOptions
	OutDir      string
	Preset      preset.Preset
	FFmpegPath  string
	FFprobePath string
	Log         *slog.Logger
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	params Params

	// Classification
	classified  bool
	classifyErr error
	invalid     int

	// Jobs. One worker: conversions are strictly sequential.
	jobOrder  []string
	jobs      map[string]*jobState
	next      int
	inFlight  bool
	cancelled bool

	// UI
	width, height int
	styles        Styles

	// Internal event channel used by the reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, p Params) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(p.Files))
	order := make([]string, 0, len(p.Files))
	for i, path := range p.Files {
		id := toID(i)
		js := newJobState(id, path, sty)
		jobs[id] = &js
		order = append(order, id)
	}

	return Model{
		ctx:      c,
		cancel:   cancel,
		params:   p,
		jobs:     jobs,
		jobOrder: order,
		styles:   sty,
		eventCh:  make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	// Listen for reporter events
	cmds = append(cmds, m.listenEventsCmd())
	// Kick off classification
	cmds = append(cmds, m.classifyCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancelled = true
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case classifiedMsg:
		m.classified = true
		if msg.Err != nil {
			m.classifyErr = msg.Err
			return m, tea.Quit
		}
		byPath := make(map[string]*jobState, len(m.jobs))
		for _, id := range m.jobOrder {
			js := m.jobs[id]
			byPath[js.file.Path] = js
		}
		for _, c := range msg.Report {
			js, ok := byPath[c.File.Path]
			if !ok {
				continue
			}
			if c.Valid {
				js.file = c.File
				js.status = "Ready"
				continue
			}
			m.invalid++
			js.stage = progress.StageError
			js.status = c.Reason
			js.err = fmt.Errorf("%s", c.Reason)
			js.done = true
		}
		if m.invalid > 0 {
			// One bad file rejects the batch.
			return m, tea.Quit
		}
		return m.startNext()

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			js.status = u.Message
			if u.Bytes != nil {
				js.bytes = *u.Bytes
			}
		}
	case jobLogMsg:
		l := msg.L
		if js, ok := m.jobs[l.JobID]; ok {
			// small ring buffer
			line := strings.TrimRight(l.Line, "\r\n")
			if len(js.logsRing) > 1000 {
				js.logsRing = js.logsRing[1:]
			}
			js.logsRing = append(js.logsRing, line)
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok {
			js.done = true
			js.err = r.Err
			if r.Err == nil {
				js.stage = progress.StageCompleted
				js.percent = 100
				js.outputPath = r.OutputPath
				js.bytes = r.Bytes
				if r.OutputPath != "" {
					name := filepath.Base(r.OutputPath)
					if m.params.Options.DryRun {
						js.status = fmt.Sprintf("Planned: %s", name)
					} else {
						js.status = fmt.Sprintf("Converted: %s (%s)", name, format.HumanizeBytes(r.Bytes))
					}
				} else {
					js.status = "Completed"
				}
			} else {
				js.stage = progress.StageError
				js.status = r.Err.Error()
				js.percent = -1
			}
			m.inFlight = false
			return m.startNext()
		}
	case allDoneMsg:
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	// Keep listening for events
	cmds = append(cmds, m.listenEventsCmd())
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) classifyCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := batch.Classify(m.ctx, m.params.Files, probe.Options{
			FFprobePath: m.params.FFprobePath,
		})
		return classifiedMsg{Report: report, Err: err}
	}
}

// startNext moves the single worker to the next file, or quits when the
// queue is drained. Bookkeeping happens here in Update, never inside a Cmd.
func (m Model) startNext() (tea.Model, tea.Cmd) {
	if m.cancelled || m.next >= len(m.jobOrder) {
		if !m.inFlight {
			return m, func() tea.Msg { return allDoneMsg{} }
		}
		return m, nil
	}

	id := m.jobOrder[m.next]
	js := m.jobs[id]
	js.started = true
	js.stage = progress.StageConverting
	js.status = "Converting"
	m.next++
	m.inFlight = true

	file := js.file
	return m, func() tea.Msg {
		go m.runJob(id, file)
		return nil
	}
}

func (m Model) runJob(jobID string, file model.MediaFile) {
	rep := teaReporter{ch: m.eventCh}

	job := model.ConversionJob{
		File:       file,
		Params:     preset.Parameters(m.params.Preset),
		OutputPath: media.OutputPath(m.params.OutDir, file.Path),
	}
	job.LogPath = media.JobLogPath(job.OutputPath)

	if m.params.Options.DryRun {
		cmd := util.ShellQuote(m.params.FFmpegPath, encoder.BuildConvertArgs(file.Path, job.OutputPath, job.Params))
		m.params.Log.Info("dry run", "cmd", cmd)
		rep.Update(progress.Update{
			JobID:   jobID,
			Stage:   progress.StageCompleted,
			Percent: 100,
			Message: "Would run: " + cmd,
		})
		rep.Result(progress.Result{JobID: jobID, OutputPath: job.OutputPath})
		return
	}

	res, err := encoder.Convert(m.ctx, job, encoder.Options{
		FFmpegPath: m.params.FFmpegPath,
		Reporter:   rep,
		JobID:      jobID,
		Log:        m.params.Log,
		Verbose:    m.params.Options.Verbose,
	})
	if err != nil {
		m.params.Log.Error("conversion failed", "file", file.Path, "error", err.Error())
		rep.Result(progress.Result{JobID: jobID, Err: err})
		return
	}

	m.params.Log.Info("Converted "+filepath.Base(res.OutputPath), "output", res.OutputPath, "bytes", res.Bytes)
	rep.Result(progress.Result{JobID: jobID, OutputPath: res.OutputPath, Bytes: res.Bytes})
}

type teaReporter struct {
	ch chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	// Block on completion messages to ensure they're delivered
	if u.Stage == progress.StageCompleted || u.Stage == progress.StageError {
		r.ch <- jobUpdateMsg{U: u}
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	// Always block on Result messages - they're critical
	r.ch <- jobResultMsg{R: res}
}

func toID(i int) string {
	return "job-" + strconv.Itoa(i)
}
