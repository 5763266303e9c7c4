package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/nao7sep/downScale/internal/console"
	"github.com/nao7sep/downScale/internal/logging"
	"github.com/nao7sep/downScale/internal/model"
	"github.com/nao7sep/downScale/internal/preset"
	"github.com/nao7sep/downScale/internal/probe"
	"github.com/nao7sep/downScale/internal/progress"
	"github.com/nao7sep/downScale/internal/util"
)

const (
	testFFmpeg  = "/usr/bin/ffmpeg"
	testFFprobe = "/usr/bin/ffprobe"
)

// fakeRunner simulates both engine binaries. Probe verdicts and per-file
// conversion failures are configured by input path.
type fakeRunner struct {
	mu          sync.Mutex
	probeJSON   map[string]string // path -> inspection JSON; missing = unparseable
	failConvert map[string]bool   // input path -> non-zero exit
	converted   []string          // input paths in launch order
	convertArgs [][]string
	afterRun    func(input string) // hook fired after each conversion
}

func (f *fakeRunner) Run(_ context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	switch spec.Path {
	case testFFprobe:
		path := spec.Args[len(spec.Args)-1]
		f.mu.Lock()
		out, ok := f.probeJSON[path]
		f.mu.Unlock()
		if !ok {
			return util.CmdResult{Code: 1}, errors.New("command failed (exit 1)")
		}
		return util.CmdResult{Stdout: []byte(out), Code: 0}, nil

	case testFFmpeg:
		input := argAfter(spec.Args, "-i")
		f.mu.Lock()
		f.converted = append(f.converted, input)
		f.convertArgs = append(f.convertArgs, spec.Args)
		fail := f.failConvert[input]
		hook := f.afterRun
		f.mu.Unlock()

		if fail {
			if hook != nil {
				hook(input)
			}
			return util.CmdResult{Code: 1}, errors.New("command failed (exit 1)")
		}
		outputPath := spec.Args[len(spec.Args)-1]
		if err := os.WriteFile(outputPath, make([]byte, 1024), 0o644); err != nil {
			return util.CmdResult{}, err
		}
		if spec.StdoutLine != nil {
			spec.StdoutLine("out_time_us=30000000")
			spec.StdoutLine("progress=continue")
			spec.StdoutLine("progress=end")
		}
		if hook != nil {
			hook(input)
		}
		return util.CmdResult{Code: 0}, nil
	}
	return util.CmdResult{Code: -1}, fmt.Errorf("unexpected binary %q", spec.Path)
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func videoJSON(w, h int, durationSec float64) string {
	return fmt.Sprintf(`{
	  "streams": [{"index": 0, "codec_type": "video", "width": %d, "height": %d, "pix_fmt": "yuv420p"}],
	  "format": {"nb_streams": 2, "duration": "%.1f"}
	}`, w, h, durationSec)
}

const audioOnlyJSON = `{
  "streams": [{"index": 0, "codec_type": "audio"}],
  "format": {"nb_streams": 1, "duration": "60.0"}
}`

// scriptedPrompter replays canned answers; exhausted queues fall back to
// defaults (Ask/Confirm) or error (AskInt, matching EOF semantics).
type scriptedPrompter struct {
	asks     []string
	ints     []int
	confirms []bool
}

func (s *scriptedPrompter) Ask(_ string, def string) (string, error) {
	if len(s.asks) == 0 {
		return def, nil
	}
	a := s.asks[0]
	s.asks = s.asks[1:]
	if a == "" {
		return def, nil
	}
	return a, nil
}

func (s *scriptedPrompter) AskInt(string, int, int) (int, error) {
	if len(s.ints) == 0 {
		return 0, errors.New("read input: EOF")
	}
	n := s.ints[0]
	s.ints = s.ints[1:]
	return n, nil
}

func (s *scriptedPrompter) Confirm(_ string, def bool) (bool, error) {
	if len(s.confirms) == 0 {
		return def, nil
	}
	c := s.confirms[0]
	s.confirms = s.confirms[1:]
	return c, nil
}

type recordingReporter struct {
	mu      sync.Mutex
	results []progress.Result
}

func (r *recordingReporter) Update(progress.Update) {}
func (r *recordingReporter) Log(progress.Log)       {}
func (r *recordingReporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// harness bundles the collaborators of one test run.
type harness struct {
	runner     *fakeRunner
	prompter   *scriptedPrompter
	reporter   *recordingReporter
	sessionBuf *bytes.Buffer
	consoleBuf *bytes.Buffer
	inputs     []string
}

func newHarness(t *testing.T, names []string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		runner:     &fakeRunner{probeJSON: map[string]string{}, failConvert: map[string]bool{}},
		prompter:   &scriptedPrompter{},
		reporter:   &recordingReporter{},
		sessionBuf: &bytes.Buffer{},
		consoleBuf: &bytes.Buffer{},
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
			t.Fatalf("write input: %v", err)
		}
		h.inputs = append(h.inputs, path)
		h.runner.probeJSON[path] = videoJSON(1280, 720, 60)
	}
	return h
}

func (h *harness) orchestrator(opts model.RunOptions) *Orchestrator {
	return New(
		WithRunOptions(opts),
		WithEnginePaths(testFFmpeg, testFFprobe),
		WithRunner(h.runner),
		WithReporter(h.reporter),
		WithPrompter(h.prompter),
		WithConsole(console.New(h.consoleBuf)),
		WithLogger(logging.NewTestSession(h.sessionBuf).Logger),
	)
}

func TestClassifyReportsInLexicographicOrder(t *testing.T) {
	h := newHarness(t, []string{"b.mp4", "A.mp4", "c.mp4"})

	report, err := Classify(context.Background(), h.inputs, probe.Options{
		FFprobePath: testFFprobe,
		Runner:      h.runner,
	})
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	var names []string
	for _, c := range report {
		names = append(names, filepath.Base(c.File.Path))
	}
	want := []string{"A.mp4", "b.mp4", "c.mp4"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("report order = %v, want %v", names, want)
		}
	}
}

func TestBatchAbortsWhenAnyFileInvalid(t *testing.T) {
	h := newHarness(t, []string{"a.mp4", "b.mp4", "c.mp4"})
	// The middle file has no video stream.
	h.runner.probeJSON[h.inputs[1]] = audioOnlyJSON

	_, err := h.orchestrator(model.RunOptions{Yes: true, Preset: "h264-standard"}).
		Run(context.Background(), h.inputs)

	if !errors.Is(err, ErrClassification) {
		t.Fatalf("Run() error = %v, want ErrClassification", err)
	}
	if len(h.runner.converted) != 0 {
		t.Errorf("converted %v, want none: one bad file rejects the batch", h.runner.converted)
	}
	if !strings.Contains(h.consoleBuf.String(), "no video stream") {
		t.Errorf("console missing invalid-file reason: %q", h.consoleBuf.String())
	}
}

func TestConvertLoopContinuesOnError(t *testing.T) {
	h := newHarness(t, []string{"a.mp4", "b.mp4", "c.mp4"})
	h.runner.failConvert[h.inputs[1]] = true

	sum, err := h.orchestrator(model.RunOptions{Yes: true, Preset: "h264-standard"}).
		Run(context.Background(), h.inputs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Converted != 2 || sum.Failed != 1 {
		t.Errorf("summary = %d converted, %d failed; want 2, 1", sum.Converted, sum.Failed)
	}
	if len(h.runner.converted) != 3 {
		t.Errorf("attempted %d conversions, want 3 (continue-on-error)", len(h.runner.converted))
	}

	session := h.sessionBuf.String()
	if n := strings.Count(session, "ERROR: conversion failed"); n != 1 {
		t.Errorf("session log has %d failure entries, want 1:\n%s", n, session)
	}
	if n := strings.Count(session, "Converted "); n != 2 {
		t.Errorf("session log has %d success entries, want 2:\n%s", n, session)
	}
}

func TestCancellationHaltsSubsequentFiles(t *testing.T) {
	h := newHarness(t, []string{"a.mp4", "b.mp4", "c.mp4"})
	ctx, cancel := context.WithCancel(context.Background())
	// Signal cancellation while file 1 is still in flight.
	h.runner.afterRun = func(string) { cancel() }

	sum, err := h.orchestrator(model.RunOptions{Yes: true, Preset: "h264-standard"}).
		Run(ctx, h.inputs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(h.runner.converted) != 1 {
		t.Errorf("launched %d conversions, want 1: cancellation stops later files", len(h.runner.converted))
	}
	if !sum.Cancelled {
		t.Error("summary not marked cancelled")
	}
	if sum.Converted != 1 {
		t.Errorf("converted = %d, want 1 (in-flight file unaffected)", sum.Converted)
	}
}

func TestDeclinedConfirmationConvertsNothing(t *testing.T) {
	h := newHarness(t, []string{"a.mp4"})
	h.prompter.confirms = []bool{false}

	sum, err := h.orchestrator(model.RunOptions{Preset: "h264-standard"}).
		Run(context.Background(), h.inputs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !sum.Declined {
		t.Error("summary not marked declined")
	}
	if len(h.runner.converted) != 0 {
		t.Errorf("converted %v after declining", h.runner.converted)
	}
}

func TestRelativeOutputDirAbortsRun(t *testing.T) {
	h := newHarness(t, []string{"a.mp4"})
	h.prompter.asks = []string{"relative/dir"}

	_, err := h.orchestrator(model.RunOptions{Yes: true, Preset: "h264-standard"}).
		Run(context.Background(), h.inputs)
	if err == nil || !strings.Contains(err.Error(), "must be absolute") {
		t.Fatalf("Run() error = %v, want absolute-path rejection", err)
	}
	if len(h.runner.converted) != 0 {
		t.Errorf("converted %v despite configuration error", h.runner.converted)
	}
}

func TestPresetMenuSelection(t *testing.T) {
	h := newHarness(t, []string{"a.mp4"})
	h.prompter.ints = []int{3} // hevc-standard

	sum, err := h.orchestrator(model.RunOptions{Yes: true}).
		Run(context.Background(), h.inputs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Preset != preset.HEVCStandard {
		t.Errorf("preset = %s, want hevc-standard", sum.Preset)
	}
	args := strings.Join(h.runner.convertArgs[0], " ")
	if !strings.Contains(args, "-c:v libx265") || !strings.Contains(args, "-crf 28") {
		t.Errorf("engine args = %s", args)
	}
}

func TestDryRunExecutesNothing(t *testing.T) {
	h := newHarness(t, []string{"a.mp4", "b.mp4"})

	sum, err := h.orchestrator(model.RunOptions{Yes: true, Preset: "h264-standard", DryRun: true}).
		Run(context.Background(), h.inputs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Planned != 2 || sum.Converted != 0 {
		t.Errorf("summary = %+v, want 2 planned, 0 converted", sum)
	}
	if len(h.runner.converted) != 0 {
		t.Errorf("dry run launched conversions: %v", h.runner.converted)
	}
	if n := strings.Count(h.consoleBuf.String(), "Would run: "); n != 2 {
		t.Errorf("printed %d commands, want 2:\n%s", n, h.consoleBuf.String())
	}
}

var sessionLinePattern = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z)\] `)

func TestEndToEndTwoFiles(t *testing.T) {
	h := newHarness(t, []string{"big.mp4", "small.mp4"})
	h.runner.probeJSON[h.inputs[0]] = videoJSON(3840, 2160, 120)
	h.runner.probeJSON[h.inputs[1]] = videoJSON(800, 600, 30)
	// Accept the offered default output directory, pick preset 1, confirm.
	h.prompter.asks = []string{""}
	h.prompter.ints = []int{1}
	h.prompter.confirms = []bool{true}

	sum, err := h.orchestrator(model.RunOptions{}).Run(context.Background(), h.inputs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Converted != 2 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Preset != preset.H264Standard {
		t.Errorf("preset = %s", sum.Preset)
	}

	wantOutDir := filepath.Join(filepath.Dir(h.inputs[0]), "converted")
	if sum.OutDir != wantOutDir {
		t.Errorf("out dir = %q, want default %q", sum.OutDir, wantOutDir)
	}
	for _, stem := range []string{"big", "small"} {
		out := filepath.Join(wantOutDir, stem+".mp4")
		if _, statErr := os.Stat(out); statErr != nil {
			t.Errorf("output %s missing: %v", out, statErr)
		}
	}

	// Both commands carry the same bounding scale filter, a no-op for the
	// smaller source.
	for i, args := range h.runner.convertArgs {
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "min(iw\\,1920)") {
			t.Errorf("conversion %d missing bounding filter: %s", i, joined)
		}
	}

	// Two Converted entries with non-decreasing UTC timestamps.
	var converted []string
	var stamps []string
	for _, line := range strings.Split(h.sessionBuf.String(), "\n") {
		if strings.Contains(line, "Converted ") {
			converted = append(converted, line)
			if m := sessionLinePattern.FindStringSubmatch(line); m != nil {
				stamps = append(stamps, m[1])
			}
		}
	}
	if len(converted) != 2 {
		t.Fatalf("session log has %d Converted entries, want 2:\n%s", len(converted), h.sessionBuf.String())
	}
	if len(stamps) != 2 || stamps[0] > stamps[1] {
		t.Errorf("timestamps not non-decreasing: %v", stamps)
	}
}

func TestRunWithoutPrompterUsesDefaults(t *testing.T) {
	h := newHarness(t, []string{"a.mp4"})

	// No prompter, no console, no --yes: every prompt site falls back to
	// its default instead of dereferencing the missing collaborator.
	orch := New(
		WithRunOptions(model.RunOptions{}),
		WithEnginePaths(testFFmpeg, testFFprobe),
		WithRunner(h.runner),
		WithLogger(logging.NewTestSession(h.sessionBuf).Logger),
	)

	sum, err := orch.Run(context.Background(), h.inputs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Converted != 1 {
		t.Errorf("converted = %d, want 1", sum.Converted)
	}
	if sum.Preset != preset.H264Standard {
		t.Errorf("preset = %s, want default h264-standard", sum.Preset)
	}
	wantOut := filepath.Join(filepath.Dir(h.inputs[0]), "converted")
	if sum.OutDir != wantOut {
		t.Errorf("out dir = %q, want default %q", sum.OutDir, wantOut)
	}
}

func TestZeroInputsIsNoOp(t *testing.T) {
	h := newHarness(t, nil)
	sum, err := h.orchestrator(model.RunOptions{}).Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Converted != 0 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestProbeErrorsAreClassifications(t *testing.T) {
	h := newHarness(t, []string{"a.mp4"})
	missing := filepath.Join(filepath.Dir(h.inputs[0]), "gone.mp4")
	inputs := append(h.inputs, missing, "relative.mp4")

	_, err := h.orchestrator(model.RunOptions{Yes: true, Preset: "h264-standard"}).
		Run(context.Background(), inputs)
	if !errors.Is(err, ErrClassification) {
		t.Fatalf("Run() error = %v, want ErrClassification", err)
	}
	out := h.consoleBuf.String()
	if !strings.Contains(out, "not found") {
		t.Errorf("console missing not-found reason: %q", out)
	}
	if !strings.Contains(out, "must be absolute") {
		t.Errorf("console missing absolute-path reason: %q", out)
	}
}
