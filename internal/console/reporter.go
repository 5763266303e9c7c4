package console

import (
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/nao7sep/downScale/internal/progress"
)

// Reporter implements progress.Reporter for plain (non-TUI) runs. Percent
// updates overwrite the previous value in place via a terminal progress
// bar; logs surface only in verbose mode.
type Reporter struct {
	mu      sync.Mutex
	console *Console
	verbose bool
	bars    map[string]*progressbar.ProgressBar
}

// NewReporter builds a plain-mode reporter on the console.
func (c *Console) NewReporter(verbose bool) *Reporter {
	return &Reporter{
		console: c,
		verbose: verbose,
		bars:    make(map[string]*progressbar.ProgressBar),
	}
}

// Update renders the job's percent in place. Without a terminal the
// in-place rendering is skipped; final outcomes are printed elsewhere.
func (r *Reporter) Update(u progress.Update) {
	if !r.console.IsTerminal() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	bar, ok := r.bars[u.JobID]
	if !ok {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(r.console.Out()),
			progressbar.OptionSetDescription(u.Message),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetWidth(30),
		)
		r.bars[u.JobID] = bar
	}
	if u.Percent >= 0 {
		_ = bar.Set(int(u.Percent))
	}
}

// Log forwards engine diagnostic lines to the terminal in verbose mode.
func (r *Reporter) Log(l progress.Log) {
	if !r.verbose {
		return
	}
	line := strings.TrimRight(l.Line, "\r\n")
	if line == "" {
		return
	}
	r.console.Print(Info, "  "+line)
}

// Result finishes and clears the job's bar.
func (r *Reporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bar, ok := r.bars[res.JobID]; ok {
		_ = bar.Finish()
		delete(r.bars, res.JobID)
	}
}
