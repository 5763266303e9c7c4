// Package console renders user-facing messages tagged with an explicit
// severity. Color state lives here, never as ambient global state.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Severity classifies a user-visible message.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// Styles holds the lipgloss styles the console renders with.
type Styles struct {
	Info    lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Title   lipgloss.Style
	Faint   lipgloss.Style
}

func defaultStyles() Styles {
	base := lipgloss.NewStyle()
	return Styles{
		Info:    base,
		Warning: base.Foreground(lipgloss.Color("#F59E0B")),
		Error:   base.Foreground(lipgloss.Color("#EF4444")),
		Title:   base.Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		Faint:   base.Faint(true),
	}
}

// Console writes severity-tagged lines to a single output stream.
type Console struct {
	out    io.Writer
	styles Styles
	color  bool
}

// New builds a console on out. Color is applied only when out is a
// terminal.
func New(out io.Writer) *Console {
	return &Console{
		out:    out,
		styles: defaultStyles(),
		color:  isTerminal(out),
	}
}

// IsTerminal reports whether the console writes to an interactive terminal.
func (c *Console) IsTerminal() bool {
	return c.color
}

// Out exposes the underlying writer for components that render in place.
func (c *Console) Out() io.Writer {
	return c.out
}

// Print writes one line with the given severity.
func (c *Console) Print(sev Severity, msg string) {
	fmt.Fprintln(c.out, c.render(sev, msg))
}

// Printf formats and writes one line with the given severity.
func (c *Console) Printf(sev Severity, format string, args ...any) {
	c.Print(sev, fmt.Sprintf(format, args...))
}

// Title writes an emphasized heading line.
func (c *Console) Title(msg string) {
	if c.color {
		msg = c.styles.Title.Render(msg)
	}
	fmt.Fprintln(c.out, msg)
}

func (c *Console) render(sev Severity, msg string) string {
	if !c.color {
		switch sev {
		case Warning:
			return "warning: " + msg
		case Error:
			return "error: " + msg
		}
		return msg
	}
	switch sev {
	case Warning:
		return c.styles.Warning.Render(msg)
	case Error:
		return c.styles.Error.Render(msg)
	}
	return c.styles.Info.Render(msg)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
