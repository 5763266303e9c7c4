// Package notify signals batch completion to the user.
package notify

import (
	"fmt"
	"io"
)

// Notifier is told once when the whole batch finishes.
type Notifier interface {
	BatchCompleted(converted, failed int)
}

// New returns a chime notifier when enabled, otherwise a noop. The chime is
// the terminal bell; callers gate enabled on stdout being a terminal.
func New(enabled bool, out io.Writer) Notifier {
	if !enabled {
		return noop{}
	}
	return chime{out: out}
}

type chime struct {
	out io.Writer
}

func (c chime) BatchCompleted(int, int) {
	fmt.Fprint(c.out, "\a")
}

type noop struct{}

func (noop) BatchCompleted(int, int) {}
