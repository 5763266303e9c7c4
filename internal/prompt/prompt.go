// Package prompt is the interactive stdin boundary. The Prompter interface
// keeps the orchestrator testable with a scripted double.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter collects interactive answers.
type Prompter interface {
	// Ask prints the prompt with an offered default and reads one line.
	// An empty answer accepts the default.
	Ask(label, def string) (string, error)
	// AskInt prints the prompt and re-prompts until it reads an integer in
	// [min, max]. EOF surfaces as an error.
	AskInt(label string, min, max int) (int, error)
	// Confirm asks a yes/no question; empty input takes the default.
	Confirm(label string, def bool) (bool, error)
}

// New builds a Prompter reading from in and writing prompts to out.
func New(in io.Reader, out io.Writer) Prompter {
	return &stdPrompter{in: bufio.NewReader(in), out: out}
}

type stdPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *stdPrompter) Ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (p *stdPrompter) AskInt(label string, min, max int) (int, error) {
	for {
		fmt.Fprintf(p.out, "%s (%d-%d): ", label, min, max)
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil || n < min || n > max {
			fmt.Fprintf(p.out, "Please enter a number between %d and %d.\n", min, max)
			continue
		}
		return n, nil
	}
}

func (p *stdPrompter) Confirm(label string, def bool) (bool, error) {
	hint := "Y/n"
	if !def {
		hint = "y/N"
	}
	fmt.Fprintf(p.out, "%s [%s]: ", label, hint)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *stdPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
