// Package errs defines the sentinel errors shared across the workflow so
// that callers can classify failures with errors.Is at loop boundaries.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgument marks a precondition violation, e.g. a relative path
	// where an absolute one is required.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a referenced file that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoVideoStream marks a file with no usable video track.
	ErrNoVideoStream = errors.New("no video stream")
	// ErrEngineExecution marks a non-zero engine exit or a launch failure.
	ErrEngineExecution = errors.New("engine execution failed")
	// ErrConfiguration marks a run-scoped setting problem (output directory,
	// config file); it aborts the whole run.
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingDependency marks an engine binary that could not be located.
	ErrMissingDependency = errors.New("missing dependency")
)

// Wrap tags err with the given sentinel and operation context. A nil err
// produces a sentinel-tagged error carrying just the operation text.
func Wrap(marker error, op string, err error) error {
	op = strings.TrimSpace(op)
	if op == "" {
		op = "operation failed"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, op, err)
	}
	return fmt.Errorf("%w: %s", marker, op)
}
