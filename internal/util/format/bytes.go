// Package format renders byte counts and size changes for user-facing
// reports.
package format

import (
	"fmt"
	"math"
)

var units = []string{"KB", "MB", "GB", "TB"}

// HumanizeBytes converts a byte count into a human-readable string
// (e.g., "1.5 MB").
func HumanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	value := float64(b)
	exp := -1
	for value >= unit && exp < len(units)-1 {
		value /= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", value, units[exp])
}

// Reduction describes how an output size compares to its input, e.g.
// "62% smaller" or "5% larger". Unknown sizes yield an empty string so
// callers can skip the clause.
func Reduction(inBytes, outBytes int64) string {
	if inBytes <= 0 || outBytes <= 0 {
		return ""
	}
	pct := int(math.Round(100 - float64(outBytes)/float64(inBytes)*100))
	switch {
	case pct > 0:
		return fmt.Sprintf("%d%% smaller", pct)
	case pct < 0:
		return fmt.Sprintf("%d%% larger", -pct)
	default:
		return "same size"
	}
}
