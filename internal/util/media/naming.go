// Package media derives output and diagnostic-log paths from input names.
package media

import (
	"path/filepath"
	"strings"
)

const (
	// OutputExt is the container extension every converted file gets.
	OutputExt = ".mp4"
	// JobLogExt is the extension of the per-job diagnostic log.
	JobLogExt = ".log"
)

// Stem returns the filename of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath derives the converted file's path: the input filename stem
// rooted at outDir with the fixed target extension.
func OutputPath(outDir, inputPath string) string {
	return filepath.Join(outDir, Stem(inputPath)+OutputExt)
}

// JobLogPath derives the per-job diagnostic log path, co-located with the
// output file and sharing its stem.
func JobLogPath(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + JobLogExt
}
