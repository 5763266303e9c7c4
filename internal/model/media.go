package model

import "time"

// Metadata holds the probed stream properties of an input file.
type Metadata struct {
	HasVideoStream bool
	Width          int     // 0 if unknown
	Height         int     // 0 if unknown
	PixelFormat    string
	DurationSec    float64 // Seconds; <= 0 if unknown.
}

// MediaFile represents one input file under consideration.
// Metadata is nil when probing failed (corrupt file, unsupported
// container); that is a classification, not an error.
type MediaFile struct {
	Path     string // Absolute path; enforced before probing.
	Metadata *Metadata
}

// EncodingParams are the concrete engine parameters resolved from a preset.
type EncodingParams struct {
	Codec            string // e.g. "libx264"
	QualityFactor    int    // CRF; lower = higher quality.
	AudioBitrateKbps int
}

// ConversionJob combines one file with resolved parameters and paths.
// It is consumed entirely within a single driver call.
type ConversionJob struct {
	File       MediaFile
	Params     EncodingParams
	OutputPath string
	LogPath    string // Per-job diagnostic log, co-located with the output.
}

// JobResult captures the outcome of a single conversion.
type JobResult struct {
	OutputPath string
	Bytes      int64
	Elapsed    time.Duration
}

// RunOptions holds user-configurable runtime options as resolved from
// flags, environment, and config file.
type RunOptions struct {
	OutDir      string // Empty = prompt with default.
	Preset      string // Empty = prompt with menu.
	Yes         bool   // Skip start confirmation.
	DryRun      bool   // Assemble commands only; execute nothing.
	Chime       bool   // Terminal bell on batch completion.
	History     bool   // Record sessions in the history store.
	Verbose     bool   // Mirror session log and engine output to the terminal.
	LogDir      string // Session log directory; empty = platform state dir.
	FFmpegPath  string // Explicit engine path; empty = PATH lookup.
	FFprobePath string
}
