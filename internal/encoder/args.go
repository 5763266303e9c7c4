package encoder

import (
	"fmt"
	"strconv"

	"github.com/nao7sep/downScale/internal/model"
)

// boundingScaleFilter caps the longest edge at 1920 while preserving aspect
// ratio and keeping both dimensions even. It runs after the engine's
// automatic orientation correction, so rotation metadata is never parsed or
// second-guessed here. A no-op for sources already within bounds.
const boundingScaleFilter = "scale=w=min(iw\\,1920):h=min(ih\\,1920):force_original_aspect_ratio=decrease:force_divisible_by=2"

// BuildConvertArgs assembles the full engine argument list for one
// conversion. Pure and deterministic: same inputs, same slice. The order is
// fixed regardless of preset.
func BuildConvertArgs(inputPath, outputPath string, p model.EncodingParams) []string {
	return []string{
		// Observation plumbing: machine-readable progress on stdout,
		// free-text diagnostics kept on stderr.
		"-hide_banner",
		"-nostdin",
		"-progress", "pipe:1",
		"-nostats",

		"-i", inputPath,

		// The engine's default stream selection silently drops secondary
		// audio and subtitle tracks; include everything explicitly.
		"-map", "0",
		"-map_metadata", "0",
		"-map_chapters", "0",

		"-c:v", p.Codec,
		"-crf", strconv.Itoa(p.QualityFactor),
		"-preset", "slow",

		"-vf", boundingScaleFilter,

		// Audio re-encoded to AAC, down-mixed to stereo. Sample rate is
		// left untouched.
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", p.AudioBitrateKbps),
		"-ac", "2",

		"-movflags", "+faststart",

		outputPath,
	}
}
