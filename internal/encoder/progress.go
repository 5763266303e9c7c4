package encoder

import (
	"strconv"
	"strings"

	"github.com/nao7sep/downScale/internal/progress"
)

// ProgressState accumulates key=value lines from the engine's progress
// stream until a progress= marker flushes an update. out_time_us and
// out_time_ms both carry microseconds; the engine emits whichever its
// version prefers.
type ProgressState struct {
	OutTimeUs int64
	SpeedStr  string
	TotalSize int64
}

// UpdateFromLine folds one progress-stream line into the state and returns
// an update when the line is a progress marker.
func (ps *ProgressState) UpdateFromLine(line, jobID string, durationSec float64) (u progress.Update, ok bool) {
	kv := strings.SplitN(line, "=", 2)
	if len(kv) != 2 {
		return progress.Update{}, false
	}

	key := strings.TrimSpace(kv[0])
	val := strings.TrimSpace(kv[1])

	switch key {
	case "out_time_us", "out_time_ms":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.OutTimeUs = v
		}
	case "speed":
		ps.SpeedStr = val
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			ps.TotalSize = v
		}
	case "progress":
		percent := -1.0
		if durationSec > 0 {
			den := durationSec * 1_000_000
			percent = (float64(ps.OutTimeUs) / den) * 100.0
			if percent > 100 {
				percent = 100
			}
		}
		if val == "end" {
			percent = 100
		}

		var speedPtr *string
		if ps.SpeedStr != "" {
			s := ps.SpeedStr
			speedPtr = &s
		}
		var bytesPtr *int64
		if ps.TotalSize > 0 {
			b := ps.TotalSize
			bytesPtr = &b
		}

		return progress.Update{
			JobID:   jobID,
			Stage:   progress.StageConverting,
			Percent: percent,
			Speed:   speedPtr,
			Bytes:   bytesPtr,
			Message: "Converting",
		}, true
	}

	return progress.Update{}, false
}
