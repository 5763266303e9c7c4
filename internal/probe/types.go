package probe

import (
	"strconv"
	"strings"
)

// result mirrors the JSON shape of the engine's inspection output.
type result struct {
	Streams []stream `json:"streams"`
	Format  format   `json:"format"`
}

type stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	PixFmt    string `json:"pix_fmt"`
	Duration  string `json:"duration"`
}

type format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// firstVideoStream returns the first stream with codec_type video.
func (r result) firstVideoStream() (stream, bool) {
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "video") {
			return s, true
		}
	}
	return stream{}, false
}

// durationSeconds prefers the container duration, falling back to the
// given stream's own duration. Returns 0 when neither parses.
func (r result) durationSeconds(vs stream) float64 {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d
	}
	return parseFloat(vs.Duration)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
