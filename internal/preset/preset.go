// Package preset defines the closed catalog of encoding quality profiles.
package preset

import (
	"fmt"
	"strings"

	"github.com/nao7sep/downScale/internal/model"
)

// Preset names one quality profile from the fixed catalog.
type Preset string

const (
	H264Standard Preset = "h264-standard"
	H264High     Preset = "h264-high"
	HEVCStandard Preset = "hevc-standard"
	HEVCHigh     Preset = "hevc-high"
)

// catalog maps each preset to its engine parameters. The CRF pairs are
// empirical per-codec equivalents: x264's visually standard 23 roughly
// matches x265's 28, and the two scales are not the same numeric range.
// These values are a lookup table, never derived by formula.
var catalog = map[Preset]model.EncodingParams{
	H264Standard: {Codec: "libx264", QualityFactor: 23, AudioBitrateKbps: 128},
	H264High:     {Codec: "libx264", QualityFactor: 18, AudioBitrateKbps: 192},
	HEVCStandard: {Codec: "libx265", QualityFactor: 28, AudioBitrateKbps: 128},
	HEVCHigh:     {Codec: "libx265", QualityFactor: 22, AudioBitrateKbps: 192},
}

// menuOrder fixes the numeric selection order shown to the user.
var menuOrder = []Preset{H264Standard, H264High, HEVCStandard, HEVCHigh}

// Parameters resolves a preset to its encoding parameters. Passing a tag
// outside the catalog is a programming error, not a runtime condition.
func Parameters(p Preset) model.EncodingParams {
	params, ok := catalog[p]
	if !ok {
		panic(fmt.Sprintf("preset: undefined tag %q", p))
	}
	return params
}

// All returns the presets in menu order.
func All() []Preset {
	out := make([]Preset, len(menuOrder))
	copy(out, menuOrder)
	return out
}

// Parse validates user or flag input against the catalog.
func Parse(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[p]; !ok {
		return "", fmt.Errorf("invalid preset: %q (valid: %s)", s, strings.Join(Names(), "|"))
	}
	return p, nil
}

// ByIndex returns the preset at the 1-based menu position.
func ByIndex(n int) (Preset, bool) {
	if n < 1 || n > len(menuOrder) {
		return "", false
	}
	return menuOrder[n-1], true
}

// Names returns the preset tags in menu order.
func Names() []string {
	names := make([]string, len(menuOrder))
	for i, p := range menuOrder {
		names[i] = string(p)
	}
	return names
}
