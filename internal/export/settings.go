package export

import (
	"fmt"
	"strings"
)

// Resolution is a named output resolution.
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4K"
)

var resolutionHeights = map[Resolution]int{
	Resolution720p:  720,
	Resolution1080p: 1080,
	Resolution4K:    2160,
}

// ParseResolution accepts the canonical names case-insensitively.
func ParseResolution(s string) (Resolution, bool) {
	for r := range resolutionHeights {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// Height returns the vertical pixel count, or 0 if r is unknown.
func (r Resolution) Height() int {
	return resolutionHeights[r]
}

// Exceeds reports whether r is larger than limit.
func (r Resolution) Exceeds(limit Resolution) bool {
	return r.Height() > limit.Height()
}

// Format is an output container format.
type Format string

const (
	FormatMP4 Format = "mp4"
	FormatMOV Format = "mov"
	FormatEDL Format = "edl"
)

// Quality is an encoder quality preset.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Settings are the requested output parameters for an export.
type Settings struct {
	Resolution Resolution `json:"resolution"`
	Quality    Quality    `json:"quality"`
	Format     Format     `json:"format"`
	FrameRate  float64    `json:"frame_rate,omitempty"`
}

func (s Settings) withDefaults() Settings {
	if s.Resolution == "" {
		s.Resolution = Resolution1080p
	}
	if s.Quality == "" {
		s.Quality = QualityHigh
	}
	if s.Format == "" {
		s.Format = FormatMP4
	}
	if s.FrameRate == 0 {
		s.FrameRate = 30
	}
	return s
}

// Validate checks that every field names a supported value.
func (s Settings) Validate() error {
	if s.Resolution.Height() == 0 {
		return &JobError{Code: CodeInvalidSettings, Detail: fmt.Sprintf("unknown resolution %q", s.Resolution)}
	}
	switch s.Format {
	case FormatMP4, FormatMOV, FormatEDL:
	default:
		return &JobError{Code: CodeInvalidSettings, Detail: fmt.Sprintf("unknown format %q", s.Format)}
	}
	switch s.Quality {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		return &JobError{Code: CodeInvalidSettings, Detail: fmt.Sprintf("unknown quality %q", s.Quality)}
	}
	if s.FrameRate < 0 || s.FrameRate > 120 {
		return &JobError{Code: CodeInvalidSettings, Detail: fmt.Sprintf("frame rate %v", s.FrameRate)}
	}
	return nil
}
