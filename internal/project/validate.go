package project

import (
	"fmt"
	"math"
	"sort"
)

// Validation error codes.
const (
	CodeInvalidTimeRange   = "INVALID_TIME_RANGE"
	CodeInvalidVolume      = "INVALID_VOLUME"
	CodeInvalidTrim        = "INVALID_TRIM"
	CodeOverlap            = "OVERLAP"
	CodeDuplicateID        = "DUPLICATE_ID"
	CodeInvalidAspectRatio = "INVALID_ASPECT_RATIO"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeInvalidFilter      = "INVALID_FILTER"
	CodeTrackIndexMismatch = "TRACK_INDEX_MISMATCH"
	CodeInvalidTrackKind   = "INVALID_TRACK_KIND"
)

// ValidationError reports a structural invariant violation.
type ValidationError struct {
	Code    string
	TrackID string
	ClipID  string
	Detail  string
}

func (e *ValidationError) Error() string {
	msg := "invalid project: " + e.Code
	if e.ClipID != "" {
		msg += " (clip " + e.ClipID + ")"
	} else if e.TrackID != "" {
		msg += " (track " + e.TrackID + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches another *ValidationError with the same code. A target with an
// empty code matches any validation error.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrInvalid = &ValidationError{}
	ErrOverlap = &ValidationError{Code: CodeOverlap}
)

// Validate checks every structural invariant of the project tree.
func Validate(p Project) error {
	if _, ok := ParseAspectRatio(string(p.AspectRatio)); !ok {
		return &ValidationError{Code: CodeInvalidAspectRatio, Detail: fmt.Sprintf("unknown aspect ratio %q", p.AspectRatio)}
	}

	seen := make(map[string]bool)
	for ti, tr := range p.Timeline.Tracks {
		if tr.Kind != KindVideo {
			return &ValidationError{Code: CodeInvalidTrackKind, TrackID: tr.ID, Detail: fmt.Sprintf("unsupported kind %q", tr.Kind)}
		}
		for _, c := range tr.Clips {
			if seen[c.ID] {
				return &ValidationError{Code: CodeDuplicateID, TrackID: tr.ID, ClipID: c.ID}
			}
			seen[c.ID] = true
			if c.TrackIndex != ti {
				return &ValidationError{Code: CodeTrackIndexMismatch, TrackID: tr.ID, ClipID: c.ID,
					Detail: fmt.Sprintf("track_index %d on track %d", c.TrackIndex, ti)}
			}
			if err := ValidateClip(c); err != nil {
				err.TrackID = tr.ID
				return err
			}
		}
		if err := checkTrackOverlap(tr); err != nil {
			return err
		}
	}
	return nil
}

// ValidateClip checks the per-clip invariants.
func ValidateClip(c Clip) *ValidationError {
	if !finite(c.StartTime) || !finite(c.EndTime) || c.StartTime < 0 || c.EndTime <= c.StartTime {
		return &ValidationError{Code: CodeInvalidTimeRange, ClipID: c.ID,
			Detail: fmt.Sprintf("start %v end %v", c.StartTime, c.EndTime)}
	}
	if !finite(c.Volume) || c.Volume < 0 || c.Volume > 1 {
		return &ValidationError{Code: CodeInvalidVolume, ClipID: c.ID, Detail: fmt.Sprintf("volume %v", c.Volume)}
	}
	if !finite(c.TrimStart) || !finite(c.TrimEnd) || c.TrimStart < 0 || c.TrimEnd < 0 {
		return &ValidationError{Code: CodeInvalidTrim, ClipID: c.ID,
			Detail: fmt.Sprintf("trim_start %v trim_end %v", c.TrimStart, c.TrimEnd)}
	}
	for _, tr := range c.Transitions {
		if !validTransition(tr, c.Duration()) {
			return &ValidationError{Code: CodeInvalidTransition, ClipID: c.ID,
				Detail: fmt.Sprintf("%s %s %vs", tr.Type, tr.Position, tr.Duration)}
		}
	}
	for _, f := range c.Filters {
		if !finite(f.Intensity) || f.Intensity < 0 || f.Intensity > 1 {
			return &ValidationError{Code: CodeInvalidFilter, ClipID: c.ID,
				Detail: fmt.Sprintf("filter %q intensity %v", f.Name, f.Intensity)}
		}
	}
	return nil
}

// ValidateTrim checks that the clip's trims leave some of the asset's source
// media. Assets without a duration (images) always pass.
func ValidateTrim(c Clip, asset MediaAsset) error {
	if asset.Duration == nil {
		return nil
	}
	if c.TrimStart+c.TrimEnd >= *asset.Duration {
		return &ValidationError{Code: CodeInvalidTrim, ClipID: c.ID,
			Detail: fmt.Sprintf("trims %v+%v exceed source duration %v", c.TrimStart, c.TrimEnd, *asset.Duration)}
	}
	return nil
}

func checkTrackOverlap(tr Track) error {
	if len(tr.Clips) < 2 {
		return nil
	}
	sorted := make([]Clip, len(tr.Clips))
	copy(sorted, tr.Clips)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartTime < sorted[j].StartTime })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.StartTime < prev.EndTime {
			return &ValidationError{Code: CodeOverlap, TrackID: tr.ID, ClipID: cur.ID,
				Detail: fmt.Sprintf("overlaps clip %s", prev.ID)}
		}
	}
	return nil
}

func validTransition(t Transition, clipDuration float64) bool {
	switch t.Type {
	case TransitionFade, TransitionDissolve, TransitionWipe, TransitionSlide:
	default:
		return false
	}
	if t.Position != PositionStart && t.Position != PositionEnd {
		return false
	}
	return finite(t.Duration) && t.Duration > 0 && t.Duration <= clipDuration
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
