package editor

import (
	"fmt"
	"math"
	"sort"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/ids"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/timemodel"
)

// InsertArgs describes a new clip placement. SourceDuration is the asset's
// media length; nil for stills and media of unknown length.
type InsertArgs struct {
	TrackIndex     int
	AssetID        string
	At             float64
	Duration       float64
	TrimStart      float64
	SourceDuration *float64
}

// Trim holds new source trims for a clip. SourceDuration, when set, bounds
// TrimStart+TrimEnd.
type Trim struct {
	Start          float64
	End            float64
	SourceDuration *float64
}

// InsertClip places a new clip at [At, At+Duration) on the given track.
func InsertClip(p project.Project, args InsertArgs) (project.Project, project.Clip, error) {
	if args.TrackIndex < 0 || args.TrackIndex >= len(p.Timeline.Tracks) {
		return project.Project{}, project.Clip{}, &EditError{Code: CodeInvalidTrack,
			Detail: fmt.Sprintf("track index %d of %d", args.TrackIndex, len(p.Timeline.Tracks))}
	}
	if args.AssetID == "" {
		return project.Project{}, project.Clip{}, invalidRange("", "media asset id is required")
	}
	iv := timemodel.Interval{Start: args.At, End: args.At + args.Duration}
	if !iv.Valid() {
		return project.Project{}, project.Clip{}, invalidRange("", "placement at %v for %vs", args.At, args.Duration)
	}

	next := p.Clone()
	track := &next.Timeline.Tracks[args.TrackIndex]
	if other, hit := track.Collides(iv, ""); hit {
		return project.Project{}, project.Clip{}, &EditError{Code: CodeOverlap, ClipID: other.ID,
			Detail: fmt.Sprintf("[%v, %v) collides with existing clip", iv.Start, iv.End)}
	}

	clip := project.Clip{
		ID:         ids.New(),
		AssetID:    args.AssetID,
		TrackIndex: args.TrackIndex,
		StartTime:  iv.Start,
		EndTime:    iv.End,
		TrimStart:  args.TrimStart,
		Volume:     1,
	}
	if err := checkSource(clip, args.SourceDuration); err != nil {
		return project.Project{}, project.Clip{}, err
	}
	track.Clips = append(track.Clips, clip)
	sortClips(track)

	out, err := finalize(next)
	if err != nil {
		return project.Project{}, project.Clip{}, err
	}
	return out, clip, nil
}

// MoveClip shifts a clip to newStart, preserving its timeline duration.
func MoveClip(p project.Project, clipID string, newStart float64) (project.Project, error) {
	ti, ci, ok := p.FindClip(clipID)
	if !ok {
		return project.Project{}, notFound(clipID)
	}

	next := p.Clone()
	track := &next.Timeline.Tracks[ti]
	clip := &track.Clips[ci]
	iv := timemodel.Interval{Start: newStart, End: newStart + clip.Duration()}
	if !iv.Valid() {
		return project.Project{}, invalidRange(clipID, "cannot move to %v", newStart)
	}
	if other, hit := track.Collides(iv, clipID); hit {
		return project.Project{}, &EditError{Code: CodeOverlap, ClipID: clipID,
			Detail: fmt.Sprintf("new position collides with clip %s", other.ID)}
	}

	clip.StartTime, clip.EndTime = iv.Start, iv.End
	sortClips(track)
	return finalize(next)
}

// TrimClip replaces a clip's source trims in place; its timeline placement
// is not changed.
func TrimClip(p project.Project, clipID string, trim Trim) (project.Project, error) {
	ti, ci, ok := p.FindClip(clipID)
	if !ok {
		return project.Project{}, notFound(clipID)
	}
	if !finite(trim.Start) || !finite(trim.End) || trim.Start < 0 || trim.End < 0 {
		return project.Project{}, invalidRange(clipID, "trims must be non-negative, got %v/%v", trim.Start, trim.End)
	}

	next := p.Clone()
	clip := &next.Timeline.Tracks[ti].Clips[ci]
	clip.TrimStart, clip.TrimEnd = trim.Start, trim.End
	if err := checkSource(*clip, trim.SourceDuration); err != nil {
		return project.Project{}, err
	}
	return finalize(next)
}

// SplitClip cuts a clip at time at into two contiguous clips sharing the
// same asset. The left part keeps the original ID. When source is set, both
// halves must still leave some of the source media after their trims.
func SplitClip(p project.Project, clipID string, at float64, source *float64) (project.Project, project.Clip, project.Clip, error) {
	ti, ci, ok := p.FindClip(clipID)
	if !ok {
		return project.Project{}, project.Clip{}, project.Clip{}, notFound(clipID)
	}

	next := p.Clone()
	track := &next.Timeline.Tracks[ti]
	orig := track.Clips[ci]
	if !orig.Interval().StrictlyInside(at) {
		return project.Project{}, project.Clip{}, project.Clip{}, &EditError{Code: CodeOutOfBounds, ClipID: clipID,
			Detail: fmt.Sprintf("%v is not inside [%v, %v)", at, orig.StartTime, orig.EndTime)}
	}

	left := orig.Clone()
	left.EndTime = at
	left.TrimEnd = orig.TrimEnd + (orig.EndTime - at)
	left.Transitions = transitionsAt(orig.Transitions, project.PositionStart, left.Duration())

	right := orig.Clone()
	right.ID = ids.New()
	right.StartTime = at
	right.TrimStart = orig.TrimStart + (at - orig.StartTime)
	right.Transitions = transitionsAt(orig.Transitions, project.PositionEnd, right.Duration())
	for i := range right.Filters {
		right.Filters[i].ID = ids.New()
	}
	for _, half := range []project.Clip{left, right} {
		if err := checkSource(half, source); err != nil {
			return project.Project{}, project.Clip{}, project.Clip{}, err
		}
	}

	track.Clips[ci] = left
	track.Clips = append(track.Clips, right)
	sortClips(track)

	out, err := finalize(next)
	if err != nil {
		return project.Project{}, project.Clip{}, project.Clip{}, err
	}
	return out, left, right, nil
}

// DeleteClip removes a clip.
func DeleteClip(p project.Project, clipID string) (project.Project, error) {
	ti, ci, ok := p.FindClip(clipID)
	if !ok {
		return project.Project{}, notFound(clipID)
	}
	next := p.Clone()
	track := &next.Timeline.Tracks[ti]
	track.Clips = append(track.Clips[:ci], track.Clips[ci+1:]...)
	return finalize(next)
}

// AddTrack appends an empty track.
func AddTrack(p project.Project, kind project.TrackKind) (project.Project, project.Track, error) {
	if kind == "" {
		kind = project.KindVideo
	}
	next := p.Clone()
	tr := project.NewTrack(kind)
	next.Timeline.Tracks = append(next.Timeline.Tracks, tr)
	out, err := finalize(next)
	if err != nil {
		return project.Project{}, project.Track{}, err
	}
	return out, tr, nil
}

// SetVolume changes a clip's volume.
func SetVolume(p project.Project, clipID string, volume float64) (project.Project, error) {
	ti, ci, ok := p.FindClip(clipID)
	if !ok {
		return project.Project{}, notFound(clipID)
	}
	if !finite(volume) || volume < 0 || volume > 1 {
		return project.Project{}, invalidRange(clipID, "volume %v outside [0, 1]", volume)
	}
	next := p.Clone()
	next.Timeline.Tracks[ti].Clips[ci].Volume = volume
	return finalize(next)
}

// AddTransition attaches a transition to a clip. Only one transition per
// position is kept; a new one replaces the old.
func AddTransition(p project.Project, clipID string, tr project.Transition) (project.Project, error) {
	ti, ci, ok := p.FindClip(clipID)
	if !ok {
		return project.Project{}, notFound(clipID)
	}
	if tr.ID == "" {
		tr.ID = ids.New()
	}
	next := p.Clone()
	clip := &next.Timeline.Tracks[ti].Clips[ci]
	kept := clip.Transitions[:0]
	for _, existing := range clip.Transitions {
		if existing.Position != tr.Position {
			kept = append(kept, existing)
		}
	}
	clip.Transitions = append(kept, tr)
	return finalize(next)
}

// AddFilter appends a filter to a clip.
func AddFilter(p project.Project, clipID string, f project.Filter) (project.Project, error) {
	ti, ci, ok := p.FindClip(clipID)
	if !ok {
		return project.Project{}, notFound(clipID)
	}
	if f.ID == "" {
		f.ID = ids.New()
	}
	next := p.Clone()
	clip := &next.Timeline.Tracks[ti].Clips[ci]
	clip.Filters = append(clip.Filters, f)
	return finalize(next)
}

// ClipAt returns the clip under the playhead on a track.
func ClipAt(p project.Project, trackIndex int, at float64) (project.Clip, bool, error) {
	if trackIndex < 0 || trackIndex >= len(p.Timeline.Tracks) {
		return project.Clip{}, false, &EditError{Code: CodeInvalidTrack,
			Detail: fmt.Sprintf("track index %d of %d", trackIndex, len(p.Timeline.Tracks))}
	}
	c, ok := p.Timeline.Tracks[trackIndex].ClipAt(at)
	return c, ok, nil
}

func finalize(p project.Project) (project.Project, error) {
	if err := project.Validate(p); err != nil {
		return project.Project{}, &EditError{Code: CodeInvalidRange, Err: err}
	}
	return p, nil
}

func sortClips(t *project.Track) {
	sort.SliceStable(t.Clips, func(i, j int) bool { return t.Clips[i].StartTime < t.Clips[j].StartTime })
}

// transitionsAt keeps transitions at pos, shortening any that no longer fit
// inside a clip of length maxDur.
func transitionsAt(in []project.Transition, pos project.TransitionPosition, maxDur float64) []project.Transition {
	var out []project.Transition
	for _, t := range in {
		if t.Position != pos {
			continue
		}
		if t.Duration > maxDur {
			t.Duration = maxDur
		}
		out = append(out, t)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// checkSource rejects trims that consume the whole source media.
func checkSource(c project.Clip, source *float64) error {
	if source == nil {
		return nil
	}
	if err := project.ValidateTrim(c, project.MediaAsset{ID: c.AssetID, Duration: source}); err != nil {
		return invalidRange(c.ID, "trims %v+%v leave nothing of %vs source", c.TrimStart, c.TrimEnd, *source)
	}
	return nil
}
