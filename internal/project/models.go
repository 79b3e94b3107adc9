// Package project holds the editable project tree (timeline, tracks, clips)
// and its structural validation. The tree has value semantics: Clone copies
// everything, so a Project can be stored as an immutable history snapshot.
package project

import (
	"strings"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/ids"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/timemodel"
)

type AspectRatio string

const (
	Aspect16x9 AspectRatio = "16:9"
	Aspect9x16 AspectRatio = "9:16"
	Aspect1x1  AspectRatio = "1:1"
)

var aspectRatios = map[AspectRatio]bool{
	Aspect16x9: true,
	Aspect9x16: true,
	Aspect1x1:  true,
}

// ParseAspectRatio converts a string such as "9:16" into an AspectRatio.
func ParseAspectRatio(s string) (AspectRatio, bool) {
	ar := AspectRatio(s)
	return ar, aspectRatios[ar]
}

type TrackKind string

const KindVideo TrackKind = "video"

type TransitionType string

const (
	TransitionFade     TransitionType = "fade"
	TransitionDissolve TransitionType = "dissolve"
	TransitionWipe     TransitionType = "wipe"
	TransitionSlide    TransitionType = "slide"
)

type TransitionPosition string

const (
	PositionStart TransitionPosition = "start"
	PositionEnd   TransitionPosition = "end"
)

type Project struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	AspectRatio AspectRatio `json:"aspect_ratio"`
	Timeline    Timeline    `json:"timeline"`
}

type Timeline struct {
	ID     string  `json:"id"`
	Tracks []Track `json:"tracks"`
}

type Track struct {
	ID    string    `json:"id"`
	Kind  TrackKind `json:"kind"`
	Clips []Clip    `json:"clips"`
}

// Clip places a media asset on a track. Timeline placement (StartTime,
// EndTime) and source trim (TrimStart, TrimEnd) are independent fields.
type Clip struct {
	ID          string       `json:"id"`
	AssetID     string       `json:"media_asset_id"`
	TrackIndex  int          `json:"track_index"`
	StartTime   float64      `json:"start_time"`
	EndTime     float64      `json:"end_time"`
	TrimStart   float64      `json:"trim_start"`
	TrimEnd     float64      `json:"trim_end"`
	Volume      float64      `json:"volume"`
	Transitions []Transition `json:"transitions,omitempty"`
	Filters     []Filter     `json:"filters,omitempty"`
}

type Transition struct {
	ID       string             `json:"id"`
	Type     TransitionType     `json:"type"`
	Duration float64            `json:"duration"`
	Position TransitionPosition `json:"position"`
}

type Filter struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Intensity  float64        `json:"intensity"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// New creates a project with a single empty video track.
func New(name string, aspect AspectRatio) Project {
	return Project{
		ID:          ids.New(),
		Name:        name,
		AspectRatio: aspect,
		Timeline: Timeline{
			ID:     ids.New(),
			Tracks: []Track{NewTrack(KindVideo)},
		},
	}
}

// NewTrack returns an empty track of the given kind.
func NewTrack(kind TrackKind) Track {
	return Track{ID: ids.New(), Kind: kind, Clips: []Clip{}}
}

// Interval returns the clip's timeline placement.
func (c Clip) Interval() timemodel.Interval {
	return timemodel.Interval{Start: c.StartTime, End: c.EndTime}
}

// Duration is the clip's timeline duration.
func (c Clip) Duration() float64 {
	return c.EndTime - c.StartTime
}

// FindClip locates a clip by ID.
func (p Project) FindClip(id string) (trackIdx, clipIdx int, ok bool) {
	for ti, tr := range p.Timeline.Tracks {
		for ci, c := range tr.Clips {
			if c.ID == id {
				return ti, ci, true
			}
		}
	}
	return -1, -1, false
}

// Clip returns a copy of the clip with the given ID.
func (p Project) Clip(id string) (Clip, bool) {
	ti, ci, ok := p.FindClip(id)
	if !ok {
		return Clip{}, false
	}
	return p.Timeline.Tracks[ti].Clips[ci], true
}

// Duration returns the end of the last clip across all tracks.
func (p Project) Duration() float64 {
	var d float64
	for _, tr := range p.Timeline.Tracks {
		for _, c := range tr.Clips {
			if c.EndTime > d {
				d = c.EndTime
			}
		}
	}
	return d
}

// ClipCount returns the number of clips across all tracks.
func (p Project) ClipCount() int {
	n := 0
	for _, tr := range p.Timeline.Tracks {
		n += len(tr.Clips)
	}
	return n
}

// ClipAt returns the clip under time t. When several clips qualify, the one
// with the latest StartTime not exceeding t wins.
func (t Track) ClipAt(at float64) (Clip, bool) {
	best := -1
	for i, c := range t.Clips {
		if !c.Interval().Contains(at) {
			continue
		}
		if best == -1 || c.StartTime >= t.Clips[best].StartTime {
			best = i
		}
	}
	if best == -1 {
		return Clip{}, false
	}
	return t.Clips[best], true
}

// Collides reports whether iv overlaps any clip on the track other than
// the one with ID skip.
func (t Track) Collides(iv timemodel.Interval, skip string) (Clip, bool) {
	for _, c := range t.Clips {
		if c.ID == skip {
			continue
		}
		if timemodel.Overlaps(iv, c.Interval()) {
			return c, true
		}
	}
	return Clip{}, false
}

type AssetKind string

const (
	AssetVideo AssetKind = "video"
	AssetImage AssetKind = "image"
	AssetAudio AssetKind = "audio"
)

// MediaAsset is owned by the media collaborator; clips reference it by ID.
type MediaAsset struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Kind      AssetKind `json:"type"`
	FileName  string    `json:"file_name"`
	FileSize  int64     `json:"file_size"`
	Path      string    `json:"file_path"`
	Duration  *float64  `json:"duration,omitempty"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// AssetKindFromMime classifies an upload by its MIME type.
func AssetKindFromMime(mime string) AssetKind {
	switch {
	case strings.HasPrefix(mime, "video"):
		return AssetVideo
	case strings.HasPrefix(mime, "audio"):
		return AssetAudio
	default:
		return AssetImage
	}
}
