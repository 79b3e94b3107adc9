package export

import (
	"strings"
	"testing"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

func edlProject(clips ...project.Clip) project.Project {
	p := project.New("Project One", project.Aspect16x9)
	p.Timeline.Tracks[0].Clips = clips
	return p
}

func edlAssets() map[string]project.MediaAsset {
	return map[string]project.MediaAsset{
		"a": {ID: "a", FileName: "Intro", Path: "/media/intro.mp4"},
		"b": {ID: "b", FileName: "Clip B", Path: "/b.mp4"},
	}
}

func TestGenerateEDL_SingleClip(t *testing.T) {
	p := edlProject(project.Clip{ID: "c1", AssetID: "a", StartTime: 0, EndTime: 2, Volume: 1})

	edl, unresolved := GenerateEDL(p, edlAssets(), 30.0)

	if len(unresolved) != 0 {
		t.Fatalf("unresolved = %v, want none", unresolved)
	}
	if !strings.Contains(edl, "TITLE: Project One") {
		t.Fatalf("missing title in EDL: %q", edl)
	}
	if !strings.Contains(edl, "FCM: NON-DROP FRAME") {
		t.Fatalf("missing non-drop-frame FCM: %q", edl)
	}
	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:02:00 00:00:00:00 00:00:02:00") {
		t.Fatalf("missing event line: %q", edl)
	}
	if !strings.Contains(edl, "* FROM CLIP NAME:  Intro") {
		t.Fatalf("missing clip name comment: %q", edl)
	}
	if !strings.Contains(edl, "* MEDIA PATH:  /media/intro.mp4") {
		t.Fatalf("missing media path comment: %q", edl)
	}
}

func TestGenerateEDL_TimelinePlacementAndTrim(t *testing.T) {
	p := edlProject(
		project.Clip{ID: "c2", AssetID: "b", StartTime: 3, EndTime: 4.5, TrimStart: 1, Volume: 1},
		project.Clip{ID: "c1", AssetID: "a", StartTime: 0, EndTime: 1, Volume: 1},
	)

	edl, _ := GenerateEDL(p, edlAssets(), 30.0)

	if !strings.Contains(edl, "001  AX       V     C        00:00:00:00 00:00:01:00 00:00:00:00 00:00:01:00") {
		t.Fatalf("first event line mismatch: %q", edl)
	}
	if !strings.Contains(edl, "002  AX       V     C        00:00:01:00 00:00:02:15 00:00:03:00 00:00:04:15") {
		t.Fatalf("second event line mismatch: %q", edl)
	}
}

func TestGenerateEDL_SkipsMissingAssets(t *testing.T) {
	p := edlProject(
		project.Clip{ID: "gone", AssetID: "deleted", StartTime: 0, EndTime: 1, Volume: 1},
		project.Clip{ID: "c1", AssetID: "a", StartTime: 1, EndTime: 2, Volume: 1},
	)

	edl, unresolved := GenerateEDL(p, edlAssets(), 25)

	if len(unresolved) != 1 || unresolved[0] != "gone" {
		t.Fatalf("unresolved = %v, want [gone]", unresolved)
	}
	if !strings.Contains(edl, "001  AX") || strings.Contains(edl, "002  AX") {
		t.Fatalf("expected exactly one event: %q", edl)
	}
}

func TestGenerateEDL_DropFrame(t *testing.T) {
	p := edlProject(project.Clip{ID: "c1", AssetID: "a", StartTime: 0, EndTime: 1, Volume: 1})
	edl, _ := GenerateEDL(p, edlAssets(), 29.97)

	if !strings.Contains(edl, "FCM: DROP FRAME") {
		t.Fatalf("expected drop frame FCM, got: %q", edl)
	}
}

func TestGenerateEDL_Transitions(t *testing.T) {
	p := edlProject(project.Clip{ID: "c1", AssetID: "a", StartTime: 0, EndTime: 4, Volume: 1,
		Transitions: []project.Transition{{ID: "t", Type: project.TransitionFade, Duration: 0.5, Position: project.PositionStart}}})
	edl, _ := GenerateEDL(p, edlAssets(), 30)

	if !strings.Contains(edl, "* TRANSITION:  fade start 00:00:00:15") {
		t.Fatalf("missing transition comment: %q", edl)
	}
}

func TestSecondsToTimecode(t *testing.T) {
	tests := []struct {
		name string
		sec  float64
		fps  int
		want string
	}{
		{name: "zero", sec: 0, fps: 30, want: "00:00:00:00"},
		{name: "one second", sec: 1, fps: 30, want: "00:00:01:00"},
		{name: "fractional second", sec: 0.5, fps: 30, want: "00:00:00:15"},
		{name: "one minute", sec: 60, fps: 30, want: "00:01:00:00"},
		{name: "one hour", sec: 3600, fps: 30, want: "01:00:00:00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := secondsToTimecode(tc.sec, tc.fps)
			if got != tc.want {
				t.Fatalf("secondsToTimecode(%v, %d) = %q, want %q", tc.sec, tc.fps, got, tc.want)
			}
		})
	}
}
