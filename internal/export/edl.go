package export

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// GenerateEDL renders the first track of p as a CMX3600 edit decision list.
// Record times follow the clips' timeline placement and source times follow
// their trims. Clips whose asset is missing from assets are skipped and
// their IDs returned as unresolved.
func GenerateEDL(p project.Project, assets map[string]project.MediaAsset, frameRate float64) (string, []string) {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", CleanName(p.Name, 70))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	var unresolved []string
	if len(p.Timeline.Tracks) == 0 {
		lines = append(lines, "")
		return strings.Join(lines, "\n"), nil
	}

	clips := make([]project.Clip, len(p.Timeline.Tracks[0].Clips))
	copy(clips, p.Timeline.Tracks[0].Clips)
	sort.SliceStable(clips, func(i, j int) bool { return clips[i].StartTime < clips[j].StartTime })

	event := 0
	for _, clip := range clips {
		asset, ok := assets[clip.AssetID]
		if !ok {
			unresolved = append(unresolved, clip.ID)
			continue
		}
		event++
		srcIn := secondsToTimecode(clip.TrimStart, fps)
		srcOut := secondsToTimecode(clip.TrimStart+clip.Duration(), fps)
		recIn := secondsToTimecode(clip.StartTime, fps)
		recOut := secondsToTimecode(clip.EndTime, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", event, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", CleanName(asset.FileName, 70)),
			fmt.Sprintf("* MEDIA PATH:  %s", asset.Path),
		)
		for _, tr := range clip.Transitions {
			lines = append(lines, fmt.Sprintf("* TRANSITION:  %s %s %s", tr.Type, tr.Position, secondsToTimecode(tr.Duration, fps)))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n"), unresolved
}

func secondsToTimecode(sec float64, fps int) string {
	totalFrames := int(math.Round(sec * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
