package export

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/capgenie/capgenie/internal/timeline"
)

const (
	reelName    = "AX"
	maxClipName = 64
)

// GenerateEDL renders sequences as a CMX3600 edit decision list. Events are
// ordered by record-in, video before audio, then input order. Record times
// are the clips' own timeline positions.
func GenerateEDL(seqs []timeline.Sequence, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = DefaultFrameRate
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, maxClipName))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	ordered := make([]timeline.Sequence, len(seqs))
	copy(ordered, seqs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartTime != ordered[j].StartTime {
			return ordered[i].StartTime < ordered[j].StartTime
		}
		return ordered[i].Type == timeline.KindVideo && ordered[j].Type != timeline.KindVideo
	})

	for i, seq := range ordered {
		srcIn := secondsToTimecode(seq.ResolvedSourceIn(), fps)
		srcOut := secondsToTimecode(seq.ResolvedSourceOut(), fps)
		recIn := secondsToTimecode(seq.StartTime, fps)
		recOut := secondsToTimecode(seq.EndTime, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, reelName, channel(seq), srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", SanitizeName(filepath.Base(seq.Path), maxClipName)),
			fmt.Sprintf("* MEDIA PATH:  %s", seq.Path),
		)
		if seq.HasFade() {
			lines = append(lines, fmt.Sprintf("* FADE IN:  %.3f  FADE OUT:  %.3f", seq.FadeInDuration, seq.FadeOutDuration))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// channel maps a clip to the EDL track column: V for video, A, A2, ... for
// audio tracks counted from the default audio track.
func channel(seq timeline.Sequence) string {
	if seq.Type != timeline.KindAudio {
		return "V"
	}
	n := seq.ResolvedTrackIndex() - timeline.KindAudio.DefaultTrackIndex() + 1
	if n <= 1 {
		return "A"
	}
	return fmt.Sprintf("A%d", n)
}

func secondsToTimecode(seconds float64, fps int) string {
	totalFrames := int(math.Round(seconds * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, secs, frames)
}
