package timeline

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/capgenie/capgenie/internal/draft"
)

// IDGenerator produces identifiers for new segments and materials.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues uppercase random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return draft.NewDraftID()
}

var trackIDPattern = regexp.MustCompile(`^(AUDIO-)?TRACK-(\d+)$`)

// TrackID synthesizes the stable identifier of the track holding (kind, index).
func TrackID(kind Kind, index int) string {
	if kind == KindAudio {
		return fmt.Sprintf("AUDIO-TRACK-%d", index)
	}
	return fmt.Sprintf("TRACK-%d", index)
}

// TrackName is the default display name of a synthesized track.
func TrackName(kind Kind, index int) string {
	if kind == KindAudio {
		return fmt.Sprintf("Audio Track %d", index)
	}
	return fmt.Sprintf("Track %d", index)
}

// ParseTrackID recovers (kind, index) from a synthesized track id.
func ParseTrackID(id string) (Kind, int, bool) {
	m := trackIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	if m[1] != "" {
		return KindAudio, n, true
	}
	return KindVideo, n, true
}
