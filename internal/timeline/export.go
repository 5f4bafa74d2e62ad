package timeline

import (
	"github.com/capgenie/capgenie/internal/draft"
)

// SkippedSegment is a segment Export could not resolve to a material.
type SkippedSegment struct {
	TrackID    string `json:"track_id"`
	SegmentID  string `json:"segment_id"`
	MaterialID string `json:"material_id"`
}

// ExportResult is the simplified view of a draft timeline.
type ExportResult struct {
	Sequences []Sequence       `json:"sequences"`
	Skipped   []SkippedSegment `json:"skipped,omitempty"`
}

type contentView struct {
	Tracks    []trackView `json:"tracks"`
	Materials struct {
		Videos     []materialView `json:"videos"`
		Audios     []materialView `json:"audios"`
		AudioFades []AudioFade    `json:"audio_fades"`
	} `json:"materials"`
}

type trackView struct {
	ID       string        `json:"id"`
	Type     Kind          `json:"type"`
	Segments []segmentView `json:"segments"`
}

type segmentView struct {
	ID              string     `json:"id"`
	MaterialID      string     `json:"material_id"`
	TargetTimerange TimeRange  `json:"target_timerange"`
	SourceTimerange *TimeRange `json:"source_timerange"`
	Volume          *float64   `json:"volume"`
}

type materialView struct {
	ID        string     `json:"id"`
	Path      string     `json:"path"`
	Volume    *float64   `json:"volume"`
	AudioFade *AudioFade `json:"audio_fade"`
}

// Export reads the draft content file and reconstructs the simplified
// timeline. Tracks are visited in file order and segments in list order.
// Segments whose material cannot be found are left out and reported in
// ExportResult.Skipped.
func (s *Synchronizer) Export() (*ExportResult, error) {
	var view contentView
	if err := s.store.LoadInto(draft.ContentFile, &view); err != nil {
		return nil, err
	}

	videos := indexMaterials(view.Materials.Videos)
	audios := indexMaterials(view.Materials.Audios)
	fades := make(map[string]*AudioFade, len(view.Materials.AudioFades))
	for i := range view.Materials.AudioFades {
		f := &view.Materials.AudioFades[i]
		if _, ok := fades[f.ID]; !ok {
			fades[f.ID] = f
		}
	}

	result := &ExportResult{Sequences: []Sequence{}}
	for pos, track := range view.Tracks {
		kind := track.Type
		if kind == "" {
			kind = KindVideo
		}
		var materials map[string]*materialView
		switch kind {
		case KindVideo:
			materials = videos
		case KindAudio:
			materials = audios
		default:
			s.logger.Debug("track type not exported", "track", track.ID, "type", kind)
			continue
		}
		index := pos
		if k, n, ok := ParseTrackID(track.ID); ok && k == kind {
			index = n
		}

		for _, seg := range track.Segments {
			mat, ok := materials[seg.MaterialID]
			if !ok {
				s.logger.Warn("segment material not found, skipped",
					"track", track.ID, "segment", seg.ID, "material_id", seg.MaterialID)
				result.Skipped = append(result.Skipped, SkippedSegment{
					TrackID: track.ID, SegmentID: seg.ID, MaterialID: seg.MaterialID,
				})
				continue
			}
			result.Sequences = append(result.Sequences, exportSegment(kind, index, seg, mat, fades))
		}
	}
	return result, nil
}

// ExportToFile writes the Export result to path in the simplified file form.
func (s *Synchronizer) ExportToFile(path string) (*ExportResult, error) {
	result, err := s.Export()
	if err != nil {
		return nil, err
	}
	if err := WriteSequences(path, result.Sequences); err != nil {
		return nil, err
	}
	s.logger.Info("timeline exported", "output", path, "sequences", len(result.Sequences), "skipped", len(result.Skipped))
	return result, nil
}

func exportSegment(kind Kind, index int, seg segmentView, mat *materialView, fades map[string]*AudioFade) Sequence {
	target := seg.TargetTimerange
	source := TimeRange{Duration: target.Duration}
	if seg.SourceTimerange != nil {
		source = *seg.SourceTimerange
	}

	volume := 1.0
	switch {
	case seg.Volume != nil:
		volume = *seg.Volume
	case mat.Volume != nil:
		volume = *mat.Volume
	}

	var fade *AudioFade
	if kind == KindVideo {
		fade = mat.AudioFade
	} else {
		fade = fades[mat.ID]
	}
	var fadeIn, fadeOut float64
	if fade != nil {
		fadeIn = MicrosToSeconds(fade.FadeInDuration)
		fadeOut = MicrosToSeconds(fade.FadeOutDuration)
	}

	sourceIn := MicrosToSeconds(source.Start)
	sourceOut := MicrosToSeconds(source.End())
	return Sequence{
		Path:            mat.Path,
		StartTime:       MicrosToSeconds(target.Start),
		EndTime:         MicrosToSeconds(target.End()),
		SourceIn:        &sourceIn,
		SourceOut:       &sourceOut,
		Volume:          &volume,
		FadeInDuration:  fadeIn,
		FadeOutDuration: fadeOut,
		Type:            kind,
		TrackIndex:      &index,
	}
}

func indexMaterials(list []materialView) map[string]*materialView {
	out := make(map[string]*materialView, len(list))
	for i := range list {
		m := &list[i]
		if _, ok := out[m.ID]; !ok {
			out[m.ID] = m
		}
	}
	return out
}
