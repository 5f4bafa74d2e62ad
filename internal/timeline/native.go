package timeline

// Native draft records written by the synchronizer. Field order and default
// values follow what the editor itself writes for imported media.

type TimeRange struct {
	Start    int64 `json:"start"`
	Duration int64 `json:"duration"`
}

// End is the exclusive end of the range.
func (r TimeRange) End() int64 {
	return r.Start + r.Duration
}

type FadeSpan struct {
	Duration int64 `json:"duration"`
}

type Segment struct {
	ID                string    `json:"id"`
	MaterialID        string    `json:"material_id"`
	TargetTimerange   TimeRange `json:"target_timerange"`
	SourceTimerange   TimeRange `json:"source_timerange"`
	Volume            float64   `json:"volume"`
	FadeIn            FadeSpan  `json:"fade_in"`
	FadeOut           FadeSpan  `json:"fade_out"`
	ExtraMaterialRefs []string  `json:"extra_material_refs"`
}

type Track struct {
	Attribute     int       `json:"attribute"`
	Flag          int       `json:"flag"`
	ID            string    `json:"id"`
	IsDefaultName bool      `json:"is_default_name"`
	Name          string    `json:"name"`
	Segments      []Segment `json:"segments"`
	Type          Kind      `json:"type"`
}

func newTrack(kind Kind, index int) *Track {
	return &Track{
		ID:            TrackID(kind, index),
		IsDefaultName: true,
		Name:          TrackName(kind, index),
		Segments:      []Segment{},
		Type:          kind,
	}
}

// AudioFade is the fade envelope record stored in materials.audio_fades and
// embedded in video materials.
type AudioFade struct {
	FadeInDuration  int64  `json:"fade_in_duration"`
	FadeOutDuration int64  `json:"fade_out_duration"`
	FadeType        int    `json:"fade_type"`
	ID              string `json:"id"`
	Type            string `json:"type"`
}

func newAudioFade(id string, in, out int64) *AudioFade {
	return &AudioFade{FadeInDuration: in, FadeOutDuration: out, ID: id, Type: "audio_fade"}
}

// VideoMaterial always carries an audio_fade key, null when the clip has no fade.
type VideoMaterial struct {
	ID           string     `json:"id"`
	Path         string     `json:"path"`
	Duration     int64      `json:"duration"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	MaterialName string     `json:"material_name"`
	Volume       float64    `json:"volume"`
	Type         Kind       `json:"type"`
	AudioFade    *AudioFade `json:"audio_fade"`
}

type AudioMaterial struct {
	ID           string  `json:"id"`
	Path         string  `json:"path"`
	Duration     int64   `json:"duration"`
	MaterialName string  `json:"material_name"`
	Volume       float64 `json:"volume"`
	Type         Kind    `json:"type"`
}

type Canvas struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Color          string  `json:"color"`
	Blur           float64 `json:"blur"`
	AlbumImage     string  `json:"album_image"`
	Image          string  `json:"image"`
	ImageID        string  `json:"image_id"`
	ImageName      string  `json:"image_name"`
	SourcePlatform int     `json:"source_platform"`
	TeamID         string  `json:"team_id"`
	MaterialName   string  `json:"material_name"`
}

type Speed struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Mode         int      `json:"mode"`
	Speed        float64  `json:"speed"`
	CurveSpeed   *float64 `json:"curve_speed"`
	MaterialName string   `json:"material_name"`
}

type PlaceholderInfo struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	MetaType     string `json:"meta_type"`
	ResPath      string `json:"res_path"`
	ResText      string `json:"res_text"`
	ErrorPath    string `json:"error_path"`
	ErrorText    string `json:"error_text"`
	MaterialName string `json:"material_name"`
}

// Material categories inside the content file's "materials" object.
const (
	CategoryVideos       = "videos"
	CategoryAudios       = "audios"
	CategoryAudioFades   = "audio_fades"
	CategoryCanvases     = "canvases"
	CategorySpeeds       = "speeds"
	CategoryPlaceholders = "placeholder_infos"
)
