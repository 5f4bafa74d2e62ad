package timeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/capgenie/capgenie/internal/draft"
)

// Kind is the media type of a sequence and of the track it lands on.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Valid reports whether k is a supported media type.
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindAudio
}

// DefaultTrackIndex is the track used when a sequence does not name one.
func (k Kind) DefaultTrackIndex() int {
	if k == KindAudio {
		return 1
	}
	return 0
}

// Sequence is one entry of the simplified timeline: a clip of a source file
// placed on a track.
type Sequence struct {
	Path      string  `json:"path"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	SourceIn  *float64 `json:"source_in,omitempty"`
	SourceOut *float64 `json:"source_out,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`

	FadeInDuration  float64 `json:"fade_in_duration"`
	FadeOutDuration float64 `json:"fade_out_duration"`

	Type       Kind `json:"type"`
	TrackIndex *int `json:"track_index,omitempty"`
}

// SequenceFile is the on-disk form of a simplified timeline.
type SequenceFile struct {
	Sequences []Sequence `json:"sequences"`
}

// UnmarshalJSON decodes a sequence and rejects entries missing required fields.
func (s *Sequence) UnmarshalJSON(data []byte) error {
	type plain Sequence
	var probe struct {
		Path      *string  `json:"path"`
		StartTime *float64 `json:"start_time"`
		EndTime   *float64 `json:"end_time"`
		Type      *Kind    `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.Path == nil:
		return malformed("sequence is missing path")
	case probe.StartTime == nil:
		return malformed("sequence is missing start_time")
	case probe.EndTime == nil:
		return malformed("sequence is missing end_time")
	case probe.Type == nil:
		return malformed("sequence is missing type")
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Sequence(p)
	return nil
}

// Duration is the span the sequence occupies on the timeline, in seconds.
func (s Sequence) Duration() float64 {
	return s.EndTime - s.StartTime
}

// ResolvedTrackIndex returns the explicit track index or the per-kind default.
func (s Sequence) ResolvedTrackIndex() int {
	if s.TrackIndex != nil {
		return *s.TrackIndex
	}
	return s.Type.DefaultTrackIndex()
}

// ResolvedSourceIn returns the trim start into the source media, defaulting to 0.
func (s Sequence) ResolvedSourceIn() float64 {
	if s.SourceIn != nil {
		return *s.SourceIn
	}
	return 0
}

// ResolvedSourceOut returns the trim end, defaulting to source_in plus the
// timeline span.
func (s Sequence) ResolvedSourceOut() float64 {
	if s.SourceOut != nil {
		return *s.SourceOut
	}
	return s.ResolvedSourceIn() + s.Duration()
}

// ResolvedVolume returns the linear gain, defaulting to 1.0.
func (s Sequence) ResolvedVolume() float64 {
	if s.Volume != nil {
		return *s.Volume
	}
	return 1.0
}

// HasFade reports whether either fade duration is positive.
func (s Sequence) HasFade() bool {
	return s.FadeInDuration > 0 || s.FadeOutDuration > 0
}

// Validate checks the sequence invariants. Errors wrap draft.ErrMalformedInput.
func (s Sequence) Validate() error {
	if s.Path == "" {
		return malformed("path is required")
	}
	if !s.Type.Valid() {
		return malformed("type must be video or audio, got %q", s.Type)
	}
	if err := checkNonNegative("volume", s.ResolvedVolume()); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"start_time":        s.StartTime,
		"end_time":          s.EndTime,
		"source_in":         s.ResolvedSourceIn(),
		"source_out":        s.ResolvedSourceOut(),
		"fade_in_duration":  s.FadeInDuration,
		"fade_out_duration": s.FadeOutDuration,
	} {
		if err := checkNonNegative(name, v); err != nil {
			return err
		}
		if v > MaxSeconds {
			return malformed("%s (%g) exceeds the maximum of %d seconds", name, v, MaxSeconds)
		}
	}
	if s.EndTime <= s.StartTime {
		return malformed("end_time (%g) must be greater than start_time (%g)", s.EndTime, s.StartTime)
	}
	if s.ResolvedSourceOut() <= s.ResolvedSourceIn() {
		return malformed("source_out (%g) must be greater than source_in (%g)", s.ResolvedSourceOut(), s.ResolvedSourceIn())
	}
	if s.ResolvedTrackIndex() < 0 {
		return malformed("track_index must not be negative")
	}
	return nil
}

func checkNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return malformed("%s must be finite", name)
	}
	if v < 0 {
		return malformed("%s must not be negative", name)
	}
	return nil
}

// ValidateSequences validates every sequence, reporting the first failure by position.
func ValidateSequences(seqs []Sequence) error {
	for i, s := range seqs {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
	}
	return nil
}

// ParseSequences decodes and validates a simplified timeline document.
func ParseSequences(data []byte) ([]Sequence, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var file SequenceFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", draft.ErrMalformedInput, err)
	}
	if err := ValidateSequences(file.Sequences); err != nil {
		return nil, err
	}
	return file.Sequences, nil
}

// LoadSequences reads and validates a simplified timeline file.
func LoadSequences(path string) ([]Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", path, draft.ErrUnreadable, err)
	}
	seqs, err := ParseSequences(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return seqs, nil
}

// WriteSequences writes a simplified timeline file.
func WriteSequences(path string, seqs []Sequence) error {
	if seqs == nil {
		seqs = []Sequence{}
	}
	data, err := json.MarshalIndent(SequenceFile{Sequences: seqs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sequences: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w: %v", path, draft.ErrUnwritable, err)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", draft.ErrMalformedInput, fmt.Sprintf(format, args...))
}
