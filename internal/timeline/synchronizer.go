// Package timeline maps a simplified list of timed clips onto a draft's native
// content document and back.
//
// Sync rebuilds the timeline from scratch. AddVideoSequence and
// AddAudioSequence append one clip without resetting anything. The two modes
// are not meant to be mixed for a single logical rebuild: a later Sync drops
// every appended clip.
package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/capgenie/capgenie/internal/draft"
)

const (
	DefaultVideoWidth  = 1280
	DefaultVideoHeight = 720
)

// Prober reports the pixel dimensions of a video file.
type Prober interface {
	Dimensions(ctx context.Context, path string) (width, height int, err error)
}

// Options configures a Synchronizer. Zero values select defaults.
type Options struct {
	Logger *slog.Logger
	IDs    IDGenerator

	// Probe, when set, supplies video dimensions. Failures fall back to the defaults.
	Probe         Prober
	DefaultWidth  int
	DefaultHeight int

	// Progress is called after each sequence is placed, across all content files.
	Progress func(done, total int)
}

// Synchronizer applies simplified timelines to one draft.
type Synchronizer struct {
	store  *draft.Store
	logger *slog.Logger
	ids    IDGenerator
	opts   Options
}

// SyncResult summarizes a reset-mode pass.
type SyncResult struct {
	Files    []string `json:"files"`
	Tracks   int      `json:"tracks"`
	Segments int      `json:"segments"`
	Duration int64    `json:"duration_us"`
}

// AppendResult summarizes an append-mode pass.
type AppendResult struct {
	Files    []string `json:"files"`
	TrackID  string   `json:"track_id"`
	Duration int64    `json:"duration_us"`
}

// New returns a Synchronizer bound to store.
func New(store *draft.Store, opts Options) *Synchronizer {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	if opts.DefaultWidth <= 0 {
		opts.DefaultWidth = DefaultVideoWidth
	}
	if opts.DefaultHeight <= 0 {
		opts.DefaultHeight = DefaultVideoHeight
	}
	return &Synchronizer{
		store:  store,
		logger: opts.Logger.With("component", "timeline", "project", store.Name()),
		ids:    opts.IDs,
		opts:   opts,
	}
}

// SyncFromFile loads a simplified timeline file and applies it with Sync.
func (s *Synchronizer) SyncFromFile(ctx context.Context, path string) (*SyncResult, error) {
	seqs, err := LoadSequences(path)
	if err != nil {
		return nil, err
	}
	return s.Sync(ctx, seqs)
}

// Sync replaces the draft timeline with seqs. The content file and its backup
// are rebuilt independently with their own ids; a missing backup is skipped.
// Canvases, speeds and placeholders persist and are reused by source path.
func (s *Synchronizer) Sync(ctx context.Context, seqs []Sequence) (*SyncResult, error) {
	if err := ValidateSequences(seqs); err != nil {
		return nil, err
	}
	files, err := s.contentFiles()
	if err != nil {
		return nil, err
	}

	media := s.newMediaCache(ctx)
	total := len(seqs) * len(files)
	done := 0
	result := &SyncResult{}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.store.Load(name)
		if err != nil {
			return nil, err
		}
		p, err := newPass(doc, s.ids, media, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		type trackKey struct {
			kind  Kind
			index int
		}
		tracks := make(map[trackKey]*Track)
		var duration int64
		for _, seq := range seqs {
			key := trackKey{seq.Type, seq.ResolvedTrackIndex()}
			track, ok := tracks[key]
			if !ok {
				track = newTrack(key.kind, key.index)
				tracks[key] = track
			}
			seg := p.place(seq)
			track.Segments = append(track.Segments, seg)
			duration = max(duration, seg.TargetTimerange.End())

			done++
			if s.opts.Progress != nil {
				s.opts.Progress(done, total)
			}
		}

		keys := make([]trackKey, 0, len(tracks))
		for k := range tracks {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].index != keys[j].index {
				return keys[i].index < keys[j].index
			}
			return keys[i].kind == KindVideo && keys[j].kind != KindVideo
		})
		ordered := make([]any, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, tracks[k])
		}

		p.commit()
		doc["tracks"] = ordered
		doc["duration"] = duration

		if err := s.store.Save(name, doc); err != nil {
			return nil, err
		}
		s.logger.Info("timeline synced", "file", name, "tracks", len(ordered), "segments", len(seqs), "duration_us", duration)

		result.Files = append(result.Files, name)
		result.Tracks = len(ordered)
		result.Segments = len(seqs)
		result.Duration = duration
	}
	return result, nil
}

// AddOptions describes one clip for append mode. Omitted optional fields take
// the same defaults as a Sequence.
type AddOptions struct {
	Path      string
	StartTime float64
	EndTime   float64

	SourceIn  *float64
	SourceOut *float64
	Volume    *float64

	FadeInDuration  float64
	FadeOutDuration float64

	TrackIndex *int
}

// Sequence returns the clip as a Sequence of the given kind.
func (o AddOptions) Sequence(kind Kind) Sequence {
	return Sequence{
		Path:            o.Path,
		StartTime:       o.StartTime,
		EndTime:         o.EndTime,
		SourceIn:        o.SourceIn,
		SourceOut:       o.SourceOut,
		Volume:          o.Volume,
		FadeInDuration:  o.FadeInDuration,
		FadeOutDuration: o.FadeOutDuration,
		Type:            kind,
		TrackIndex:      o.TrackIndex,
	}
}

// AddVideoSequence appends one video clip to the draft without resetting it.
func (s *Synchronizer) AddVideoSequence(ctx context.Context, opts AddOptions) (*AppendResult, error) {
	return s.Append(ctx, opts.Sequence(KindVideo))
}

// AddAudioSequence appends one audio clip to the draft without resetting it.
func (s *Synchronizer) AddAudioSequence(ctx context.Context, opts AddOptions) (*AppendResult, error) {
	return s.Append(ctx, opts.Sequence(KindAudio))
}

// Append adds seq to the track with the synthesized id for its (type, index),
// creating that track at the end of the track list when absent.
func (s *Synchronizer) Append(ctx context.Context, seq Sequence) (*AppendResult, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	files, err := s.contentFiles()
	if err != nil {
		return nil, err
	}

	media := s.newMediaCache(ctx)
	trackID := TrackID(seq.Type, seq.ResolvedTrackIndex())
	result := &AppendResult{TrackID: trackID}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.store.Load(name)
		if err != nil {
			return nil, err
		}
		p, err := newPass(doc, s.ids, media, false)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tracks, err := p.c.tracks()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		seg := p.place(seq)
		if tracks, err = appendToTrack(tracks, seq.Type, trackID, seg); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		duration := max(p.c.duration(), seg.TargetTimerange.End())

		p.commit()
		doc["tracks"] = tracks
		doc["duration"] = duration

		if err := s.store.Save(name, doc); err != nil {
			return nil, err
		}
		s.logger.Info("sequence appended", "file", name, "track", trackID, "path", seq.Path, "duration_us", duration)

		result.Files = append(result.Files, name)
		result.Duration = duration
	}
	return result, nil
}

func appendToTrack(tracks []any, kind Kind, trackID string, seg Segment) ([]any, error) {
	for _, t := range tracks {
		m, ok := t.(map[string]any)
		if !ok || m["id"] != trackID {
			continue
		}
		if typ, _ := m["type"].(string); typ != "" && Kind(typ) != kind {
			continue
		}
		segs, err := listValue(m["segments"], "tracks.segments")
		if err != nil {
			return nil, err
		}
		m["segments"] = append(segs, seg)
		return tracks, nil
	}
	index := kind.DefaultTrackIndex()
	if _, n, ok := ParseTrackID(trackID); ok {
		index = n
	}
	track := newTrack(kind, index)
	track.Segments = append(track.Segments, seg)
	return append(tracks, track), nil
}

// contentFiles lists the content documents present in the draft. The primary
// file is required.
func (s *Synchronizer) contentFiles() ([]string, error) {
	var files []string
	for _, name := range draft.ContentFiles {
		if s.store.Exists(name) {
			files = append(files, name)
			continue
		}
		if name == draft.ContentFile {
			return nil, fmt.Errorf("%s: %w: file does not exist", name, draft.ErrUnreadable)
		}
		s.logger.Debug("content file absent, skipped", "file", name)
	}
	return files, nil
}

// mediaCache memoizes video dimensions for the duration of one operation.
type mediaCache struct {
	ctx    context.Context
	probe  Prober
	width  int
	height int
	logger *slog.Logger
	seen   map[string][2]int
}

func (s *Synchronizer) newMediaCache(ctx context.Context) *mediaCache {
	return &mediaCache{
		ctx:    ctx,
		probe:  s.opts.Probe,
		width:  s.opts.DefaultWidth,
		height: s.opts.DefaultHeight,
		logger: s.logger,
		seen:   make(map[string][2]int),
	}
}

func (m *mediaCache) Dimensions(path string) (int, int) {
	if m.probe == nil {
		return m.width, m.height
	}
	if d, ok := m.seen[path]; ok {
		return d[0], d[1]
	}
	w, h, err := m.probe.Dimensions(m.ctx, path)
	if err != nil || w <= 0 || h <= 0 {
		m.logger.Warn("probe failed, using default dimensions", "path", path, "error", err)
		w, h = m.width, m.height
	}
	m.seen[path] = [2]int{w, h}
	return w, h
}
