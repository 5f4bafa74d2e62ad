package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capgenie/capgenie/internal/draft"
)

func TestAddVideoSequence_CreatesDefaultTrack(t *testing.T) {
	store, s := newProject(t, Options{})

	res, err := s.AddVideoSequence(context.Background(), AddOptions{Path: "/m/a.mp4", StartTime: 0, EndTime: 4})
	require.NoError(t, err)
	assert.Equal(t, "TRACK-0", res.TrackID)
	assert.Equal(t, int64(4_000_000), res.Duration)
	assert.Equal(t, []string{draft.ContentFile, draft.ContentBackupFile}, res.Files)

	doc := loadNative(t, store, draft.ContentFile)
	require.Len(t, doc.Tracks, 1)
	assert.Equal(t, "Track 0", doc.Tracks[0].Name)
	require.Len(t, doc.Materials.Videos, 1)
	assert.Nil(t, doc.Materials.Videos[0].AudioFade)
}

func TestAppend_ReusesTrackAndKeepsExisting(t *testing.T) {
	store, s := newProject(t, Options{})
	ctx := context.Background()

	_, err := s.Sync(ctx, []Sequence{
		{Path: "/m/a.mp4", StartTime: 0, EndTime: 10, Type: KindVideo},
		{Path: "/m/m.mp3", StartTime: 0, EndTime: 10, FadeInDuration: 1, Type: KindAudio},
	})
	require.NoError(t, err)

	_, err = s.AddVideoSequence(ctx, AddOptions{Path: "/m/a.mp4", StartTime: 10, EndTime: 12, SourceIn: f64(3)})
	require.NoError(t, err)
	res, err := s.AddAudioSequence(ctx, AddOptions{Path: "/m/vo.wav", StartTime: 2, EndTime: 5, FadeOutDuration: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "AUDIO-TRACK-1", res.TrackID)
	assert.Equal(t, int64(12_000_000), res.Duration)

	doc := loadNative(t, store, draft.ContentFile)
	require.Len(t, doc.Tracks, 2)
	assert.Len(t, doc.Tracks[0].Segments, 2)
	assert.Len(t, doc.Tracks[1].Segments, 2)
	assert.Len(t, doc.Materials.Videos, 2)
	assert.Len(t, doc.Materials.Audios, 2)
	assert.Len(t, doc.Materials.AudioFades, 2)
	assert.Len(t, doc.Materials.Canvases, 3, "a.mp4 reused, m.mp3 and vo.wav added")
	assert.Equal(t, int64(12_000_000), doc.Duration)

	appended := doc.Tracks[0].Segments[1]
	assert.Equal(t, doc.Tracks[0].Segments[0].ExtraMaterialRefs, appended.ExtraMaterialRefs)
	assert.Equal(t, TimeRange{Start: 3_000_000, Duration: 2_000_000}, appended.SourceTimerange)
}

func TestAppend_NewTrackGoesLast(t *testing.T) {
	store, s := newProject(t, Options{})
	ctx := context.Background()

	_, err := s.AddAudioSequence(ctx, AddOptions{Path: "/m/a.wav", StartTime: 0, EndTime: 1})
	require.NoError(t, err)
	_, err = s.AddVideoSequence(ctx, AddOptions{Path: "/m/v.mp4", StartTime: 0, EndTime: 1, TrackIndex: intp(3)})
	require.NoError(t, err)

	doc := loadNative(t, store, draft.ContentFile)
	require.Len(t, doc.Tracks, 2)
	assert.Equal(t, "AUDIO-TRACK-1", doc.Tracks[0].ID)
	assert.Equal(t, "TRACK-3", doc.Tracks[1].ID)
	assert.Equal(t, "Track 3", doc.Tracks[1].Name)
}

func TestAppend_KeepsLongerExistingDuration(t *testing.T) {
	store, s := newProject(t, Options{})
	ctx := context.Background()

	_, err := s.Sync(ctx, []Sequence{{Path: "/m/a.mp4", StartTime: 0, EndTime: 30, Type: KindVideo}})
	require.NoError(t, err)
	res, err := s.AddAudioSequence(ctx, AddOptions{Path: "/m/b.wav", StartTime: 1, EndTime: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(30_000_000), res.Duration)
	assert.Equal(t, int64(30_000_000), loadNative(t, store, draft.ContentFile).Duration)
}

func TestAppend_ExportsBack(t *testing.T) {
	_, s := newProject(t, Options{})
	ctx := context.Background()

	_, err := s.AddAudioSequence(ctx, AddOptions{Path: "/m/b.wav", StartTime: 1, EndTime: 2.5, Volume: f64(0.4), FadeInDuration: 0.5})
	require.NoError(t, err)

	res, err := s.Export()
	require.NoError(t, err)
	require.Len(t, res.Sequences, 1)
	assertSameSequence(t, Sequence{
		Path: "/m/b.wav", StartTime: 1, EndTime: 2.5, Volume: f64(0.4), FadeInDuration: 0.5, Type: KindAudio,
	}, res.Sequences[0])
}

func TestAppend_RejectsInvalid(t *testing.T) {
	_, s := newProject(t, Options{})

	_, err := s.AddVideoSequence(context.Background(), AddOptions{Path: "/m/a.mp4", StartTime: 2, EndTime: 1})
	assert.ErrorIs(t, err, draft.ErrMalformedInput)
	_, err = s.AddAudioSequence(context.Background(), AddOptions{StartTime: 0, EndTime: 1})
	assert.ErrorIs(t, err, draft.ErrMalformedInput)
}
