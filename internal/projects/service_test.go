package projects

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capgenie/capgenie/internal/draft"
	"github.com/capgenie/capgenie/internal/export"
	"github.com/capgenie/capgenie/internal/journal"
	"github.com/capgenie/capgenie/internal/timeline"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := journal.New(filepath.Join(t.TempDir(), journal.Filename), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewService(Config{
		Recorder: journal.NewRecorder(journal.NewRepository(db.Conn()), nil),
	})
}

func f64(v float64) *float64 { return &v }

func sampleSequences() []timeline.Sequence {
	return []timeline.Sequence{
		{Path: "/media/a.mp4", StartTime: 0, EndTime: 4, Type: timeline.KindVideo, FadeInDuration: 0.5},
		{Path: "/media/music.mp3", StartTime: 0, EndTime: 6, Volume: f64(0.3), Type: timeline.KindAudio},
	}
}

func TestService_CreateSyncExport(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "edit")

	created, err := svc.Create(ctx, CreateRequest{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "edit", created.Name)
	assert.Contains(t, created.Files, draft.ContentFile)

	var calls int
	synced, err := svc.Sync(ctx, SyncRequest{
		Dir:       dir,
		Sequences: sampleSequences(),
		Progress:  func(done, total int) { calls++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, synced.Tracks)
	assert.Equal(t, int64(6_000_000), synced.Duration)
	assert.Positive(t, calls)

	out := filepath.Join(t.TempDir(), "out.json")
	resp, err := svc.Export(ctx, ExportRequest{Dir: dir, OutputPath: out})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ClipCount)
	assert.Equal(t, export.FormatJSON, resp.Format)

	seqs, err := timeline.LoadSequences(out)
	require.NoError(t, err)
	require.Len(t, seqs, 2)
	assert.Equal(t, "/media/a.mp4", seqs[0].Path)

	runs, err := svc.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	kinds := map[string]string{}
	for _, r := range runs {
		kinds[r.Kind] = r.Status
	}
	assert.Equal(t, map[string]string{
		journal.RunKindCreate: journal.RunStatusCompleted,
		journal.RunKindSync:   journal.RunStatusCompleted,
		journal.RunKindExport: journal.RunStatusCompleted,
	}, kinds)
}

func TestService_SyncFromInputFile(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "edit")
	_, err := svc.Create(ctx, CreateRequest{Dir: dir})
	require.NoError(t, err)

	in := filepath.Join(t.TempDir(), "seq.json")
	require.NoError(t, timeline.WriteSequences(in, sampleSequences()))

	result, err := svc.Sync(ctx, SyncRequest{Dir: dir, InputPath: in})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Segments)

	runs, err := svc.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, in, runs[0].InputPath)
	assert.Equal(t, 2, runs[0].Segments)
}

func TestService_FailedRunsAreJournaled(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := svc.Sync(ctx, SyncRequest{Dir: missing, Sequences: sampleSequences()})
	require.ErrorIs(t, err, draft.ErrNotFound)

	dir := filepath.Join(t.TempDir(), "edit")
	_, err = svc.Create(ctx, CreateRequest{Dir: dir})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Dir: dir})
	require.ErrorIs(t, err, draft.ErrAlreadyExists)

	runs, err := svc.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	var failed int
	for _, r := range runs {
		if r.Status == journal.RunStatusFailed {
			failed++
			assert.NotEmpty(t, r.Error)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestService_AppendAndInspect(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "edit")
	_, err := svc.Create(ctx, CreateRequest{Dir: dir})
	require.NoError(t, err)

	res, err := svc.Append(ctx, dir, timeline.Sequence{
		Path: "/media/voice.wav", StartTime: 1, EndTime: 3, Type: timeline.KindAudio,
	})
	require.NoError(t, err)
	assert.Equal(t, "AUDIO-TRACK-1", res.TrackID)

	result, err := svc.Inspect(ctx, dir)
	require.NoError(t, err)
	require.Len(t, result.Sequences, 1)
	assert.Equal(t, timeline.KindAudio, result.Sequences[0].Type)
}

func TestService_ValidatesRequests(t *testing.T) {
	svc := NewService(Config{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{})
	assert.ErrorIs(t, err, draft.ErrMalformedInput)
	_, err = svc.Sync(ctx, SyncRequest{Dir: t.TempDir()})
	assert.ErrorIs(t, err, draft.ErrMalformedInput)
	_, err = svc.Export(ctx, ExportRequest{Dir: t.TempDir()})
	assert.ErrorIs(t, err, draft.ErrMalformedInput)

	runs, err := svc.Runs(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestService_SerializesConcurrentPasses(t *testing.T) {
	svc := NewService(Config{})
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "edit")
	_, err := svc.Create(ctx, CreateRequest{Dir: dir})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Append(ctx, dir, timeline.Sequence{
				Path: "/media/a.mp4", StartTime: 0, EndTime: 1, Type: timeline.KindVideo,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	result, err := svc.Inspect(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, result.Sequences, 8)

	_, err = os.Stat(filepath.Join(dir, draft.ContentBackupFile))
	require.NoError(t, err)
}
