// Package projects is the operation layer shared by the CLI, the HTTP API and
// watch mode. It opens drafts, runs timeline passes one at a time and records
// each run in the journal.
package projects

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/capgenie/capgenie/internal/draft"
	"github.com/capgenie/capgenie/internal/export"
	"github.com/capgenie/capgenie/internal/journal"
	"github.com/capgenie/capgenie/internal/logging"
	"github.com/capgenie/capgenie/internal/timeline"
)

type ProjectService interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Sync(ctx context.Context, req SyncRequest) (*timeline.SyncResult, error)
	Append(ctx context.Context, dir string, seq timeline.Sequence) (*timeline.AppendResult, error)
	Export(ctx context.Context, req ExportRequest) (*export.Response, error)
	Inspect(ctx context.Context, dir string) (*timeline.ExportResult, error)
	Runs(ctx context.Context, limit int) ([]*journal.Run, error)
}

type Config struct {
	// Template seeds new drafts; nil selects the built-in template.
	Template *draft.Template

	// Recorder journals runs; nil disables the journal.
	Recorder *journal.Recorder

	Probe       timeline.Prober
	IDs         timeline.IDGenerator
	VideoWidth  int
	VideoHeight int
	Logger      *slog.Logger
}

type CreateRequest struct {
	Dir       string
	Overwrite bool
}

type CreateResult struct {
	Dir     string   `json:"dir"`
	Name    string   `json:"name"`
	Files   []string `json:"files"`
	Folders []string `json:"folders"`
}

// SyncRequest applies Sequences, or the timeline file at InputPath when
// Sequences is nil.
type SyncRequest struct {
	Dir       string
	InputPath string
	Sequences []timeline.Sequence
	Progress  func(done, total int)
}

type ExportRequest struct {
	Dir        string
	OutputPath string
	Format     export.Format
	FrameRate  float64
	Title      string
}

// Service serializes every pass that touches draft files, so concurrent
// callers never interleave loads and saves on the same project.
type Service struct {
	cfg    Config
	logger *slog.Logger
	mu     sync.Mutex
}

func NewService(cfg Config) *Service {
	logger := logging.OrDiscard(cfg.Logger)
	cfg.Logger = logger
	return &Service{cfg: cfg, logger: logging.WithComponent(logger, "projects")}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.Dir == "" {
		return nil, fmt.Errorf("%w: project directory is required", draft.ErrMalformedInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	run := s.cfg.Recorder.Start(ctx, journal.RunKindCreate, absDir(req.Dir), filepath.Base(req.Dir), "")
	result, err := s.create(req)
	s.finish(ctx, run, journal.Stats{}, err)
	return result, err
}

func (s *Service) create(req CreateRequest) (*CreateResult, error) {
	store, err := draft.Create(req.Dir, draft.CreateOptions{
		Overwrite: req.Overwrite,
		Template:  s.cfg.Template,
		Logger:    s.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	files, err := store.ListFiles()
	if err != nil {
		return nil, err
	}
	folders, err := store.ListFolders()
	if err != nil {
		return nil, err
	}
	return &CreateResult{Dir: store.Dir(), Name: store.Name(), Files: files, Folders: folders}, nil
}

func (s *Service) Sync(ctx context.Context, req SyncRequest) (*timeline.SyncResult, error) {
	seqs := req.Sequences
	if seqs == nil {
		if req.InputPath == "" {
			return nil, fmt.Errorf("%w: no sequences or input file given", draft.ErrMalformedInput)
		}
		loaded, err := timeline.LoadSequences(req.InputPath)
		if err != nil {
			return nil, err
		}
		seqs = loaded
	}
	if err := timeline.ValidateSequences(seqs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	syncer, store, err := s.open(req.Dir, req.Progress)
	if err != nil {
		return nil, err
	}
	run := s.cfg.Recorder.Start(ctx, journal.RunKindSync, store.Dir(), store.Name(), req.InputPath)
	result, err := syncer.Sync(ctx, seqs)
	stats := journal.Stats{}
	if result != nil {
		stats = journal.Stats{Tracks: result.Tracks, Segments: result.Segments, DurationUS: result.Duration}
	}
	s.finish(ctx, run, stats, err)
	return result, err
}

func (s *Service) Append(ctx context.Context, dir string, seq timeline.Sequence) (*timeline.AppendResult, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	syncer, store, err := s.open(dir, nil)
	if err != nil {
		return nil, err
	}
	run := s.cfg.Recorder.Start(ctx, journal.RunKindAppend, store.Dir(), store.Name(), seq.Path)
	result, err := syncer.Append(ctx, seq)
	stats := journal.Stats{}
	if result != nil {
		stats = journal.Stats{Tracks: 1, Segments: 1, DurationUS: result.Duration}
	}
	s.finish(ctx, run, stats, err)
	return result, err
}

func (s *Service) Export(ctx context.Context, req ExportRequest) (*export.Response, error) {
	if req.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path is required", draft.ErrMalformedInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	syncer, store, err := s.open(req.Dir, nil)
	if err != nil {
		return nil, err
	}
	run := s.cfg.Recorder.Start(ctx, journal.RunKindExport, store.Dir(), store.Name(), req.OutputPath)
	resp, err := s.export(syncer, req)
	stats := journal.Stats{}
	if resp != nil {
		stats = journal.Stats{Segments: resp.ClipCount, Skipped: len(resp.Skipped)}
	}
	s.finish(ctx, run, stats, err)
	return resp, err
}

func (s *Service) export(syncer *timeline.Synchronizer, req ExportRequest) (*export.Response, error) {
	result, err := syncer.Export()
	if err != nil {
		return nil, err
	}
	frameRate := req.FrameRate
	if frameRate <= 0 {
		frameRate = export.DefaultFrameRate
	}
	return export.Write(req.OutputPath, result, export.Options{
		Format:    req.Format,
		FrameRate: frameRate,
		Title:     req.Title,
	})
}

// Inspect reads the draft timeline without writing anything.
func (s *Service) Inspect(ctx context.Context, dir string) (*timeline.ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	syncer, _, err := s.open(dir, nil)
	if err != nil {
		return nil, err
	}
	return syncer.Export()
}

func (s *Service) Runs(ctx context.Context, limit int) ([]*journal.Run, error) {
	if s.cfg.Recorder == nil {
		return []*journal.Run{}, nil
	}
	runs, err := s.cfg.Recorder.Runs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []*journal.Run{}
	}
	return runs, nil
}

func (s *Service) open(dir string, progress func(done, total int)) (*timeline.Synchronizer, *draft.Store, error) {
	if dir == "" {
		return nil, nil, fmt.Errorf("%w: project directory is required", draft.ErrMalformedInput)
	}
	store, err := draft.Open(dir, s.cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	syncer := timeline.New(store, timeline.Options{
		Logger:        s.cfg.Logger,
		IDs:           s.cfg.IDs,
		Probe:         s.cfg.Probe,
		DefaultWidth:  s.cfg.VideoWidth,
		DefaultHeight: s.cfg.VideoHeight,
		Progress:      progress,
	})
	return syncer, store, nil
}

func absDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func (s *Service) finish(ctx context.Context, run *journal.Run, stats journal.Stats, err error) {
	if err != nil && run != nil {
		logging.WithProject(s.logger, run.ProjectDir).Warn("run failed", "kind", run.Kind, "run_id", run.ID, "error", err)
	} else if err != nil {
		s.logger.Warn("operation failed", "error", err)
	}
	s.cfg.Recorder.Finish(ctx, run, stats, err)
}
