package journal

import (
	"context"
	"log/slog"
)

// Recorder writes run history on behalf of the CLI, API and watcher. Journal
// failures are logged and never fail the operation being recorded. A nil
// *Recorder records nothing.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{repo: repo, logger: logger.With("component", "journal")}
}

// Start records a running run and the project it targets.
func (r *Recorder) Start(ctx context.Context, kind, projectDir, projectName, input string) *Run {
	if r == nil {
		return nil
	}
	if err := r.repo.UpsertProject(ctx, &Project{Dir: projectDir, Name: projectName}); err != nil {
		r.logger.Warn("failed to record project", "project", projectDir, "error", err)
	}
	run := &Run{Kind: kind, ProjectDir: projectDir, InputPath: input}
	if err := r.repo.CreateRun(ctx, run); err != nil {
		r.logger.Warn("failed to record run", "kind", kind, "error", err)
		return nil
	}
	return run
}

// Finish marks run completed, or failed when opErr is non-nil.
func (r *Recorder) Finish(ctx context.Context, run *Run, stats Stats, opErr error) {
	if r == nil || run == nil {
		return
	}
	status, msg := RunStatusCompleted, ""
	if opErr != nil {
		status, msg = RunStatusFailed, opErr.Error()
	}
	if err := r.repo.FinishRun(ctx, run.ID, status, msg, stats); err != nil {
		r.logger.Warn("failed to finish run", "run_id", run.ID, "error", err)
	}
}

// Runs lists recent runs, newest first.
func (r *Recorder) Runs(ctx context.Context, limit int) ([]*Run, error) {
	if r == nil {
		return nil, nil
	}
	return r.repo.ListRuns(ctx, limit)
}
