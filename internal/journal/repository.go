package journal

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	UpsertProject(ctx context.Context, p *Project) error
	GetProjectByDir(ctx context.Context, dir string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)

	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListRunsByProject(ctx context.Context, dir string, limit int) ([]*Run, error)
	FinishRun(ctx context.Context, id, status, errorMsg string, stats Stats) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertProject records a project by directory. An existing row keeps its id
// and creation time; p is updated to match the stored row.
func (r *SQLiteRepository) UpsertProject(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	ts := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, dir, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(dir) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`, p.ID, p.Dir, p.Name, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return err
	}

	stored, err := r.GetProjectByDir(ctx, p.Dir)
	if err != nil {
		return err
	}
	if stored != nil {
		*p = *stored
	}
	return nil
}

func (r *SQLiteRepository) GetProjectByDir(ctx context.Context, dir string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, dir, name, created_at, updated_at FROM projects WHERE dir = ?
	`, dir)

	var p Project
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Dir, &p.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, dir, name, created_at, updated_at FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Dir, &p.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = NewID()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	ts := now()
	run.CreatedAt = ts
	run.UpdatedAt = ts

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, status, project_dir, input_path, tracks, segments, skipped, duration_us, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.Status, run.ProjectDir, nullString(run.InputPath),
		run.Tracks, run.Segments, run.Skipped, run.DurationUS, nullString(run.Error),
		formatTime(run.CreatedAt), formatTime(run.UpdatedAt))
	return err
}

const runColumns = `id, kind, status, project_dir, input_path, tracks, segments, skipped, duration_us, error, created_at, updated_at`

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collectRuns(rows)
}

func (r *SQLiteRepository) ListRunsByProject(ctx context.Context, dir string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE project_dir = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, dir, limit)
	if err != nil {
		return nil, err
	}
	return collectRuns(rows)
}

func (r *SQLiteRepository) FinishRun(ctx context.Context, id, status, errorMsg string, stats Stats) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, tracks = ?, segments = ?, skipped = ?, duration_us = ?, updated_at = ?
		WHERE id = ?
	`, status, nullString(errorMsg), stats.Tracks, stats.Segments, stats.Skipped, stats.DurationUS, formatTime(now()), id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var inputPath, errMsg sql.NullString
	var createdAt, updatedAt string
	err := s.Scan(&run.ID, &run.Kind, &run.Status, &run.ProjectDir, &inputPath,
		&run.Tracks, &run.Segments, &run.Skipped, &run.DurationUS, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.InputPath = inputPath.String
	run.Error = errMsg.String
	run.CreatedAt = parseTime(createdAt)
	run.UpdatedAt = parseTime(updatedAt)
	return &run, nil
}

func collectRuns(rows *sql.Rows) ([]*Run, error) {
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
