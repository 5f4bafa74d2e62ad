// Package journal keeps a local SQLite record of the projects the tool has
// touched and of every create, sync, export and append run against them.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Filename is the journal database file inside the data directory.
const Filename = "capgenie.db"

// pragmas are applied by the driver to every connection it opens.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + filepath.ToSlash(path) + "?" + q.Encode()
}

// New opens the journal at dbPath, creating the file and its directory on
// first use, and brings the schema up to date. Runs left in the running state
// by an earlier process are marked interrupted.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dbPath, err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, logger: logger}
	if err := db.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal %s: %w", dbPath, err)
	}

	if err := db.markInterruptedRuns(); err != nil && logger != nil {
		logger.Warn("failed to mark interrupted runs", "error", err)
	}
	return db, nil
}

func (d *DB) init() error {
	if err := d.conn.Ping(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if err := d.migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS _migrations (
    name TEXT PRIMARY KEY,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
)`

// migrate applies embedded migrations in name order, each in its own
// transaction together with its _migrations row.
func (d *DB) migrate() error {
	if _, err := d.conn.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	applied, err := d.appliedMigrations()
	if err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := d.applyMigration(name); err != nil {
			return err
		}
		if d.logger != nil {
			d.logger.Debug("applied migration", "name", name)
		}
	}
	return nil
}

func (d *DB) appliedMigrations() (map[string]bool, error) {
	rows, err := d.conn.Query("SELECT name FROM _migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (d *DB) applyMigration(name string) error {
	content, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", name, err)
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return tx.Commit()
}

// markInterruptedRuns fails runs left in the running state by a crashed process.
func (d *DB) markInterruptedRuns() error {
	_, err := d.conn.ExecContext(context.Background(),
		`UPDATE runs SET status = ?, error = 'interrupted', updated_at = ? WHERE status = ?`,
		RunStatusFailed, formatTime(now()), RunStatusRunning)
	return err
}
