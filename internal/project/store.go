// Package project persists timeline snapshots in SQLite.
package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaki95/timeline-editor/internal/domain"
)

var ErrNotFound = errors.New("project not found")

// Summary is a listing entry.
type Summary struct {
	Name      string    `json:"name"`
	Clips     int       `json:"clips"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SQLiteStore stores one snapshot per project name.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: slog.Default().With("component", "project")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		name       TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tracks (
		project  TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		id       TEXT NOT NULL,
		kind     TEXT NOT NULL,
		name     TEXT NOT NULL,
		muted    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (project, id)
	);
	CREATE TABLE IF NOT EXISTS clips (
		project         TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		position        INTEGER NOT NULL,
		id              TEXT NOT NULL,
		track_id        TEXT NOT NULL,
		kind            TEXT NOT NULL,
		source          TEXT NOT NULL,
		name            TEXT NOT NULL,
		start_time      REAL NOT NULL,
		duration        REAL NOT NULL,
		media_offset    REAL NOT NULL,
		source_duration REAL NOT NULL,
		width           INTEGER NOT NULL DEFAULT 0,
		height          INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (project, id)
	);
	CREATE INDEX IF NOT EXISTS idx_clips_project ON clips(project, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the stored snapshot for name.
func (s *SQLiteStore) Save(ctx context.Context, name string, snap domain.Snapshot) error {
	if name == "" {
		return fmt.Errorf("project name is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projects (name, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at`,
		name, now, now); err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}

	for _, table := range []string{"tracks", "clips"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE project = ?", name); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, t := range snap.Tracks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (project, position, id, kind, name, muted) VALUES (?, ?, ?, ?, ?, ?)`,
			name, i, t.ID, string(t.Kind), t.Name, t.Muted); err != nil {
			return fmt.Errorf("insert track %s: %w", t.ID, err)
		}
	}

	for i, c := range snap.Clips {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clips (project, position, id, track_id, kind, source, name,
				start_time, duration, media_offset, source_duration, width, height)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			name, i, c.ID, c.TrackID, string(c.Kind), c.Source, c.Name,
			c.Start, c.Duration, c.Offset, c.SourceDuration, c.Width, c.Height); err != nil {
			return fmt.Errorf("insert clip %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("Saved project", "name", name, "tracks", len(snap.Tracks), "clips", len(snap.Clips))
	return nil
}

// Load returns the snapshot stored under name.
func (s *SQLiteStore) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE name = ?`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("query project: %w", err)
	}

	snap := domain.Snapshot{Tracks: []domain.Track{}, Clips: []domain.Clip{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, muted FROM tracks WHERE project = ? ORDER BY position`, name)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("query tracks: %w", err)
	}
	for rows.Next() {
		var t domain.Track
		var kind string
		if err := rows.Scan(&t.ID, &kind, &t.Name, &t.Muted); err != nil {
			rows.Close()
			return domain.Snapshot{}, fmt.Errorf("scan track: %w", err)
		}
		t.Kind = domain.MediaKind(kind)
		snap.Tracks = append(snap.Tracks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, track_id, kind, source, name, start_time, duration, media_offset,
			source_duration, width, height
		FROM clips WHERE project = ? ORDER BY position`, name)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Clip
		var kind string
		if err := rows.Scan(&c.ID, &c.TrackID, &kind, &c.Source, &c.Name, &c.Start, &c.Duration,
			&c.Offset, &c.SourceDuration, &c.Width, &c.Height); err != nil {
			return domain.Snapshot{}, fmt.Errorf("scan clip: %w", err)
		}
		c.Kind = domain.MediaKind(kind)
		snap.Clips = append(snap.Clips, c)
	}
	return snap, rows.Err()
}

// List returns every project, most recently saved first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.name, p.updated_at, COUNT(c.id)
		FROM projects p LEFT JOIN clips c ON c.project = p.name
		GROUP BY p.name
		ORDER BY p.updated_at DESC, p.name`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var updated string
		if err := rows.Scan(&sum.Name, &updated, &sum.Clips); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a project.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
