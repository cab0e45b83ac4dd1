// Package store keeps a history of analysis runs in a local SQLite
// database, so past statistics, simulations and envelope tests can be
// listed and inspected later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound reports a lookup for an unknown run ID.
var ErrRunNotFound = eris.New("store: run not found")

// Run is one recorded analysis invocation.
type Run struct {
	ID        string         `json:"id"`
	Command   string         `json:"command"`
	Statistic string         `json:"statistic,omitempty"`
	Process   string         `json:"process,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Summary   map[string]any `json:"summary,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// RunFilter narrows ListRuns results.
type RunFilter struct {
	Command   string
	Statistic string
	Limit     int
	Offset    int
}

// SQLiteStore persists runs using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	command    TEXT NOT NULL,
	statistic  TEXT,
	process    TEXT,
	params     TEXT,
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_runs_statistic ON runs(statistic);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "store: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run and returns it with ID and timestamp filled in.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) (*Run, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	paramsJSON, err := marshalNullable(run.Params)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal params")
	}
	summaryJSON, err := marshalNullable(run.Summary)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal summary")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, statistic, process, params, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Statistic, run.Process, paramsJSON, summaryJSON, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: insert run")
	}
	return &run, nil
}

// GetRun returns the run with the given ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, command, statistic, process, params, summary, created_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

// ListRuns returns runs matching the filter, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, command, statistic, process, params, summary, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Command != "" {
		query += ` AND command = ?`
		args = append(args, filter.Command)
	}
	if filter.Statistic != "" {
		query += ` AND statistic = ?`
		args = append(args, filter.Statistic)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "store: list runs iterate")
}

// DeleteRunsBefore removes runs created before the cutoff and reports
// how many were deleted.
func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE created_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "store: delete runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "store: rows affected")
}

// helpers

func marshalNullable(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var paramsJSON, summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Command, &r.Statistic, &r.Process, &paramsJSON, &summaryJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}

	if paramsJSON.Valid {
		if err := json.Unmarshal([]byte(paramsJSON.String), &r.Params); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal params")
		}
	}
	if summaryJSON.Valid {
		if err := json.Unmarshal([]byte(summaryJSON.String), &r.Summary); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal summary")
		}
	}
	return &r, nil
}
