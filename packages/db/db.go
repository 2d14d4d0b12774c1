// Package db stores run history in SQLite.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

// timeLayout has a fixed width so that stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Client represents a history database client
type Client struct {
	db           *sql.DB
	dataSource   string
	queryTimeout time.Duration
}

// NewClient opens the database, verifies the connection and creates the
// history tables when they are missing.
func NewClient(connectionString string) (*Client, error) {
	dsn, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c := &Client{
		db:           db,
		dataSource:   dsn,
		queryTimeout: 30 * time.Second,
	}
	if err := c.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	suite        TEXT NOT NULL,
	base_url     TEXT NOT NULL,
	token_source TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	passed       INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	success      INTEGER NOT NULL,
	p50_ms       REAL NOT NULL DEFAULT 0,
	p95_ms       REAL NOT NULL DEFAULT 0,
	p99_ms       REAL NOT NULL DEFAULT 0,
	teardown     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_suite_started ON runs (suite, started_at);
CREATE TABLE IF NOT EXISTS case_results (
	run_id      TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	ord         INTEGER NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, ord, name)
);
`

func (c *Client) migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return nil
}

// SaveRun stores a run and its cases in one transaction
func (c *Client) SaveRun(ctx context.Context, run *RunRecord) error {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, suite, base_url, token_source, started_at, duration_ms, passed, failed, skipped, success, p50_ms, p95_ms, p99_ms, teardown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Suite, run.BaseURL, run.TokenSource, run.StartedAt.UTC().Format(timeLayout),
		run.DurationMs, run.Passed, run.Failed, run.Skipped, run.Success,
		run.P50Ms, run.P95Ms, run.P99Ms, run.TeardownError)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for _, cr := range run.Cases {
		_, err = tx.ExecContext(ctx, `INSERT INTO case_results
			(run_id, ord, name, status, status_code, duration_ms, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, cr.Order, cr.Name, cr.Status, cr.StatusCode, cr.DurationMs, cr.Error)
		if err != nil {
			return fmt.Errorf("failed to insert case %s: %w", cr.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, suite, base_url, token_source, started_at, duration_ms, passed, failed, skipped, success, p50_ms, p95_ms, p99_ms, teardown`

// ListRuns returns the most recent runs first, without their cases. An
// empty suite lists every suite.
func (c *Client) ListRuns(ctx context.Context, suite string, limit int) ([]*RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if suite != "" {
		query += ` WHERE suite = ?`
		args = append(args, suite)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	runs := make([]*RunRecord, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recent run of suite, or ErrNotFound
func (c *Client) LastRun(ctx context.Context, suite string) (*RunRecord, error) {
	runs, err := c.ListRuns(ctx, suite, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return runs[0], nil
}

// GetRun returns a run with its cases in execution order
func (c *Client) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	row := c.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT ord, name, status, status_code, duration_ms, error
		FROM case_results WHERE run_id = ? ORDER BY ord, name`, id)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cr CaseRecord
		if err := rows.Scan(&cr.Order, &cr.Name, &cr.Status, &cr.StatusCode, &cr.DurationMs, &cr.Error); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		run.Cases = append(run.Cases, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return run, nil
}

// Prune keeps the newest keep runs of suite and deletes the rest
func (c *Client) Prune(ctx context.Context, suite string, keep int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const stale = `SELECT id FROM runs WHERE suite = ? ORDER BY started_at DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM case_results WHERE run_id IN (`+stale+`)`, suite, keep); err != nil {
		return 0, fmt.Errorf("failed to prune cases: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, suite, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var (
		run       RunRecord
		startedAt string
	)
	err := s.Scan(&run.ID, &run.Suite, &run.BaseURL, &run.TokenSource, &startedAt,
		&run.DurationMs, &run.Passed, &run.Failed, &run.Skipped, &run.Success,
		&run.P50Ms, &run.P95Ms, &run.P99Ms, &run.TeardownError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	return &run, nil
}

// parseConnectionString turns a history location into a SQLite DSN.
// Supported formats:
// - sqlite://path/to/history.db
// - sqlite:./history.db
// - ./history.db
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)
	if connStr == "" {
		return "", errors.New("history database path is empty")
	}

	if strings.HasPrefix(connStr, "sqlite://") {
		connStr = strings.TrimPrefix(connStr, "sqlite://")
	} else if strings.HasPrefix(connStr, "sqlite:") {
		connStr = strings.TrimPrefix(connStr, "sqlite:")
	} else if strings.Contains(connStr, "://") {
		return "", fmt.Errorf("unsupported database scheme in %q (only sqlite is supported)", connStr)
	}

	if connStr == "" {
		return "", errors.New("history database path is empty")
	}
	if !strings.Contains(connStr, "?") {
		connStr += "?_foreign_keys=on"
	}
	return connStr, nil
}
