// Package journal persists a record of provisioning runs and their
// per-step results in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// FileName is the journal database file name inside the state directory.
const FileName = "journal.db"

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeRunning Outcome = "running"
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// Run is one recorded invocation of the provisioner.
type Run struct {
	ID         string
	Variant    string
	Version    string
	StartedAt  time.Time
	FinishedAt time.Time // zero until the run finishes
	Outcome    Outcome
	FailedStep string
	Error      string
}

// StepRecord is the recorded result of a single pipeline step.
type StepRecord struct {
	RunID    string
	Name     string
	Status   string
	Duration time.Duration
	Detail   string
}

// Journal wraps the journal database connection.
type Journal struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the journal database at path and
// brings its schema up to date.
func Open(path string) (*Journal, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Open SQLite connection with WAL mode and other optimizations
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", path)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// SQLite only supports one writer
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.PingContext(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	j := &Journal{
		conn: conn,
		path: path,
	}

	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return j, nil
}

// Path returns the journal database file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.conn != nil {
		return j.conn.Close()
	}
	return nil
}

// migrate runs all pending schema migrations using embedded SQL files.
func (j *Journal) migrate() error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(j.conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run journal migrations: %w", err)
	}

	return nil
}

// StartRun inserts a new run row and returns its ID.
func (j *Journal) StartRun(ctx context.Context, variant, version string) (string, error) {
	id := uuid.New().String()

	_, err := j.conn.ExecContext(ctx,
		`INSERT INTO runs (id, variant, version, outcome) VALUES (?, ?, ?, ?)`,
		id, variant, version, string(OutcomeRunning))
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}

	return id, nil
}

// RecordStep appends a step result to a run.
func (j *Journal) RecordStep(ctx context.Context, rec StepRecord) error {
	_, err := j.conn.ExecContext(ctx,
		`INSERT INTO run_steps (run_id, name, status, duration_ms, detail) VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Name, rec.Status, rec.Duration.Milliseconds(), rec.Detail)
	if err != nil {
		return fmt.Errorf("failed to record step %q: %w", rec.Name, err)
	}
	return nil
}

// FinishRun marks a run as finished with the given outcome. For failed
// runs, failedStep and errText identify what broke.
func (j *Journal) FinishRun(ctx context.Context, runID string, outcome Outcome, failedStep, errText string) error {
	_, err := j.conn.ExecContext(ctx,
		`UPDATE runs SET finished_at = CURRENT_TIMESTAMP, outcome = ?, failed_step = ?, error = ? WHERE id = ?`,
		string(outcome), failedStep, errText, runID)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := j.conn.QueryContext(ctx,
		`SELECT id, variant, version, started_at, finished_at, outcome, failed_step, error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var outcome string
		if err := rows.Scan(&r.ID, &r.Variant, &r.Version, &r.StartedAt, &finished, &outcome, &r.FailedStep, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		r.Outcome = Outcome(outcome)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	return runs, nil
}

// Steps returns the recorded steps of a run in execution order.
func (j *Journal) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := j.conn.QueryContext(ctx,
		`SELECT run_id, name, status, duration_ms, detail FROM run_steps WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var rec StepRecord
		var ms int64
		if err := rows.Scan(&rec.RunID, &rec.Name, &rec.Status, &ms, &rec.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		rec.Duration = time.Duration(ms) * time.Millisecond
		steps = append(steps, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read steps: %w", err)
	}

	return steps, nil
}
