package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go-history-harvester/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// DB records harvest runs, their per-source outcomes and alerts.
type DB struct {
	db *sql.DB
}

// Initialize DB connection
func InitDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; the checkpoint writer, the notifier and
	// the coordinator share this handle.
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		sources INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		abandoned INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);
	`
	outcomeTable := `
	CREATE TABLE IF NOT EXISTS run_sources (
		run_id TEXT NOT NULL,
		source TEXT NOT NULL,
		state TEXT NOT NULL,
		start_watermark INTEGER NOT NULL,
		final_watermark INTEGER NOT NULL,
		record_count INTEGER NOT NULL,
		documents_sent INTEGER NOT NULL,
		conversion_errors INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		query_ns INTEGER NOT NULL,
		upload_ns INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		PRIMARY KEY (run_id, source)
	);
	`
	alertTable := `
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`

	for _, ddl := range []string{runTable, outcomeTable, alertTable} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &DB{db: db}, nil
}

// Handle exposes the connection for stores sharing the database file.
func (s *DB) Handle() *sql.DB { return s.db }

func (s *DB) Close() error { return s.db.Close() }

// CreateRun stores a new run in the running state
func (s *DB) CreateRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		runID, model.RunRunning, startedAt.UTC())
	return err
}

// FinishRun updates the run row and stores every outcome of summary
func (s *DB) FinishRun(ctx context.Context, summary model.RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ?, sources = ?, completed = ?, failed = ?,
			abandoned = ?, records = ?, error = ?
		WHERE id = ?`,
		summary.Status, summary.FinishedAt.UTC(), summary.Sources, summary.Completed, summary.Failed,
		summary.Abandoned, summary.Records, summary.Error, summary.RunID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", summary.RunID, ErrNotFound)
	}

	for _, o := range summary.Outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO run_sources (run_id, source, state, start_watermark, final_watermark,
				record_count, documents_sent, conversion_errors, completed, error, query_ns, upload_ns, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			summary.RunID, o.Source, string(o.State), o.StartWatermark, o.FinalWatermark,
			o.RecordCount, o.DocumentsSent, o.ConversionErrors, o.CompletedWithoutTimeout, o.Error,
			int64(o.QueryDuration), int64(o.UploadDuration), int64(o.Duration))
		if err != nil {
			return fmt.Errorf("save outcome %s: %w", o.Source, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the latest runs without their outcomes
func (s *DB) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, started_at, finished_at, sources, completed, failed, abandoned, records, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.RunSummary{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun fetches a run with its per-source outcomes
func (s *DB) GetRun(ctx context.Context, runID string) (*model.RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, started_at, finished_at, sources, completed, failed, abandoned, records, error
		FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, state, start_watermark, final_watermark, record_count, documents_sent,
			conversion_errors, completed, error, query_ns, upload_ns, duration_ns
		FROM run_sources WHERE run_id = ? ORDER BY source`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o model.HarvestOutcome
		var state string
		var query, upload, total int64
		if err := rows.Scan(&o.Source, &state, &o.StartWatermark, &o.FinalWatermark, &o.RecordCount,
			&o.DocumentsSent, &o.ConversionErrors, &o.CompletedWithoutTimeout, &o.Error,
			&query, &upload, &total); err != nil {
			return nil, err
		}
		o.State = model.HarvestState(state)
		o.QueryDuration, o.UploadDuration, o.Duration = time.Duration(query), time.Duration(upload), time.Duration(total)
		r.Outcomes = append(r.Outcomes, o)
	}
	return &r, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (model.RunSummary, error) {
	var r model.RunSummary
	var finished sql.NullTime
	err := row.Scan(&r.RunID, &r.Status, &r.StartedAt, &finished, &r.Sources, &r.Completed,
		&r.Failed, &r.Abandoned, &r.Records, &r.Error)
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return r, err
}

// SaveAlert records an alert raised during a run
func (s *DB) SaveAlert(ctx context.Context, a model.Alert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO alerts (run_id, subject, message, created_at) VALUES (?, ?, ?, ?)`,
		a.RunID, a.Subject, a.Message, a.CreatedAt.UTC())
	return err
}

// ListAlerts returns the latest alerts, optionally restricted to one run
func (s *DB) ListAlerts(ctx context.Context, runID string, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, run_id, subject, message, created_at FROM alerts`
	args := []interface{}{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []model.Alert{}
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.RunID, &a.Subject, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
