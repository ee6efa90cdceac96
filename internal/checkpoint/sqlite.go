package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-history-harvester/internal/model"
)

const checkpointTable = `
CREATE TABLE IF NOT EXISTS checkpoints (
	source TEXT PRIMARY KEY,
	watermark INTEGER NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore keeps watermarks in the checkpoints table of the run database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	if _, err := db.ExecContext(ctx, checkpointTable); err != nil {
		return nil, &IOError{Op: "create table", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) (model.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, watermark FROM checkpoints`)
	if err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	defer rows.Close()

	cp := make(model.Checkpoint)
	for rows.Next() {
		var name string
		var wm int64
		if err := rows.Scan(&name, &wm); err != nil {
			return nil, &IOError{Op: "read", Err: err}
		}
		cp[name] = wm
	}
	if err := rows.Err(); err != nil {
		return nil, &IOError{Op: "read", Err: err}
	}
	return cp, nil
}

func (s *SQLiteStore) MergeAndPersist(ctx context.Context, name string, watermark int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (source, watermark, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			watermark = MAX(checkpoints.watermark, excluded.watermark),
			updated_at = excluded.updated_at`,
		name, watermark, time.Now().UTC())
	if err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}
