package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"go-history-harvester/internal/model"
)

// Supported SQL dialects, named after their database/sql driver.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// SQLSink upserts documents into a documents table keyed by (partition, id).
type SQLSink struct {
	db      *sql.DB
	dialect string
	upsert  string
}

// OpenSQL opens a database for SQLSink with the driver matching dialect.
func OpenSQL(dialect, dsn string) (*sql.DB, error) {
	if dialect != DialectSQLite && dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// NewSQLSink creates the documents table if needed.
func NewSQLSink(ctx context.Context, db *sql.DB, dialect string) (*SQLSink, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	var upsert string
	switch dialect {
	case DialectSQLite:
		upsert = `INSERT INTO documents (partition_key, doc_id, body, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(partition_key, doc_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
	case DialectPostgres:
		upsert = `INSERT INTO documents (partition_key, doc_id, body, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (partition_key, doc_id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
  partition_key TEXT NOT NULL,
  doc_id TEXT NOT NULL,
  body TEXT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (partition_key, doc_id)
);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLSink{db: db, dialect: dialect, upsert: upsert}, nil
}

// Write stores the batch in one transaction.
func (s *SQLSink) Write(ctx context.Context, partition string, docs []model.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	fail := func(err error) error {
		return &TransportError{Sink: s.dialect, Partition: partition, Err: err}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.upsert)
	if err != nil {
		return fail(err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, d := range docs {
		body, err := json.Marshal(d.Doc)
		if err != nil {
			return fail(fmt.Errorf("encode %s: %w", d.ID, err))
		}
		if _, err := stmt.ExecContext(ctx, partition, d.ID, string(body), now); err != nil {
			return fail(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fail(err)
	}
	return nil
}

// Count returns the number of stored documents in partition.
func (s *SQLSink) Count(ctx context.Context, partition string) (int, error) {
	q := `SELECT COUNT(*) FROM documents WHERE partition_key = ?`
	if s.dialect == DialectPostgres {
		q = `SELECT COUNT(*) FROM documents WHERE partition_key = $1`
	}
	var n int
	err := s.db.QueryRowContext(ctx, q, partition).Scan(&n)
	return n, err
}
