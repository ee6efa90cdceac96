package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-history-harvester/internal/api/handler"
	"go-history-harvester/internal/config"
	"go-history-harvester/internal/model"
	"go-history-harvester/internal/sink"
)

func writeHistory(t *testing.T, dir, name string, ecs ...int64) {
	t.Helper()
	var b strings.Builder
	for i, ts := range ecs {
		fmt.Fprintf(&b, `{"GlobalJobId":"%s#%d.0#100","JobStatus":4,"CompletionDate":%d,"EnteredCurrentStatus":%d,"QDate":%d,"Owner":"alice"}`+"\n",
			name, i, ts, ts, ts-3600)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".jsonl"), []byte(b.String()), 0o644))
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	hist := filepath.Join(dir, "history")
	require.NoError(t, os.Mkdir(hist, 0o755))

	cfg := config.Default()
	cfg.LogLevel = "OFF"
	cfg.DBPath = filepath.Join(dir, "harvester.db")
	cfg.CheckpointFile = filepath.Join(dir, "checkpoint.json")
	cfg.Source.Dir = hist
	cfg.Sink.Type = "sql"
	cfg.Sink.SQL = config.SQLConfig{Dialect: sink.DialectSQLite, DSN: filepath.Join(dir, "documents.db")}
	require.NoError(t, cfg.Validate())
	return cfg, hist
}

func countDocuments(t *testing.T, dsn string) int {
	t.Helper()
	db, err := sql.Open(sink.DialectSQLite, dsn)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n))
	return n
}

func TestRunOnceEndToEnd(t *testing.T) {
	cfg, hist := testConfig(t)
	now := time.Now().Unix()
	writeHistory(t, hist, "schedd1", now-300, now-200, now-100)
	writeHistory(t, hist, "schedd2", now-50)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	summary, err := a.RunOnce(context.Background(), model.TriggerRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, summary.Status)
	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 4, summary.Records)
	assert.Equal(t, 4, countDocuments(t, cfg.Sink.SQL.DSN))

	cp, err := a.cp.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Checkpoint{"schedd1": now - 100, "schedd2": now - 50}, cp)

	stored, err := a.db.GetRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Len(t, stored.Outcomes, 2)

	// The next run resumes at the watermark; re-read ads keep their ids.
	summary, err = a.RunOnce(context.Background(), model.TriggerRequest{Sources: []string{"schedd1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, 4, countDocuments(t, cfg.Sink.SQL.DSN))
}

func TestRunOnceReadOnlyRequest(t *testing.T) {
	cfg, hist := testConfig(t)
	now := time.Now().Unix()
	writeHistory(t, hist, "schedd1", now-10)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	summary, err := a.RunOnce(context.Background(), model.TriggerRequest{ReadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, 0, summary.Outcomes[0].DocumentsSent)
	assert.Equal(t, 0, countDocuments(t, cfg.Sink.SQL.DSN))
}

func TestTrigger(t *testing.T) {
	cfg, hist := testConfig(t)
	writeHistory(t, hist, "schedd1", time.Now().Unix()-10)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	runID, err := a.Trigger(model.TriggerRequest{DryRun: true})
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	a.wg.Wait()

	run, err := a.db.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 0, run.Records)

	a.running.Store(true)
	_, err = a.Trigger(model.TriggerRequest{})
	assert.ErrorIs(t, err, handler.ErrRunInProgress)
	_, err = a.RunOnce(context.Background(), model.TriggerRequest{})
	assert.ErrorIs(t, err, handler.ErrRunInProgress)
	a.running.Store(false)
}

func TestNewRejectsMissingHistoryDir(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Source.Dir = filepath.Join(t.TempDir(), "missing")

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
