package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-history-harvester/internal/model"
	"go-history-harvester/pkg/logger"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)

	cp, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cp)
}

func TestFileStoreMergeNeverLowers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.MergeAndPersist(ctx, "schedd-a", 100))
	require.NoError(t, s.MergeAndPersist(ctx, "schedd-b", 50))
	require.NoError(t, s.MergeAndPersist(ctx, "schedd-a", 80))

	cp, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Checkpoint{"schedd-a": 100, "schedd-b": 50}, cp)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreReadsFractionalTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1700000000.75, "b": 12}`), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	cp, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Checkpoint{"a": 1700000000, "b": 12}, cp)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.LoadAll(context.Background())
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "decode", ioErr.Op)

	_, err = NewFileStore("  ")
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "harvest.db"))
	require.NoError(t, err)
	defer db.Close()

	s, err := NewSQLiteStore(ctx, db)
	require.NoError(t, err)

	cp, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, cp)

	require.NoError(t, s.MergeAndPersist(ctx, "a", 10))
	require.NoError(t, s.MergeAndPersist(ctx, "a", 5))
	require.NoError(t, s.MergeAndPersist(ctx, "b", 7))

	cp, err = s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Checkpoint{"a": 10, "b": 7}, cp)
}

type recordingStore struct {
	mu      sync.Mutex
	updates []Update
	fail    map[string]bool
}

func (r *recordingStore) LoadAll(context.Context) (model.Checkpoint, error) {
	return model.Checkpoint{}, nil
}

func (r *recordingStore) MergeAndPersist(_ context.Context, name string, wm int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[name] {
		return &IOError{Op: "write", Err: errors.New("disk full")}
	}
	r.updates = append(r.updates, Update{Source: name, Watermark: wm})
	return nil
}

func TestWriterAppliesInOrder(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	w := NewWriter(store, 0, logger.NewDiscardLogger())

	require.NoError(t, w.Submit(ctx, "a", 1))
	require.NoError(t, w.Submit(ctx, "b", 2))
	require.NoError(t, w.Submit(ctx, "a", 3))
	require.NoError(t, w.Stop())

	assert.Equal(t, []Update{{"a", 1}, {"b", 2}, {"a", 3}}, store.updates)
	assert.Equal(t, 3, w.Applied())

	assert.ErrorIs(t, w.Submit(ctx, "c", 4), ErrWriterStopped)
	assert.NoError(t, w.Stop())
}

func TestWriterReturnsFirstError(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{fail: map[string]bool{"bad": true}}
	w := NewWriter(store, 4, logger.NewDiscardLogger())

	require.NoError(t, w.Submit(ctx, "bad", 1))
	require.NoError(t, w.Submit(ctx, "good", 2))

	err := w.Stop()
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, []Update{{"good", 2}}, store.updates)
}

func TestWriterWithFileStoreConcurrentSubmitters(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)
	w := NewWriter(s, 8, logger.NewDiscardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := string(rune('a' + n))
			assert.NoError(t, w.Submit(ctx, name, int64(n*10)))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Stop())

	cp, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, cp, 8)
	assert.Equal(t, int64(70), cp["h"])
}
