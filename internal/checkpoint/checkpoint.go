// Package checkpoint persists per-source watermarks between harvest runs.
package checkpoint

import (
	"context"
	"fmt"

	"go-history-harvester/internal/model"
)

// Store is durable storage for the source to watermark map.
type Store interface {
	// LoadAll returns every known watermark. A store that was never written
	// returns an empty map.
	LoadAll(ctx context.Context) (model.Checkpoint, error)
	// MergeAndPersist records watermark for name unless a later one is
	// already stored, then persists the whole map.
	MergeAndPersist(ctx context.Context, name string, watermark int64) error
}

// IOError wraps failures reading or writing checkpoint storage.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("checkpoint %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Merge applies watermark for name to cp and reports whether it changed.
// Watermarks never move backwards.
func Merge(cp model.Checkpoint, name string, watermark int64) bool {
	if old, ok := cp[name]; ok && old >= watermark {
		return false
	}
	cp[name] = watermark
	return true
}
