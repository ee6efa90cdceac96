package checkpoint

import (
	"context"
	"errors"
	"sync"

	"go-history-harvester/pkg/logger"
)

// ErrWriterStopped is returned by Submit after Stop.
var ErrWriterStopped = errors.New("checkpoint writer stopped")

// Update asks the writer to advance one source.
type Update struct {
	Source    string
	Watermark int64
}

// Writer is the only goroutine that touches the Store during a run. Updates
// are applied in the order they are received.
type Writer struct {
	store   Store
	log     logger.Logger
	updates chan Update
	done    chan struct{}

	mu      sync.RWMutex
	stopped bool

	// owned by the writer goroutine until done is closed
	err     error
	applied int
}

// NewWriter starts the writer goroutine.
func NewWriter(store Store, buffer int, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetDefault()
	}
	w := &Writer{
		store:   store,
		log:     log,
		updates: make(chan Update, buffer),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	defer close(w.done)
	// Persisting must not be cut short by run cancellation.
	ctx := context.Background()
	for u := range w.updates {
		if err := w.store.MergeAndPersist(ctx, u.Source, u.Watermark); err != nil {
			w.log.Error("❌ Failed to persist checkpoint for %s: %v", u.Source, err)
			if w.err == nil {
				w.err = err
			}
			continue
		}
		w.applied++
		w.log.Debug("Checkpoint for %s advanced to %d", u.Source, u.Watermark)
	}
}

// Submit queues an update. It blocks while the buffer is full.
func (w *Writer) Submit(ctx context.Context, source string, watermark int64) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrWriterStopped
	}
	select {
	case w.updates <- Update{Source: source, Watermark: watermark}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the update channel, waits until every queued update has been
// persisted and returns the first persist error.
func (w *Writer) Stop() error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.updates)
	}
	w.mu.Unlock()

	<-w.done
	return w.err
}

// Applied returns the number of persisted updates. Valid after Stop.
func (w *Writer) Applied() int {
	<-w.done
	return w.applied
}
