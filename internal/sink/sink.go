// Package sink delivers batches of normalized documents to a document store.
package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go-history-harvester/internal/model"
)

// Sink writes one partition's batch. Writes are idempotent on document id.
type Sink interface {
	Write(ctx context.Context, partition string, docs []model.IndexedDocument) error
}

// TransportError reports a failed delivery. Harvesters abort on it.
type TransportError struct {
	Sink      string
	Partition string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s sink: write to %s failed: %v", e.Sink, e.Partition, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NopSink accepts and discards everything.
type NopSink struct{}

func (NopSink) Write(context.Context, string, []model.IndexedDocument) error { return nil }

// Batch is one recorded write of a MemorySink.
type Batch struct {
	Partition string
	IDs       []string
}

// MemorySink keeps documents in memory, keyed by partition and id.
type MemorySink struct {
	mu      sync.Mutex
	batches []Batch
	docs    map[string]map[string]model.Document

	// Err, when set, is returned as a TransportError once FailAfter writes
	// have succeeded.
	Err       error
	FailAfter int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{docs: make(map[string]map[string]model.Document)}
}

func (m *MemorySink) Write(ctx context.Context, partition string, docs []model.IndexedDocument) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Sink: "memory", Partition: partition, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil && len(m.batches) >= m.FailAfter {
		return &TransportError{Sink: "memory", Partition: partition, Err: m.Err}
	}
	b := Batch{Partition: partition, IDs: make([]string, 0, len(docs))}
	part, ok := m.docs[partition]
	if !ok {
		part = make(map[string]model.Document)
		m.docs[partition] = part
	}
	for _, d := range docs {
		part[d.ID] = d.Doc
		b.IDs = append(b.IDs, d.ID)
	}
	m.batches = append(m.batches, b)
	return nil
}

// Batches returns the successful writes in call order.
func (m *MemorySink) Batches() []Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Batch(nil), m.batches...)
}

// Count returns the number of distinct documents stored.
func (m *MemorySink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, part := range m.docs {
		n += len(part)
	}
	return n
}

// Document looks up a stored document.
func (m *MemorySink) Document(partition, id string) (model.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[partition][id]
	return d, ok
}

// Partitions returns the sorted partition names written so far.
func (m *MemorySink) Partitions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.docs))
	for p := range m.docs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
