package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-history-harvester/internal/classad"
	"go-history-harvester/internal/model"
)

// MemorySource scripts the behavior of one in-memory source.
type MemorySource struct {
	Records []classad.Record
	// QueryErr fails the query itself.
	QueryErr error
	// StreamErr is raised after FailAfter records have been returned.
	StreamErr error
	FailAfter int
	// Delay is waited before each record.
	Delay time.Duration
}

// MemoryConnector serves scripted sources; used by tests and local runs.
type MemoryConnector struct {
	mu      sync.Mutex
	order   []string
	sources map[string]MemorySource
	queries map[string][]Query
}

func NewMemoryConnector() *MemoryConnector {
	return &MemoryConnector{
		sources: make(map[string]MemorySource),
		queries: make(map[string][]Query),
	}
}

// Add registers or replaces a source.
func (m *MemoryConnector) Add(name string, src MemorySource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[name]; !ok {
		m.order = append(m.order, name)
	}
	m.sources[name] = src
}

// Queries returns the queries issued against name.
func (m *MemoryConnector) Queries(name string) []Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Query(nil), m.queries[name]...)
}

func (m *MemoryConnector) ListSources(ctx context.Context) ([]model.SourceDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SourceDescriptor, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, model.SourceDescriptor{Name: name})
	}
	return out, nil
}

func (m *MemoryConnector) Query(ctx context.Context, src model.SourceDescriptor, q Query) (Iterator, error) {
	m.mu.Lock()
	s, ok := m.sources[src.Name]
	m.queries[src.Name] = append(m.queries[src.Name], q)
	m.mu.Unlock()

	if !ok {
		return nil, &QueryError{Source: src.Name, Err: errors.New("unknown source")}
	}
	if s.QueryErr != nil {
		return nil, &QueryError{Source: src.Name, Err: s.QueryErr}
	}
	return &memoryIterator{name: src.Name, src: s, match: matcher{q: q}}, nil
}

type memoryIterator struct {
	name     string
	src      MemorySource
	match    matcher
	pos      int
	returned int
	current  classad.Record
	err      error
	done     bool
}

func (it *memoryIterator) Next(ctx context.Context) bool {
	for !it.done {
		if it.src.StreamErr != nil && it.returned >= it.src.FailAfter {
			it.err = &StreamError{Source: it.name, Err: it.src.StreamErr}
			break
		}
		if it.match.exhausted() || it.pos >= len(it.src.Records) {
			break
		}
		if it.src.Delay > 0 {
			select {
			case <-ctx.Done():
				it.err = &StreamError{Source: it.name, Err: ctx.Err()}
				it.done = true
				return false
			case <-time.After(it.src.Delay):
			}
		}
		rec := it.src.Records[it.pos]
		it.pos++
		if !it.match.accept(rec) {
			continue
		}
		it.current = rec
		it.returned++
		return true
	}
	it.done = true
	it.current = nil
	return false
}

func (it *memoryIterator) Record() classad.Record { return it.current }

func (it *memoryIterator) Err() error { return it.err }

func (it *memoryIterator) Close() error {
	it.done = true
	return nil
}
