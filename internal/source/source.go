// Package source defines how job history is pulled from schedds and
// provides file, HTTP and in-memory connectors.
package source

import (
	"context"
	"fmt"
	"math/rand"

	"go-history-harvester/internal/classad"
	"go-history-harvester/internal/model"
)

// Query selects the history of one source.
type Query struct {
	// Since is the lower bound on EnteredCurrentStatus.
	Since int64
	// Limit caps the number of records returned; 0 means unlimited.
	Limit int
	// Filter is applied to every record when set.
	Filter *classad.Filter
}

// Iterator is a lazy, forward-only, one-shot sequence of records.
//
//	for it.Next(ctx) {
//		rec := it.Record()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	Next(ctx context.Context) bool
	Record() classad.Record
	// Err returns the fault that ended iteration early, if any.
	Err() error
	Close() error
}

// Connector lists sources and opens history queries against them.
type Connector interface {
	ListSources(ctx context.Context) ([]model.SourceDescriptor, error)
	Query(ctx context.Context, src model.SourceDescriptor, q Query) (Iterator, error)
}

// QueryError is a failure to set up a query.
type QueryError struct {
	Source string
	Err    error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Source, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// StreamError is a fault while consuming an open query.
type StreamError struct {
	Source string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Source, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Select keeps the sources listed in names (all when names is empty) and
// optionally shuffles them so slow sources do not always start last.
func Select(sources []model.SourceDescriptor, names []string, shuffle bool) []model.SourceDescriptor {
	out := sources
	if len(names) > 0 {
		wanted := make(map[string]bool, len(names))
		for _, n := range names {
			wanted[n] = true
		}
		out = make([]model.SourceDescriptor, 0, len(names))
		for _, s := range sources {
			if wanted[s.Name] {
				out = append(out, s)
			}
		}
	}
	if shuffle {
		shuffled := make([]model.SourceDescriptor, len(out))
		copy(shuffled, out)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		out = shuffled
	}
	return out
}

// matcher applies the limit and filter shared by all connectors.
type matcher struct {
	q     Query
	count int
}

func (m *matcher) exhausted() bool {
	return m.q.Limit > 0 && m.count >= m.q.Limit
}

func (m *matcher) accept(rec classad.Record) bool {
	if m.q.Filter != nil && !m.q.Filter.Match(rec) {
		return false
	}
	m.count++
	return true
}
