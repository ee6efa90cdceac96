package pipeline

import (
	"strings"
	"time"

	"github.com/spf13/cast"

	"go-history-harvester/internal/model"
)

// Partitioner derives a document's destination partition from its queue
// date. The template may hold one %{layout} placeholder, a Go time layout
// applied to the date in UTC: "htcondor-%{2006-01}" gives monthly indices.
type Partitioner struct {
	prefix string
	layout string
	suffix string
}

func NewPartitioner(template string) Partitioner {
	start := strings.Index(template, "%{")
	if start < 0 {
		return Partitioner{prefix: template}
	}
	end := strings.Index(template[start:], "}")
	if end < 0 {
		return Partitioner{prefix: template}
	}
	return Partitioner{
		prefix: template[:start],
		layout: template[start+2 : start+end],
		suffix: template[start+end+1:],
	}
}

// Partition uses QDate, falling back to RecordTime.
func (p Partitioner) Partition(doc model.Document) string {
	if p.layout == "" {
		return p.prefix
	}
	ts, err := cast.ToInt64E(doc["QDate"])
	if err != nil || ts <= 0 {
		ts, _ = cast.ToInt64E(doc["RecordTime"])
	}
	return p.prefix + time.Unix(ts, 0).UTC().Format(p.layout) + p.suffix
}

// PartitionBatch is a partition's pending documents.
type PartitionBatch struct {
	Partition string
	Docs      []model.IndexedDocument
}

// Batcher buffers documents per partition and hands a partition's batch
// back exactly when it reaches the threshold.
type Batcher struct {
	threshold int
	order     []string
	parts     map[string][]model.IndexedDocument
	buffered  int
}

func NewBatcher(threshold int) *Batcher {
	if threshold < 1 {
		threshold = 1
	}
	return &Batcher{threshold: threshold, parts: make(map[string][]model.IndexedDocument)}
}

// Add appends doc to partition. When the partition is full its batch is
// returned and the partition is cleared.
func (b *Batcher) Add(partition string, doc model.IndexedDocument) ([]model.IndexedDocument, bool) {
	docs, seen := b.parts[partition]
	if !seen {
		b.order = append(b.order, partition)
	}
	docs = append(docs, doc)
	b.buffered++
	if len(docs) == b.threshold {
		b.parts[partition] = nil
		b.buffered -= len(docs)
		return docs, true
	}
	b.parts[partition] = docs
	return nil, false
}

// Drain returns the non-empty remainders in first-seen partition order and
// empties the buffer.
func (b *Batcher) Drain() []PartitionBatch {
	var out []PartitionBatch
	for _, p := range b.order {
		if docs := b.parts[p]; len(docs) > 0 {
			out = append(out, PartitionBatch{Partition: p, Docs: docs})
		}
	}
	b.order = nil
	b.parts = make(map[string][]model.IndexedDocument)
	b.buffered = 0
	return out
}

// Buffered returns the number of documents waiting to be flushed.
func (b *Batcher) Buffered() int { return b.buffered }
