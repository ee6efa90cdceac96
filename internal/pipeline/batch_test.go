package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-history-harvester/internal/model"
)

func TestPartitioner(t *testing.T) {
	tests := []struct {
		name     string
		template string
		doc      model.Document
		want     string
	}{
		{"monthly from qdate", "htcondor-%{2006-01}", model.Document{"QDate": int64(1700000000)}, "htcondor-2023-11"},
		{"daily with suffix", "jobs-%{2006.01.02}-raw", model.Document{"QDate": int64(1700000000)}, "jobs-2023.11.14-raw"},
		{"falls back to record time", "htcondor-%{2006-01}", model.Document{"RecordTime": int64(1262304000)}, "htcondor-2010-01"},
		{"zero qdate falls back", "htcondor-%{2006}", model.Document{"QDate": int64(0), "RecordTime": int64(1262304000)}, "htcondor-2010"},
		{"fixed name", "htcondor_history", model.Document{"QDate": int64(1700000000)}, "htcondor_history"},
		{"digits are not a layout", "htcondor_000001", model.Document{}, "htcondor_000001"},
		{"unterminated placeholder", "htcondor-%{2006", model.Document{}, "htcondor-%{2006"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPartitioner(tt.template).Partition(tt.doc))
		})
	}
}

func doc(id string) model.IndexedDocument {
	return model.IndexedDocument{ID: id, Doc: model.Document{}}
}

func ids(docs []model.IndexedDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestBatcherFlushesAtThreshold(t *testing.T) {
	b := NewBatcher(2)

	_, full := b.Add("a", doc("1"))
	assert.False(t, full)
	_, full = b.Add("b", doc("2"))
	assert.False(t, full)
	assert.Equal(t, 2, b.Buffered())

	batch, full := b.Add("a", doc("3"))
	require.True(t, full)
	assert.Equal(t, []string{"1", "3"}, ids(batch))
	assert.Equal(t, 1, b.Buffered())

	_, full = b.Add("a", doc("4"))
	assert.False(t, full, "partition restarts empty after a flush")
}

func TestBatcherDrainOrder(t *testing.T) {
	b := NewBatcher(10)
	b.Add("z", doc("1"))
	b.Add("a", doc("2"))
	b.Add("z", doc("3"))

	drained := b.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, "z", drained[0].Partition)
	assert.Equal(t, []string{"1", "3"}, ids(drained[0].Docs))
	assert.Equal(t, "a", drained[1].Partition)
	assert.Equal(t, 0, b.Buffered())
	assert.Empty(t, b.Drain())
}

func TestBatcherSkipsEmptyPartitions(t *testing.T) {
	b := NewBatcher(1)
	batch, full := b.Add("a", doc("1"))
	require.True(t, full)
	assert.Len(t, batch, 1)
	assert.Empty(t, b.Drain())
}
