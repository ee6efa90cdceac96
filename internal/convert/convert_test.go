package convert

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-history-harvester/internal/classad"
	"go-history-harvester/internal/schema"
	"go-history-harvester/pkg/logger"
)

const launch = int64(5000)

func newConverter() *Converter {
	return New(schema.Default(), launch, WithLogger(logger.NewDiscardLogger()))
}

func TestNormalizeCoercion(t *testing.T) {
	c := newConverter()

	tests := []struct {
		name    string
		attr    string
		value   interface{}
		wantKey string
		want    interface{}
	}{
		{"keyword from int", "Owner", int64(7), "Owner", "7"},
		{"float from string", "CPUsUsage", "0.25", "CPUsUsage", 0.25},
		{"float invalid", "CPUsUsage", "lots", "CPUsUsage_STRING", "lots"},
		{"int from string", "ImageSize", "2048", "ImageSize", int64(2048)},
		{"int from float", "ImageSize", 12.0, "ImageSize", int64(12)},
		{"int invalid", "ImageSize", "big", "ImageSize_STRING", "big"},
		{"int zero padded is decimal", "ImageSize", "010", "ImageSize", int64(10)},
		{"int whole decimal string", "ImageSize", " 42.0 ", "ImageSize", int64(42)},
		{"int fractional string", "ImageSize", "1.5", "ImageSize_STRING", "1.5"},
		{"int hex rejected", "ImageSize", "0x10", "ImageSize_STRING", "0x10"},
		{"int binary rejected", "ImageSize", "0b11", "ImageSize_STRING", "0b11"},
		{"date zero padded is decimal", "QDate", "010", "QDate", int64(10)},
		{"provisioned pattern", "GPUsProvisioned", "2", "GpusProvisioned", int64(2)},
		{"request pattern", "RequestWidgets", int64(3), "RequestWidgets", int64(3)},
		{"bool from string", "ExitBySignal", "true", "ExitBySignal", true},
		{"bool invalid", "ExitBySignal", "maybe", "ExitBySignal_STRING", "maybe"},
		{"want pattern", "wantfoo_bar", true, "WantFoo_bar", true},
		{"want pattern cased", "WantFooBar", false, "WantFoobar", false},
		{"date", "QDate", int64(1700000000), "QDate", int64(1700000000)},
		{"date invalid", "QDate", "yesterday", "QDate_STRING", "yesterday"},
		{"date pattern", "FirstSeenDate", int64(42), "FirstseenDate", int64(42)},
		{"unknown lowercased", "MyCustomAttr", int64(1), "mycustomattr", "1"},
		{"canonical casing", "owner", "alice", "Owner", "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := c.Normalize(classad.New(map[string]interface{}{tt.attr: tt.value}))
			require.Contains(t, doc, tt.wantKey)
			assert.Equal(t, tt.want, doc[tt.wantKey])
		})
	}
}

func TestNormalizeDropsFields(t *testing.T) {
	c := newConverter()
	doc := c.Normalize(classad.New(map[string]interface{}{
		"Env":            "SECRET=1",
		"CompletionDate": int64(0),
		"Unset":          nil,
		"Dangling":       classad.Expr{Source: "NotThere"},
		"Broken":         classad.Expr{Source: "1 +"},
	}))

	assert.NotContains(t, doc, "Env")
	assert.NotContains(t, doc, "CompletionDate")
	assert.NotContains(t, doc, "unset")
	assert.NotContains(t, doc, "unset_EXPR")
	assert.NotContains(t, doc, "broken")
	assert.Equal(t, "1 +", doc["broken_EXPR"])
}

func TestNormalizeKeepsUndefinedExpressions(t *testing.T) {
	c := newConverter()
	doc := c.Normalize(classad.New(map[string]interface{}{
		"Dangling":  classad.Expr{Source: "NotThere"},
		"ImageSize": classad.Expr{Source: "MissingSize * 2"},
	}))

	assert.NotContains(t, doc, "dangling")
	assert.Equal(t, "NotThere", doc["dangling_EXPR"])
	assert.NotContains(t, doc, "ImageSize")
	assert.Equal(t, "MissingSize * 2", doc["ImageSize_EXPR"])
}

func TestTruncate(t *testing.T) {
	c := newConverter()

	long := strings.Repeat("x", 300)
	doc := c.Normalize(classad.New(map[string]interface{}{"Owner": long}))
	got := doc["Owner"].(string)
	assert.Len(t, got, 256)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("x", 253), strings.TrimSuffix(got, "..."))

	exact := strings.Repeat("y", 256)
	doc = c.Normalize(classad.New(map[string]interface{}{"Owner": exact}))
	assert.Equal(t, exact, doc["Owner"])
}

func TestRecordTime(t *testing.T) {
	c := newConverter()

	tests := []struct {
		name  string
		attrs map[string]interface{}
		want  int64
	}{
		{"completed with completion date", map[string]interface{}{
			"JobStatus": int64(4), "CompletionDate": int64(1000), "EnteredCurrentStatus": int64(900),
		}, 1000},
		{"completed without completion date", map[string]interface{}{
			"JobStatus": int64(4), "EnteredCurrentStatus": int64(900),
		}, 900},
		{"removed with zero completion date", map[string]interface{}{
			"JobStatus": int64(3), "CompletionDate": int64(0), "EnteredCurrentStatus": int64(800),
		}, 800},
		{"error without dates", map[string]interface{}{"JobStatus": int64(6)}, launch},
		{"idle ignores dates", map[string]interface{}{
			"JobStatus": int64(1), "CompletionDate": int64(1000), "EnteredCurrentStatus": int64(900),
		}, launch},
		{"no status", map[string]interface{}{}, launch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.RecordTime(classad.New(tt.attrs)))
		})
	}
}

func TestDerivedFields(t *testing.T) {
	c := newConverter()

	doc := c.Normalize(classad.New(map[string]interface{}{
		"GlobalJobId":    "schedd.example.org#123.0#1700000000",
		"JobStatus":      int64(4),
		"JobUniverse":    int64(5),
		"LastRemoteHost": "slot1@worker.example.org",
	}))
	assert.Equal(t, "schedd.example.org", doc["ScheddName"])
	assert.Equal(t, "slot1", doc["StartdSlot"])
	assert.Equal(t, "worker.example.org", doc["StartdName"])
	assert.Equal(t, "Completed", doc["Status"])
	assert.Equal(t, "Vanilla", doc["Universe"])

	doc = c.Normalize(classad.New(map[string]interface{}{"JobStatus": int64(42)}))
	assert.Equal(t, "UNKNOWN", doc["ScheddName"])
	assert.Equal(t, "UNKNOWN", doc["StartdSlot"])
	assert.Equal(t, "UNKNOWN", doc["StartdName"])
	assert.Equal(t, "Unknown", doc["Status"])
	assert.Equal(t, "Unknown", doc["Universe"])
	assert.Equal(t, launch, doc["RecordTime"])
}

func TestConvert(t *testing.T) {
	c := newConverter()
	attrs := map[string]interface{}{
		"GlobalJobId":    "s#1.0#1",
		"JobStatus":      int64(4),
		"CompletionDate": int64(1000),
	}

	id, doc, err := c.Convert(classad.New(attrs))
	require.NoError(t, err)
	assert.Equal(t, "s#1.0#1#1000", id)
	assert.Equal(t, int64(1000), doc["RecordTime"])

	// same ad in a later run yields the same id
	later := New(schema.Default(), launch+100, WithLogger(logger.NewDiscardLogger()))
	id2, _, err := later.Convert(classad.New(attrs))
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	_, _, err = c.Convert(classad.New(map[string]interface{}{"GlobalJobId": "x", "TaskType": "ROOT"}))
	assert.ErrorIs(t, err, ErrSkipRecord)

	_, _, err = c.Convert(classad.New(map[string]interface{}{"JobStatus": int64(1)}))
	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, "GlobalJobId", convErr.Field)
}

type panickyRecord struct{}

func (panickyRecord) Keys() []string                  { return []string{"Owner"} }
func (panickyRecord) Get(string) (interface{}, bool)  { panic("boom") }
func (panickyRecord) Eval(name string) classad.Result { panic("boom") }

func TestConvertRecoversPanics(t *testing.T) {
	c := newConverter()

	_, _, err := c.Convert(panickyRecord{})
	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Contains(t, convErr.Error(), "boom")

	assert.NotPanics(t, func() { c.Normalize(panickyRecord{}) })
}
