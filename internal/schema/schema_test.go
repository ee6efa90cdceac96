package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	table := Default()

	tests := []struct {
		in   string
		want string
	}{
		{"globaljobid", "GlobalJobId"},
		{"JOBSTATUS", "JobStatus"},
		{"FooDate", "FooDate"},
		{"myCustomDate", "MycustomDate"},
		{"GPUsProvisioned", "GpusProvisioned"},
		{"RequestFOO", "RequestFoo"},
		{"RequestedChroot", "requestedchroot"},
		{"wantSomething", "WantSomething"},
		{"isX_y", "IsX_y"},
		{"SomethingElse", "somethingelse"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Canonical(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	table := Default()

	tests := []struct {
		name string
		want Kind
	}{
		{"Owner", Keyword},
		{"Args", NoIndexKeyword},
		{"CPUsUsage", Float},
		{"JobStatus", Int},
		{"ExitBySignal", Bool},
		{"QDate", Date},
		{"Env", Ignore},
		{"ExecutableSize", Ignore},
		{"GpusProvisioned", Int},
		{"RequestFoo", Int},
		{"WantSomething", Bool},
		{"MycustomDate", Date},
		{"somethingelse", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.name))
		})
	}
}

func TestExactSetsBeatPatterns(t *testing.T) {
	table := New(Sets{Keyword: []string{"RequestName"}}, DefaultRules)

	name, kind := table.Lookup("requestname")
	assert.Equal(t, "RequestName", name)
	assert.Equal(t, Keyword, kind)

	_, kind = table.Lookup("RequestOther")
	assert.Equal(t, Int, kind)
}

func TestMappings(t *testing.T) {
	m := Default().Mappings()

	props, ok := m["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "long"}, props["JobStatus"])
	assert.Equal(t, map[string]any{"type": "date", "format": "epoch_second"}, props["QDate"])
	assert.Contains(t, props, "metadata")

	templates, ok := m["dynamic_templates"].([]map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, templates)
	assert.Contains(t, templates[0], "raw_expressions")
	assert.Contains(t, templates[len(templates)-1], "strings_as_keywords")
	assert.Equal(t, false, m["date_detection"])
}
