package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList(" a, b  c,,"))
	assert.Empty(t, SplitList(""))
}

func TestOutputManagerWriteJSON(t *testing.T) {
	om := NewOutputManager(filepath.Join(t.TempDir(), "out"))

	path, err := om.WriteJSON("../mappings.json", map[string]int{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(om.BaseOutputDir, "mappings.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, got)

	size, err := om.GetFileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)
}

func TestHostAndUser(t *testing.T) {
	assert.NotEmpty(t, Hostname())
	assert.NotEmpty(t, Username())
}
