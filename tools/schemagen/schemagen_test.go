package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WritesSchema(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "schemas")
	require.NoError(t, run(dir))

	data, err := os.ReadFile(filepath.Join(dir, schemaFile))
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Contains(t, schema, "properties")
}
