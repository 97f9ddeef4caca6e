package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to a scenario file next to an empty catalog
// directory named "catalog".
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "catalog"), 0o755))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalScenario = `
name: minimal
description: "Minimal scenario"
catalog: catalog
record:
  uri: rec-1
  snapshot_hash: snap-1
line_items:
  - uri: li-1
    category_key: furniture
    deliverable_key: bench
    group_key: hall
    config:
      workflow:
        requiresSamples: true
assertions:
  - type: groups
    ids: [project::rec-1]
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, minimalScenario)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "catalog"), scenario.Catalog, "catalog resolves against the scenario file")
	assert.Equal(t, "rec-1", scenario.Record.URI)
	require.Len(t, scenario.LineItems, 1)
	require.NotNil(t, scenario.LineItems[0].GroupKey)
	assert.Equal(t, "hall", *scenario.LineItems[0].GroupKey)
	assert.Equal(t, map[string]any{"requiresSamples": true}, scenario.LineItems[0].Config["workflow"])
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertGroups, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, minimalScenario+"assertion: []\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing name",
			content: "description: d\ncatalog: catalog\nrecord: {uri: r, snapshot_hash: s}\nassertions: [{type: groups, ids: [x]}]\n",
			want:    "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\ncatalog: catalog\nrecord: {uri: r, snapshot_hash: s}\nassertions: [{type: groups, ids: [x]}]\n",
			want:    "description is required",
		},
		{
			name:    "missing catalog dir",
			content: "name: n\ndescription: d\ncatalog: nowhere\nrecord: {uri: r, snapshot_hash: s}\nassertions: [{type: groups, ids: [x]}]\n",
			want:    "catalog directory not found",
		},
		{
			name:    "missing record uri",
			content: "name: n\ndescription: d\ncatalog: catalog\nrecord: {snapshot_hash: s}\nassertions: [{type: groups, ids: [x]}]\n",
			want:    "record.uri is required",
		},
		{
			name:    "missing snapshot hash",
			content: "name: n\ndescription: d\ncatalog: catalog\nrecord: {uri: r}\nassertions: [{type: groups, ids: [x]}]\n",
			want:    "record.snapshot_hash is required",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\ncatalog: catalog\nrecord: {uri: r, snapshot_hash: s}\n",
			want:    "assertions list is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: n\ndescription: d\ncatalog: catalog\nrecord: {uri: r, snapshot_hash: s}\nassertions: [{type: trace_order}]\n",
			want:    `unknown assertion type "trace_order"`,
		},
		{
			name:    "confidence out of range",
			content: "name: n\ndescription: d\ncatalog: catalog\nrecord: {uri: r, snapshot_hash: s}\nassertions: [{type: confidence, line_item: li, value: 1.5}]\n",
			want:    "within [0, 1]",
		},
		{
			name:    "candidates without group",
			content: "name: n\ndescription: d\ncatalog: catalog\nrecord: {uri: r, snapshot_hash: s}\nassertions: [{type: candidates}]\n",
			want:    "group is required for candidates",
		},
		{
			name:    "bad computed_at",
			content: "name: n\ndescription: d\ncatalog: catalog\ncomputed_at: yesterday\nrecord: {uri: r, snapshot_hash: s}\nassertions: [{type: groups, ids: [x]}]\n",
			want:    "computed_at",
		},
		{
			name: "both config forms",
			content: "name: n\ndescription: d\ncatalog: catalog\nrecord: {uri: r, snapshot_hash: s}\n" +
				"line_items: [{uri: li, category_key: c, deliverable_key: d, config: {a: 1}, config_json: '{}'}]\n" +
				"assertions: [{type: groups, ids: [x]}]\n",
			want: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
