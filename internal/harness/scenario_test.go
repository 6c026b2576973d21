package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_AllTestdataFilesValid(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			_, err := LoadScenario(f)
			require.NoError(t, err)
		})
	}
}

func TestParseScenario_Fields(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: sample
description: fields round up
genesis:
  current_value: 5
block_weight_limit: 1000
calls:
  - call: store_value
    args: {value: 1}
    caller: bob
    expect: OK
  - call: remove_value
    origin: none
assertions:
  - type: final_state
    cells:
      current_value: 1
      running_sum: null
`))
	require.NoError(t, err)

	assert.Equal(t, "sample", s.Name)
	assert.Equal(t, map[string]uint32{"current_value": 5}, s.Genesis)
	assert.Equal(t, uint64(1000), s.BlockWeightLimit)
	require.Len(t, s.Calls, 2)
	assert.Equal(t, "bob", s.Calls[0].Caller)
	assert.Equal(t, OriginNone, s.Calls[1].Origin)
	require.Len(t, s.Assertions, 1)
	require.Contains(t, s.Assertions[0].Cells, "running_sum")
	assert.Nil(t, s.Assertions[0].Cells["running_sum"])
	require.NotNil(t, s.Assertions[0].Cells["current_value"])
	assert.Equal(t, uint32(1), *s.Assertions[0].Cells["current_value"])
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: d\ncals: []\n",
			want: "field cals not found",
		},
		{
			name: "missing name",
			yaml: "description: d\ncalls: [{call: remove_value}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\ncalls: [{call: remove_value}]\n",
			want: "description is required",
		},
		{
			name: "no calls",
			yaml: "name: x\ndescription: d\ncalls: []\n",
			want: "calls list is required",
		},
		{
			name: "unknown cell in genesis",
			yaml: "name: x\ndescription: d\ngenesis: {balance: 1}\ncalls: [{call: remove_value}]\n",
			want: `unknown cell "balance"`,
		},
		{
			name: "unknown call",
			yaml: "name: x\ndescription: d\ncalls: [{call: transfer}]\n",
			want: `unknown call "transfer"`,
		},
		{
			name: "missing argument",
			yaml: "name: x\ndescription: d\ncalls: [{call: store_value}]\n",
			want: `missing argument "value"`,
		},
		{
			name: "argument out of range",
			yaml: "name: x\ndescription: d\ncalls: [{call: store_value, args: {value: 4294967296}}]\n",
			want: "out of range",
		},
		{
			name: "unknown origin",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value, origin: sudo}]\n",
			want: `unknown origin "sudo"`,
		},
		{
			name: "caller with unsigned origin",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value, origin: none, caller: bob}]\n",
			want: "caller is only valid for signed origins",
		},
		{
			name: "bad hex caller",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value, caller: \"0x12\"}]\n",
			want: "parse account id",
		},
		{
			name: "unknown outcome",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value, expect: FAILED}]\n",
			want: `unknown expected outcome "FAILED"`,
		},
		{
			name: "unknown assertion type",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value}]\nassertions: [{type: trace_contains}]\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "final_state without cells",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value}]\nassertions: [{type: final_state}]\n",
			want: "cells is required",
		},
		{
			name: "unknown event kind",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value}]\nassertions: [{type: event_count, kind: transfer}]\n",
			want: `unknown event kind "transfer"`,
		},
		{
			name: "event_order without kinds",
			yaml: "name: x\ndescription: d\ncalls: [{call: remove_value}]\nassertions: [{type: event_order}]\n",
			want: "kinds list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestFindScenarios_Filter(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_sum.yaml", "a_sum.yml", "store.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	all, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_sum.yml"),
		filepath.Join(dir, "b_sum.yaml"),
		filepath.Join(dir, "store.yaml"),
	}, all)

	sums, err := FindScenarios(dir, "*_sum")
	require.NoError(t, err)
	assert.Len(t, sums, 2)

	_, err = FindScenarios(dir, "[")
	require.Error(t, err)
}
