package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var palletEnv = []string{
	"PALLET_DB",
	"PALLET_BLOCK_WEIGHT_LIMIT",
	"PALLET_WEIGHTS_FILE",
	"PALLET_LOG_LEVEL",
	"PALLET_LOG_NO_COLOR",
}

// clearEnv removes every PALLET_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range palletEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// execute runs palletctl with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	clearEnv(t)
	return filepath.Join(t.TempDir(), "pallet.db")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// decodeResponse decodes a JSON envelope with typed data.
func decodeResponse[T any](t *testing.T, out string) (string, T, *CLIError) {
	t.Helper()
	var resp struct {
		Status string    `json:"status"`
		Data   T         `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp.Status, resp.Data, resp.Error
}
