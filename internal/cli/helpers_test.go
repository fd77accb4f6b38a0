package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// Dataset models and fixtures shared with the harness.
var (
	harnessTestdata = filepath.Join("..", "harness", "testdata")
	seq1Dataset     = filepath.Join(harnessTestdata, "datasets", "seq1.cue")
	seq1Data        = filepath.Join(harnessTestdata, "data", "seq1.yaml")
	ce1Dataset      = filepath.Join(harnessTestdata, "datasets", "ce1.cue")
	scenariosDir    = filepath.Join(harnessTestdata, "scenarios")
)

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decodeResponse decodes a JSON CLIResponse whose data is decoded into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

// writeFile writes content to name under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// requireExit checks err carries the given exit and error codes.
func requireExit(t *testing.T, err error, exitCode int, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, exitCode, GetExitCode(err), "error: %v", err)
	if code != "" {
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		require.Equal(t, code, exitErr.Message, "error: %v", err)
	}
}
