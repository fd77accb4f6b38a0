package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dap4/internal/chunk"
)

// generateFile writes a response for seq1 and returns its path.
func generateFile(t *testing.T, args ...string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "resp.dap")
	cmd := NewGenerateCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd, append([]string{seq1Dataset, "s", "--data", seq1Data, "-o", out}, args...)...)
	if err != nil {
		require.Equal(t, ExitFailure, GetExitCode(err), "error: %v", err)
	}
	return out
}

func TestDumpResponse(t *testing.T) {
	path := generateFile(t)

	stdout, _, err := execute(NewDumpCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "big-endian")
	assert.Contains(t, stdout, "Flags")
	assert.Contains(t, stdout, "END")
	assert.Contains(t, stdout, "--- dmr")
	assert.Contains(t, stdout, `<Sequence name="s">`)
	assert.Contains(t, stdout, "--- data (26 bytes)")
	// Row count 3 in big-endian order.
	assert.Contains(t, stdout, "00 00 00 00 00 00 00 03")
}

func TestDumpResponseJSON(t *testing.T) {
	path := generateFile(t, "--byte-order", "little", "--no-dmr")

	stdout, _, err := execute(NewDumpCommand(&RootOptions{Format: "json"}), path, "--no-dmr")
	require.NoError(t, err)

	var result DumpResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "little", result.ByteOrder)
	assert.Empty(t, result.DMR)
	require.NotEmpty(t, result.Chunks)
	assert.Equal(t, "END|LITTLE_ENDIAN", result.Chunks[len(result.Chunks)-1].Flags)
	assert.Equal(t, "0300000000000000", result.Body[:16])
}

func TestDumpAbortedResponse(t *testing.T) {
	path := generateFile(t, "--max-rows", "2")

	stdout, _, err := execute(NewDumpCommand(&RootOptions{Format: "text"}), path)
	requireExit(t, err, ExitFailure, ErrCodeResponse)
	assert.Contains(t, stdout, "ERROR")
	assert.Contains(t, stdout, "Error [E302]: sequence /s has 3 rows, over the limit of 2")
}

func TestDumpMalformed(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"truncated header", "abc"},
		{"no END chunk", string([]byte{0, 0, 0, 2, '\r', '\n'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".dap", tt.content)
			_, _, err := execute(NewDumpCommand(&RootOptions{Format: "text"}), path)
			requireExit(t, err, ExitCommandError, ErrCodeReadFailed)
		})
	}
}

func TestDumpMissingFile(t *testing.T) {
	_, _, err := execute(NewDumpCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "none.dap"))
	requireExit(t, err, ExitCommandError, ErrCodeReadFailed)
}

func TestFlagNames(t *testing.T) {
	assert.Equal(t, "DATA", flagNames(chunk.FlagData))
	assert.Equal(t, "END", flagNames(chunk.FlagEnd))
	assert.Equal(t, "ERROR|LITTLE_ENDIAN", flagNames(chunk.FlagError|chunk.FlagLittleEndian))
}
