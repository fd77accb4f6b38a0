package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dap4/internal/store"
)

func TestLoadFixture(t *testing.T) {
	db := filepath.Join(t.TempDir(), "dap4.db")

	stdout, _, err := execute(NewLoadCommand(&RootOptions{Format: "text"}), seq1Dataset, "--data", seq1Data, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Loaded seq1 into "+db)
	assert.Contains(t, stdout, "1 sequence instance(s), 3 row(s)")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	names, err := st.Datasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"seq1"}, names)
}

func TestLoadSynthetic(t *testing.T) {
	db := filepath.Join(t.TempDir(), "dap4.db")

	stdout, _, err := execute(NewLoadCommand(&RootOptions{Format: "json"}), ce1Dataset, "--db", db, "--seed", "9")
	require.NoError(t, err)

	var result LoadResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ce1", result.Dataset)
	assert.Equal(t, "synthetic seed 9", result.Source)
	// a, b, c: 17 each; d, e, f: 170 each; s.x and s.y: 100 each.
	assert.Equal(t, int64(3*17+3*170+2*100), result.Values)
	assert.Zero(t, result.Rows)
}

func TestLoadDBFromConfig(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfg := writeFile(t, dir, "dap4.yaml", "db: "+db+"\n")

	stdout, _, err := execute(NewRootCommand(), "--config", cfg, "load", seq1Dataset, "--data", seq1Data)
	require.NoError(t, err)
	assert.Contains(t, stdout, db)
}

func TestLoadRequiresDB(t *testing.T) {
	stdout, _, err := execute(NewLoadCommand(&RootOptions{Format: "text"}), seq1Dataset, "--data", seq1Data)
	requireExit(t, err, ExitCommandError, ErrCodeConfig)
	assert.Contains(t, stdout, "store path is required")
}
