package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"seq1_filter", "nested_selection", "seq1_quota"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot(t *testing.T) {
	r := NewResult()
	r.Constraint = "/a[1]"
	r.DMR = "<Dataset/>\n"
	r.Transcript = []string{"Int32 7", "end /a"}

	assert.Equal(t, "constraint: /a[1]\n--- dmr\n<Dataset/>\n--- data\nInt32 7\nend /a\n", string(Snapshot(r)))

	r.Err = errors.New("boom")
	assert.Contains(t, string(Snapshot(r)), "--- error\nboom\n")
}
