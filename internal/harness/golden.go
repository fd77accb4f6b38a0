package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the text stored in golden files: the
// canonical constraint, the DMR and the transcript.
func Snapshot(result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "constraint: %s\n", result.Constraint)
	b.WriteString("--- dmr\n")
	b.WriteString(result.DMR)
	b.WriteString("--- data\n")
	for _, line := range result.Transcript {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if result.Err != nil {
		fmt.Fprintf(&b, "--- error\n%s\n", result.Err)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(result))
}
