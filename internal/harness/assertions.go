package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/view"
)

// Assertion validates the compiled view or the transcript.
type Assertion struct {
	// Type specifies the assertion type:
	// - "references": every node in Nodes is part of the response
	// - "excludes": no node in Nodes is part of the response
	// - "dimensions": Variable is written with exactly Dims
	// - "values": the values written for top-level Variable equal Values
	// - "value_count": top-level Variable wrote Count values
	// - "counts": the sequence counts written for Variable equal Counts
	Type string `yaml:"type"`

	// Nodes are FQNs of dimensions, enumerations, groups or variables.
	Nodes []string `yaml:"nodes,omitempty"`

	// Variable is a variable FQN.
	Variable string `yaml:"variable,omitempty"`

	// Dims lists dimension FQNs; an anonymous dimension is given by its size.
	Dims []string `yaml:"dims,omitempty"`

	// Values are compared with the written values in their text form.
	Values []any `yaml:"values,omitempty"`

	Counts []int64 `yaml:"counts,omitempty"`

	Count int64 `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertReferences = "references"
	AssertExcludes   = "excludes"
	AssertDimensions = "dimensions"
	AssertValues     = "values"
	AssertValueCount = "value_count"
	AssertCounts     = "counts"
)

// AssertionContext gives assertions access to the compiled constraint.
type AssertionContext struct {
	Dataset *dmr.Dataset
	View    view.View
}

// AssertionError is returned when an assertion fails.
// It includes the transcript to help debug the failure.
type AssertionError struct {
	Type       string
	Expected   string
	Actual     string
	Transcript []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Transcript) > 0 {
		fmt.Fprintf(&buf, "\nTranscript:\n")
		for i, line := range e.Transcript {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}
	return buf.String()
}

// assertReferenced checks that every named node is (or, with want false,
// is not) referenced by the view.
func assertReferenced(actx *AssertionContext, a Assertion, want bool) error {
	for _, fqn := range a.Nodes {
		nodes := actx.Dataset.FindByFQN(fqn)
		if len(nodes) == 0 {
			return fmt.Errorf("%s: no node %s in dataset %s", a.Type, fqn, actx.Dataset.Name())
		}
		got := false
		for _, n := range nodes {
			if actx.View.References(n) {
				got = true
				break
			}
		}
		if got != want {
			return &AssertionError{
				Type:     a.Type,
				Expected: fqn + " " + referenceState(want),
				Actual:   referenceState(got),
			}
		}
	}
	return nil
}

func referenceState(referenced bool) string {
	if referenced {
		return "referenced"
	}
	return "not referenced"
}

// assertDimensions checks the dimensions a variable is written with.
func assertDimensions(actx *AssertionContext, a Assertion) error {
	v, err := findVariable(actx.Dataset, a.Variable)
	if err != nil {
		return err
	}
	var got []string
	for _, d := range actx.View.Dimensions(v) {
		if d.IsAnonymous() {
			got = append(got, fmt.Sprintf("%d", d.Size))
		} else {
			got = append(got, d.FQN())
		}
	}
	if !slices.Equal(got, a.Dims) {
		return &AssertionError{
			Type:     AssertDimensions,
			Expected: fmt.Sprintf("%s dims %v", a.Variable, a.Dims),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertValues compares the written values in their text form.
func assertValues(result *Result, a Assertion) error {
	want := make([]string, len(a.Values))
	for i, v := range a.Values {
		want[i] = fmt.Sprint(v)
	}
	got := result.Values[a.Variable]
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:       AssertValues,
			Expected:   fmt.Sprintf("%s values %v", a.Variable, want),
			Actual:     fmt.Sprintf("%v", got),
			Transcript: result.Transcript,
		}
	}
	return nil
}

func assertValueCount(result *Result, a Assertion) error {
	got, ok := result.Values[a.Variable]
	if !ok {
		return &AssertionError{
			Type:     AssertValueCount,
			Expected: fmt.Sprintf("%s written", a.Variable),
			Actual:   "not in the response",
		}
	}
	if int64(len(got)) != a.Count {
		return &AssertionError{
			Type:     AssertValueCount,
			Expected: fmt.Sprintf("%s has %d values", a.Variable, a.Count),
			Actual:   fmt.Sprintf("%d values", len(got)),
		}
	}
	return nil
}

func assertCounts(result *Result, a Assertion) error {
	got := result.Counts[a.Variable]
	if !slices.Equal(got, a.Counts) {
		return &AssertionError{
			Type:       AssertCounts,
			Expected:   fmt.Sprintf("%s counts %v", a.Variable, a.Counts),
			Actual:     fmt.Sprintf("%v", got),
			Transcript: result.Transcript,
		}
	}
	return nil
}

func findVariable(ds *dmr.Dataset, fqn string) (*dmr.Variable, error) {
	nodes := ds.FindByFQN(fqn, dmr.SortAtomic, dmr.SortStructure, dmr.SortSequence)
	if len(nodes) != 1 {
		return nil, fmt.Errorf("no single variable %s in dataset %s", fqn, ds.Name())
	}
	return nodes[0].(*dmr.Variable), nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertReferences:
			err = assertReferenced(actx, assertion, true)
		case AssertExcludes:
			err = assertReferenced(actx, assertion, false)
		case AssertDimensions:
			err = assertDimensions(actx, assertion)
		case AssertValues:
			err = assertValues(result, assertion)
		case AssertValueCount:
			err = assertValueCount(result, assertion)
		case AssertCounts:
			err = assertCounts(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
