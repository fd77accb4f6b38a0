package harness

import (
	"fmt"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/value"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Constraint is the canonical constraint string of the compiled view.
	Constraint string `json:"constraint"`

	// ErrorKind and Err describe a compile or generate failure.
	ErrorKind string `json:"error_kind,omitempty"`
	Err       error  `json:"-"`

	// DMR is the DMR document written ahead of the data.
	DMR string `json:"dmr,omitempty"`

	// Transcript lists every write after the DMR, one line each.
	Transcript []string `json:"transcript"`

	// Values and Counts hold the formatted values and the sequence counts
	// written for each top-level variable, keyed by FQN.
	Values map[string][]string `json:"values"`
	Counts map[string][]int64  `json:"counts"`

	// Response is the raw chunked response.
	Response []byte `json:"-"`

	Stats generator.Stats `json:"stats"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Errors:     []string{},
		Transcript: []string{},
		Values:     make(map[string][]string),
		Counts:     make(map[string][]int64),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// transcriptSink records every write in the result and forwards it to the
// response writer.
type transcriptSink struct {
	next   generator.Sink
	result *Result

	// values and counts of the top-level variable being written
	values []string
	counts []int64
}

func (s *transcriptSink) WriteDMR(text string) error {
	s.result.DMR = text
	return s.next.WriteDMR(text)
}

func (s *transcriptSink) WriteAtomic(t dmr.BaseType, v value.Value) error {
	text := value.Format(v)
	s.result.Transcript = append(s.result.Transcript, fmt.Sprintf("%s %s", t, text))
	s.values = append(s.values, text)
	return s.next.WriteAtomic(t, v)
}

func (s *transcriptSink) WriteCount(n int64) error {
	s.result.Transcript = append(s.result.Transcript, fmt.Sprintf("count %d", n))
	s.counts = append(s.counts, n)
	return s.next.WriteCount(n)
}

func (s *transcriptSink) EndVariable(v *dmr.Variable) error {
	s.result.Transcript = append(s.result.Transcript, "end "+v.FQN())
	s.result.Values[v.FQN()] = s.values
	if s.counts != nil {
		s.result.Counts[v.FQN()] = s.counts
	}
	s.values, s.counts = nil, nil
	return s.next.EndVariable(v)
}

func (s *transcriptSink) Flush() error { return s.next.Flush() }
