package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dap4/internal/ceerr"
)

// Scenario defines one end-to-end constraint test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dataset is the path of the CUE dataset model.
	// Relative paths are resolved against the scenario file's directory.
	Dataset string `yaml:"dataset"`

	// Data is the path of a YAML fixture. Required for the fixture source.
	Data string `yaml:"data,omitempty"`

	// Source selects the data provider: fixture, synth or store.
	// Defaults to fixture when Data is set and synth otherwise.
	Source string `yaml:"source,omitempty"`

	// Seed seeds synthetic data.
	Seed uint64 `yaml:"seed,omitempty"`

	// Constraint is the constraint expression. Empty means the whole dataset.
	Constraint string `yaml:"constraint"`

	Encoding Encoding `yaml:"encoding,omitempty"`

	Expect ExpectClause `yaml:"expect"`

	// Assertions validate the compiled view and the transcript.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Encoding configures the response writer.
type Encoding struct {
	// ByteOrder is "big" (the default) or "little".
	ByteOrder string `yaml:"byte_order,omitempty"`

	Checksums bool `yaml:"checksums,omitempty"`
	ChunkSize int  `yaml:"chunk_size,omitempty"`

	// MaxRows limits the rows of one sequence instance. 0 keeps the
	// generator default.
	MaxRows int64 `yaml:"max_rows,omitempty"`
}

// ExpectClause is the expected outcome of compiling and generating.
type ExpectClause struct {
	// Constraint is the expected canonical constraint string.
	// Nil skips the check; an empty string expects the universal view.
	Constraint *string `yaml:"constraint,omitempty"`

	// Error is the expected error kind (a ceerr kind or ROWS_EXCEEDED).
	// Empty expects success.
	Error string `yaml:"error,omitempty"`
}

// Source names.
const (
	SourceFixture = "fixture"
	SourceSynth   = "synth"
	SourceStore   = "store"
)

// ErrorRowsExceeded is the error kind of an aborted oversized sequence.
const ErrorRowsExceeded = "ROWS_EXCEEDED"

var errorKinds = map[string]bool{
	string(ceerr.KindSyntax):         true,
	string(ceerr.KindNameResolution): true,
	string(ceerr.KindType):           true,
	string(ceerr.KindRange):          true,
	string(ceerr.KindSemantic):       true,
	ErrorRowsExceeded:                true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields so "assertion:" vs "assertions:" is caught.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths relative to the scenario BEFORE validation
	base := filepath.Dir(path)
	scenario.Dataset = resolvePath(base, scenario.Dataset)
	scenario.Data = resolvePath(base, scenario.Data)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]*Scenario, 0, len(names))
	seen := make(map[string]string)
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", name, s.Name, prev)
		}
		seen[s.Name] = name
		out = append(out, s)
	}
	return out, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// source returns the effective data source.
func (s *Scenario) source() string {
	if s.Source != "" {
		return s.Source
	}
	if s.Data != "" {
		return SourceFixture
	}
	return SourceSynth
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if _, err := os.Stat(s.Dataset); os.IsNotExist(err) {
		return fmt.Errorf("dataset file not found: %s", s.Dataset)
	}
	if s.Data != "" {
		if _, err := os.Stat(s.Data); os.IsNotExist(err) {
			return fmt.Errorf("data file not found: %s", s.Data)
		}
	}

	switch s.source() {
	case SourceFixture:
		if s.Data == "" {
			return fmt.Errorf("source fixture requires data")
		}
	case SourceSynth, SourceStore:
	default:
		return fmt.Errorf("unknown source %q", s.Source)
	}

	switch strings.ToLower(s.Encoding.ByteOrder) {
	case "", "big", "little":
	default:
		return fmt.Errorf("encoding: unknown byte order %q", s.Encoding.ByteOrder)
	}
	if s.Encoding.ChunkSize < 0 {
		return fmt.Errorf("encoding: chunk_size must be non-negative")
	}
	if s.Encoding.MaxRows < 0 {
		return fmt.Errorf("encoding: max_rows must be non-negative")
	}

	if s.Expect.Error != "" {
		if !errorKinds[s.Expect.Error] {
			return fmt.Errorf("expect: unknown error kind %q", s.Expect.Error)
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions cannot be combined with an expected error")
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReferences, AssertExcludes:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for %s", index, a.Type)
		}
	case AssertDimensions:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for dimensions", index)
		}
	case AssertValues:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for values", index)
		}
	case AssertValueCount:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for value_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for value_count", index)
		}
	case AssertCounts:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for counts", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
