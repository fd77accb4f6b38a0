package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/dap4/internal/ceerr"
	"github.com/roach88/dap4/internal/chunk"
	"github.com/roach88/dap4/internal/compiler"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/dmrcue"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/memdata"
	"github.com/roach88/dap4/internal/store"
	"github.com/roach88/dap4/internal/synth"
	"github.com/roach88/dap4/internal/view"
)

// requestIDs gives every scenario run the same request id.
type requestIDs struct{}

func (requestIDs) Generate() string { return "scenario" }

// Harness is the scenario execution engine.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// New creates a harness. Logging is discarded unless WithLogger is given.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a test scenario and returns the result.
//
// The returned error covers problems with the scenario's inputs (an invalid
// dataset model or fixture). Compile and generate failures are part of the
// result and checked against the scenario's expected error.
//
// Execution flow:
//  1. Load the dataset model
//  2. Compile the constraint
//  3. Build the data provider
//  4. Generate the chunked response, recording a transcript
//  5. Check expectations and assertions
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	ds, err := dmrcue.Load(scenario.Dataset)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	result := NewResult()
	v, err := compiler.CompileText(ds, scenario.Constraint)
	if err != nil {
		h.logger.Debug("compile failed", "scenario", scenario.Name, "error", err)
		return h.finish(scenario, result, err), nil
	}
	result.Constraint = v.ConstraintString()

	p, cleanup, err := h.provider(ctx, scenario, ds)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	genErr := h.generate(ctx, scenario, ds, v, p, result)
	result = h.finish(scenario, result, genErr)
	if genErr == nil {
		for _, msg := range EvaluateAssertions(result, scenario.Assertions, &AssertionContext{Dataset: ds, View: v}) {
			result.AddError(msg)
		}
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"values", result.Stats.Values,
		"rows", result.Stats.Rows,
	)
	return result, nil
}

// finish records err in result and checks the expectations that hold for
// both outcomes.
func (h *Harness) finish(scenario *Scenario, result *Result, err error) *Result {
	if err != nil {
		result.Err = err
		result.ErrorKind = errorKind(err)
	}

	want := scenario.Expect
	switch {
	case want.Error == "" && err != nil:
		result.AddError(fmt.Sprintf("unexpected error: %v", err))
	case want.Error != "" && err == nil:
		result.AddError(fmt.Sprintf("expected %s error, got success", want.Error))
	case want.Error != "" && result.ErrorKind != want.Error:
		result.AddError(fmt.Sprintf("expected %s error, got %v", want.Error, err))
	}

	if want.Constraint != nil && (err == nil || result.Constraint != "") && result.Constraint != *want.Constraint {
		result.AddError(fmt.Sprintf("constraint string: expected %q, got %q", *want.Constraint, result.Constraint))
	}
	return result
}

func errorKind(err error) string {
	if generator.IsRowsExceededError(err) {
		return ErrorRowsExceeded
	}
	return string(ceerr.KindOf(err))
}

// provider builds the scenario's data source. cleanup releases it.
func (h *Harness) provider(ctx context.Context, scenario *Scenario, ds *dmr.Dataset) (generator.Provider, func(), error) {
	noop := func() {}
	switch scenario.source() {
	case SourceFixture:
		p, err := memdata.Load(scenario.Data, ds)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to load data: %w", err)
		}
		return p, noop, nil

	case SourceSynth:
		return synth.New(synth.WithSeed(scenario.Seed)), noop, nil

	case SourceStore:
		// Each scenario gets a fresh in-memory database for isolation.
		var src generator.Provider = synth.New(synth.WithSeed(scenario.Seed))
		if scenario.Data != "" {
			p, err := memdata.Load(scenario.Data, ds)
			if err != nil {
				return nil, noop, fmt.Errorf("failed to load data: %w", err)
			}
			src = p
		}
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		stats, err := st.Import(ctx, ds, src)
		if err != nil {
			st.Close()
			return nil, noop, fmt.Errorf("failed to import data: %w", err)
		}
		h.logger.Debug("store imported", "scenario", scenario.Name, "values", stats.Values, "rows", stats.Rows)
		return st.Provider(ctx, ds.Name()), func() { st.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown source %q", scenario.Source)
}

func (h *Harness) generate(ctx context.Context, scenario *Scenario, ds *dmr.Dataset, v view.View, p generator.Provider, result *Result) error {
	opts, err := writerOptions(scenario.Encoding)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := chunk.NewWriter(&buf, opts...)
	sink := &transcriptSink{next: w, result: result}

	genOpts := []generator.Option{generator.WithRequestIDs(requestIDs{})}
	if scenario.Encoding.MaxRows > 0 {
		genOpts = append(genOpts, generator.WithMaxRows(scenario.Encoding.MaxRows))
	}

	stats, err := generator.New(genOpts...).Generate(ctx, ds, v, p, sink)
	result.Stats = stats
	if err != nil {
		if abortErr := w.Abort(err); abortErr != nil {
			h.logger.Warn("abort failed", "scenario", scenario.Name, "error", abortErr)
		}
		result.Response = buf.Bytes()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	result.Response = buf.Bytes()
	return nil
}

func writerOptions(enc Encoding) ([]chunk.Option, error) {
	var opts []chunk.Option
	if enc.ByteOrder != "" {
		opt, err := chunk.WithByteOrder(strings.ToLower(enc.ByteOrder))
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	if enc.Checksums {
		opts = append(opts, chunk.WithChecksums())
	}
	if enc.ChunkSize > 0 {
		opts = append(opts, chunk.WithChunkSize(enc.ChunkSize))
	}
	return opts, nil
}
