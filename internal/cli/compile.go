package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dap4/internal/compiler"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/view"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	NoExpand bool
}

// CompilationResult is the JSON form of a compiled constraint.
type CompilationResult struct {
	Constraint string          `json:"constraint"`
	Explicit   string          `json:"explicit"`
	Segments   []SegmentResult `json:"segments"`
}

// SegmentResult describes one included variable.
type SegmentResult struct {
	Variable   string   `json:"variable"`
	Slices     []string `json:"slices"`
	Dimensions []string `json:"dimensions"`
	Filter     string   `json:"filter,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <dataset.cue> <constraint>",
		Short: "Compile a constraint expression against a dataset model",
		Long: `Compile a DAP4 constraint expression against a dataset model.

Prints the canonical constraint and the resolved slices, dimensions and
filter of every included variable. Compound variables named without
fields are expanded to their fields unless --no-expand is given.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoExpand, "no-expand", false, "do not expand compound variables to their fields")

	return cmd
}

func runCompile(opts *CompileOptions, datasetPath, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ds, err := loadDataset(datasetPath)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}
	formatter.VerboseLog("Loaded dataset %s from %s", ds.Name(), datasetPath)

	var copts []compiler.Option
	if opts.NoExpand {
		copts = append(copts, compiler.WithoutExpansion())
	}
	v, err := compiler.CompileText(ds, text, copts...)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}

	result := buildCompilationResult(v)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	canonical := result.Constraint
	if canonical == "" {
		canonical = v.String()
	}
	fmt.Fprintf(formatter.Writer, "%s %s\n", formatter.OK(), canonical)
	if len(result.Segments) == 0 {
		return nil
	}
	fmt.Fprintln(formatter.Writer)
	return renderSegments(formatter, result.Segments)
}

func buildCompilationResult(v view.View) *CompilationResult {
	result := &CompilationResult{
		Constraint: v.ConstraintString(),
		Explicit:   v.String(),
		Segments:   []SegmentResult{},
	}
	for _, seg := range v.Segments() {
		sr := SegmentResult{Variable: seg.Var.FQN()}
		for _, s := range seg.Slices {
			sr.Slices = append(sr.Slices, s.String())
		}
		for _, d := range seg.Dims {
			sr.Dimensions = append(sr.Dimensions, dimLabel(d))
		}
		if seg.Filter != nil {
			sr.Filter = seg.Filter.String()
		}
		result.Segments = append(result.Segments, sr)
	}
	return result
}

// dimLabel names a dimension by FQN, or by size when it is anonymous.
func dimLabel(d *dmr.Dimension) string {
	if d.IsAnonymous() {
		return strconv.FormatInt(d.Size, 10)
	}
	return fmt.Sprintf("%s=%d", d.FQN(), d.Size)
}

func renderSegments(formatter *OutputFormatter, segs []SegmentResult) error {
	table := newTable(formatter.Writer, "Variable", "Slices", "Dimensions", "Filter")
	for _, s := range segs {
		if err := table.Append([]string{
			s.Variable,
			strings.Join(s.Slices, ""),
			strings.Join(s.Dimensions, " "),
			s.Filter,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
