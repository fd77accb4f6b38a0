package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dap4/internal/chunk"
	"github.com/roach88/dap4/internal/compiler"
	"github.com/roach88/dap4/internal/generator"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Output string
	NoDMR  bool

	encoding encodingFlags
	source   sourceFlags
}

// GenerateResult summarizes a written response.
type GenerateResult struct {
	RequestID  string `json:"request_id"`
	Constraint string `json:"constraint"`
	Source     string `json:"source"`
	Output     string `json:"output"`
	Variables  int    `json:"variables"`
	Values     int64  `json:"values"`
	Rows       int64  `json:"rows"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <dataset.cue> [constraint]",
		Short: "Write the chunked DAP4 response for a constraint",
		Long: `Write the chunked DAP4 response (DMR followed by data) for a constraint.

Values come from a YAML fixture (--data), a SQLite store (--db or db in the
config file) or, when neither is given, from the seeded synthetic generator.

If generation fails part way the response is terminated with an ERROR chunk
and the command exits with status 1.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 2 {
				text = args[1]
			}
			return runGenerate(opts, args[0], text, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default stdout)")
	cmd.Flags().BoolVar(&opts.NoDMR, "no-dmr", false, "write the data part only")
	opts.encoding.register(cmd)
	opts.source.register(cmd, true)

	return cmd
}

func runGenerate(opts *GenerateOptions, datasetPath, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if err := opts.encoding.apply(cmd, &cfg); err != nil {
		return formatter.fail(ExitCommandError, configError(err))
	}
	if err := opts.source.apply(cmd, &cfg); err != nil {
		return formatter.fail(ExitCommandError, configError(err))
	}

	ds, err := loadDataset(datasetPath)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}
	v, err := compiler.CompileText(ds, text)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}

	src, err := openSource(ctx, ds, opts.source.data, cfg, true)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}
	defer src.Close()
	formatter.VerboseLog("Reading values from %s", src.name)

	out := cmd.OutOrStdout()
	outName := "stdout"
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return formatter.fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
		}
		defer f.Close()
		out, outName = f, opts.Output
	}

	wopts, err := writerOptions(cfg)
	if err != nil {
		return formatter.fail(ExitCommandError, configError(err))
	}
	w := chunk.NewWriter(out, wopts...)

	gopts := []generator.Option{generator.WithMaxRows(cfg.MaxRows)}
	if opts.NoDMR {
		gopts = append(gopts, generator.WithoutDMR())
	}
	stats, genErr := generator.New(gopts...).Generate(ctx, ds, v, src, w)
	if genErr != nil {
		if err := w.Abort(genErr); err != nil {
			formatter.VerboseLog("writing ERROR chunk: %v", err)
		}
		return summaryFormatter(formatter, opts.Output).fail(ExitFailure, genErr)
	}
	if err := w.Close(); err != nil {
		return summaryFormatter(formatter, opts.Output).fail(ExitFailure,
			&LoadError{Code: ErrCodeWriteFailed, Message: err.Error()})
	}

	result := GenerateResult{
		RequestID:  stats.RequestID,
		Constraint: v.ConstraintString(),
		Source:     src.name,
		Output:     outName,
		Variables:  stats.Variables,
		Values:     stats.Values,
		Rows:       stats.Rows,
	}
	return outputGenerateSuccess(summaryFormatter(formatter, opts.Output), result)
}

// summaryFormatter keeps reports off stdout while the response is written
// there.
func summaryFormatter(f *OutputFormatter, output string) *OutputFormatter {
	if output != "" {
		return f
	}
	out := *f
	out.Writer = f.GetErrWriter()
	return &out
}

func writerOptions(cfg Config) ([]chunk.Option, error) {
	order, err := chunk.WithByteOrder(cfg.ByteOrder)
	if err != nil {
		return nil, err
	}
	opts := []chunk.Option{order, chunk.WithChunkSize(cfg.ChunkSize)}
	if cfg.Checksums {
		opts = append(opts, chunk.WithChecksums())
	}
	return opts, nil
}

func outputGenerateSuccess(formatter *OutputFormatter, result GenerateResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if result.Output == "stdout" && !formatter.Verbose {
		return nil
	}
	return writeGenerateSummary(formatter.Writer, formatter.OK(), result)
}

func writeGenerateSummary(w io.Writer, mark string, result GenerateResult) error {
	_, err := fmt.Fprintf(w, "%s Wrote %d value(s), %d row(s) in %d variable(s) to %s\n",
		mark, result.Values, result.Rows, result.Variables, result.Output)
	return err
}
