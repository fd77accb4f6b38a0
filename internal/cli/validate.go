package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dap4/internal/dmr"
)

// ValidationResult summarizes a valid dataset model.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Dataset      string   `json:"dataset"`
	Groups       int      `json:"groups"`
	Dimensions   int      `json:"dimensions"`
	Enumerations int      `json:"enumerations"`
	Variables    []string `json:"variables"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dataset.cue>",
		Short: "Validate a dataset model",
		Long: `Validate a CUE dataset model without compiling a constraint.

Checks CUE syntax, base types, dimension references, enumerations and
attributes, then prints a summary of the model.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, datasetPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ds, err := loadDataset(datasetPath)
	if err != nil {
		// A missing file is a command error; a bad model fails validation.
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Code == ErrCodeNotFound {
			return formatter.fail(ExitCommandError, err)
		}
		return formatter.fail(ExitFailure, err)
	}

	result := summarize(ds)
	for _, v := range ds.TopVariables() {
		formatter.VerboseLog("%s %s", v.Sort(), v.FQN())
	}
	return outputValidateSuccess(formatter, result)
}

// summarize counts the declarations of ds.
func summarize(ds *dmr.Dataset) ValidationResult {
	result := ValidationResult{Valid: true, Dataset: ds.Name(), Variables: []string{}}
	var walk func(g *dmr.Group)
	walk = func(g *dmr.Group) {
		result.Dimensions += len(g.Dimensions)
		result.Enumerations += len(g.Enums)
		result.Groups += len(g.Groups)
		for _, sub := range g.Groups {
			walk(sub)
		}
	}
	walk(ds.Root())
	for _, v := range ds.TopVariables() {
		result.Variables = append(result.Variables, v.FQN())
	}
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s Dataset %s is valid\n", formatter.OK(), result.Dataset)
	fmt.Fprintf(formatter.Writer, "  %d group(s), %d dimension(s), %d enumeration(s), %d variable(s)\n",
		result.Groups, result.Dimensions, result.Enumerations, len(result.Variables))
	return nil
}
