package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dap4/internal/cache"
	"github.com/roach88/dap4/internal/compiler"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/view"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	CacheDir string
}

// DescribeResult is the JSON form of a constrained DMR.
type DescribeResult struct {
	Constraint string `json:"constraint"`
	DMR        string `json:"dmr"`
	Cached     bool   `json:"cached"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe <dataset.cue> [constraint]",
		Short: "Print the DMR of a dataset as seen through a constraint",
		Long: `Print the DMR document of a dataset model restricted to the variables,
dimensions, enumerations and groups a constraint references. Without a
constraint the whole dataset is described.

With --cache-dir (or cache_dir in the config file) printed DMRs are kept in
a Badger cache keyed by the dataset fingerprint and canonical constraint.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := ""
			if len(args) == 2 {
				text = args[1]
			}
			return runDescribe(opts, args[0], text, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "DMR cache directory")

	return cmd
}

func runDescribe(opts *DescribeOptions, datasetPath, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	overrideString(cmd, "cache-dir", &cfg.CacheDir)

	ds, err := loadDataset(datasetPath)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}
	v, err := compiler.CompileText(ds, text)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}

	doc, hit, err := describe(cfg.CacheDir, ds, v)
	if err != nil {
		return formatter.fail(ExitFailure, err)
	}
	if cfg.CacheDir != "" {
		formatter.VerboseLog("DMR cache %s: %s", cacheState(hit), cfg.CacheDir)
	}

	if formatter.Format == "json" {
		return formatter.Success(DescribeResult{
			Constraint: v.ConstraintString(),
			DMR:        doc,
			Cached:     hit,
		})
	}
	_, err = fmt.Fprint(formatter.Writer, doc)
	return err
}

// describe prints the DMR, going through the cache when dir is set.
func describe(dir string, ds *dmr.Dataset, v view.View) (string, bool, error) {
	if dir == "" {
		var buf bytes.Buffer
		if err := generator.PrintDMR(&buf, ds, v); err != nil {
			return "", false, err
		}
		return buf.String(), false, nil
	}
	c, err := cache.Open(dir)
	if err != nil {
		return "", false, err
	}
	defer c.Close()
	return c.DMR(ds, v)
}

func cacheState(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
