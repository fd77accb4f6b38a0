package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dap4/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	source sourceFlags
}

// LoadResult summarizes an import.
type LoadResult struct {
	Dataset   string `json:"dataset"`
	DB        string `json:"db"`
	Source    string `json:"source"`
	Values    int64  `json:"values"`
	Instances int64  `json:"instances"`
	Rows      int64  `json:"rows"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <dataset.cue>",
		Short: "Import a dataset's values into a SQLite store",
		Long: `Import every value of a dataset into a SQLite store, from a YAML
fixture (--data) or from the seeded synthetic generator.

The store is created if needed. generate --db then serves responses from it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	opts.source.register(cmd, true)

	return cmd
}

func runLoad(opts *LoadOptions, datasetPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if err := opts.source.apply(cmd, &cfg); err != nil {
		return formatter.fail(ExitCommandError, configError(err))
	}
	if cfg.DB == "" {
		return formatter.fail(ExitCommandError, configError(errors.New("a store path is required: pass --db or set db in the config file")))
	}

	ds, err := loadDataset(datasetPath)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}
	src, err := openSource(ctx, ds, opts.source.data, cfg, false)
	if err != nil {
		return formatter.fail(ExitCommandError, err)
	}
	defer src.Close()

	st, err := store.Open(cfg.DB)
	if err != nil {
		return formatter.fail(ExitCommandError, &LoadError{Code: ErrCodeData, Message: err.Error()})
	}
	defer st.Close()

	stats, err := st.Import(ctx, ds, src)
	if err != nil {
		return formatter.fail(ExitFailure, &LoadError{Code: ErrCodeData, Message: err.Error()})
	}
	opts.Logger().Debug("dataset imported", "dataset", ds.Name(), "db", cfg.DB, "values", stats.Values, "rows", stats.Rows)

	result := LoadResult{
		Dataset:   ds.Name(),
		DB:        cfg.DB,
		Source:    src.name,
		Values:    stats.Values,
		Instances: stats.Instances,
		Rows:      stats.Rows,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s Loaded %s into %s: %d value(s), %d sequence instance(s), %d row(s)\n",
		formatter.OK(), result.Dataset, result.DB, result.Values, result.Instances, result.Rows)
	return nil
}
