package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/generator"
	"github.com/roach88/dap4/internal/memdata"
	"github.com/roach88/dap4/internal/store"
	"github.com/roach88/dap4/internal/synth"
)

// sourceFlags select where values come from: a YAML fixture, a SQLite
// store, or the synthetic generator.
type sourceFlags struct {
	data      string
	db        string
	seed      uint64
	synthRows int64
}

func (s *sourceFlags) register(cmd *cobra.Command, withDB bool) {
	cmd.Flags().StringVar(&s.data, "data", "", "YAML fixture with the dataset's values")
	if withDB {
		cmd.Flags().StringVar(&s.db, "db", "", "SQLite store with the dataset's values")
	}
	cmd.Flags().Uint64Var(&s.seed, "seed", 0, "seed for synthetic values")
	cmd.Flags().Int64Var(&s.synthRows, "synth-rows", 5, "upper bound of synthetic sequence rows")
}

// apply copies the flags the user set onto cfg.
func (s *sourceFlags) apply(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	overrideString(cmd, "db", &cfg.DB)
	if flags.Changed("seed") {
		cfg.Seed = s.seed
	}
	if flags.Changed("synth-rows") {
		cfg.SynthRows = s.synthRows
	}
	return cfg.validate()
}

// source is an open value provider and the name of where it reads from.
type source struct {
	generator.Provider
	name  string
	close func() error
}

func (s *source) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// openSource opens the provider for ds. A fixture wins over the store,
// and the store over synthetic values.
func openSource(ctx context.Context, ds *dmr.Dataset, fixture string, cfg Config, useDB bool) (*source, error) {
	switch {
	case fixture != "":
		p, err := memdata.Load(fixture, ds)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeData, Message: err.Error()}
		}
		return &source{Provider: p, name: "fixture " + fixture}, nil

	case useDB && cfg.DB != "":
		st, err := store.Open(cfg.DB)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeData, Message: err.Error()}
		}
		names, err := st.Datasets(ctx)
		if err != nil {
			st.Close()
			return nil, &LoadError{Code: ErrCodeData, Message: err.Error()}
		}
		if !slices.Contains(names, ds.Name()) {
			st.Close()
			return nil, &LoadError{
				Code:    ErrCodeData,
				Message: fmt.Sprintf("dataset %s is not in store %s", ds.Name(), cfg.DB),
			}
		}
		return &source{Provider: st.Provider(ctx, ds.Name()), name: "store " + cfg.DB, close: st.Close}, nil

	default:
		p := synth.New(synth.WithSeed(cfg.Seed), synth.WithMaxRows(cfg.SynthRows))
		return &source{Provider: p, name: fmt.Sprintf("synthetic seed %d", cfg.Seed)}, nil
	}
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// configError classifies a bad setting for output.
func configError(err error) error {
	return &LoadError{Code: ErrCodeConfig, Message: err.Error()}
}
