package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the commands. It is read from the file
// named by --config; command flags override it.
type Config struct {
	// ByteOrder of response values: "big" or "little".
	ByteOrder string `yaml:"byte_order"`

	// ChunkSize is the payload size at which data chunks are emitted.
	ChunkSize int `yaml:"chunk_size"`

	// Checksums appends a CRC32 after each top-level variable.
	Checksums bool `yaml:"checksums"`

	// MaxRows limits the rows of one sequence instance. 0 disables the limit.
	MaxRows int64 `yaml:"max_rows"`

	// Seed and SynthRows configure synthetic data.
	Seed      uint64 `yaml:"seed"`
	SynthRows int64  `yaml:"synth_rows"`

	// DB is the SQLite store path.
	DB string `yaml:"db"`

	// CacheDir is the DMR cache directory. Empty disables the cache.
	CacheDir string `yaml:"cache_dir"`
}

// DefaultConfig returns the settings used without a config file.
func DefaultConfig() Config {
	return Config{
		ByteOrder: "big",
		ChunkSize: 64 * 1024,
		MaxRows:   1 << 20,
		SynthRows: 5,
	}
}

// LoadConfig reads a YAML config file over the defaults.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.ByteOrder {
	case "big", "little":
	default:
		return fmt.Errorf("byte_order must be big or little, got %q", c.ByteOrder)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max_rows must be non-negative")
	}
	if c.SynthRows < 0 {
		return fmt.Errorf("synth_rows must be non-negative")
	}
	return nil
}

// overrideString sets *dst from a string flag the user set explicitly.
func overrideString(cmd *cobra.Command, name string, dst *string) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}

// encodingFlags are the response settings a command can override.
type encodingFlags struct {
	byteOrder string
	chunkSize int
	checksums bool
	maxRows   int64
}

func (e *encodingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&e.byteOrder, "byte-order", "big", "value byte order (big|little)")
	cmd.Flags().IntVar(&e.chunkSize, "chunk-size", 64*1024, "data chunk payload size in bytes")
	cmd.Flags().BoolVar(&e.checksums, "checksums", false, "append a CRC32 after each top-level variable")
	cmd.Flags().Int64Var(&e.maxRows, "max-rows", 1<<20, "row limit per sequence instance (0 disables)")
}

// apply copies the flags the user set onto cfg.
func (e *encodingFlags) apply(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	if flags.Changed("byte-order") {
		cfg.ByteOrder = e.byteOrder
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = e.chunkSize
	}
	if flags.Changed("checksums") {
		cfg.Checksums = e.checksums
	}
	if flags.Changed("max-rows") {
		cfg.MaxRows = e.maxRows
	}
	return cfg.validate()
}
