package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/constants"
)

// Config represents the main configuration structure
type Config struct {
	Compute    ComputeConfig    `mapstructure:"compute" toml:"compute"`
	Mash       MashConfig       `mapstructure:"mash" toml:"mash"`
	Clustering ClusteringConfig `mapstructure:"clustering" toml:"clustering"`
	Input      InputConfig      `mapstructure:"input" toml:"input"`
	Store      StoreConfig      `mapstructure:"store" toml:"store"`
	Output     OutputConfig     `mapstructure:"output" toml:"output"`
}

// ComputeConfig controls how comparisons are scheduled
type ComputeConfig struct {
	Threads        int `mapstructure:"threads" toml:"threads" comment:"Concurrent mash invocations"`
	ChunkSize      int `mapstructure:"chunk_size" toml:"chunk_size" comment:"Pairs per batch; each batch is stored in one transaction"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" toml:"timeout_seconds" comment:"Deadline for one comparison, 0 disables it"`
}

// Timeout returns the per-comparison deadline, zero when disabled
func (c ComputeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MashConfig locates the distance oracle
type MashConfig struct {
	Binary    string   `mapstructure:"binary" toml:"binary" comment:"mash executable, looked up on PATH"`
	ExtraArgs []string `mapstructure:"extra_args" toml:"extra_args" comment:"Extra arguments passed to 'mash dist'"`
}

// ClusteringConfig holds the grouping parameters
type ClusteringConfig struct {
	Threshold     float64 `mapstructure:"threshold" toml:"threshold" comment:"Maximum distance inside one group"`
	MissingPolicy string  `mapstructure:"missing_policy" toml:"missing_policy" comment:"Distance used for failed comparisons: zero or infinity"`
}

// InputConfig selects the assemblies of a directory
type InputConfig struct {
	Extensions      []string `mapstructure:"extensions" toml:"extensions" comment:"Assembly file extensions; a trailing .gz is also accepted"`
	IncludePatterns []string `mapstructure:"include_patterns" toml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" toml:"exclude_patterns"`
	Recursive       bool     `mapstructure:"recursive" toml:"recursive" comment:"cluster: also collect assemblies from nested directories"`
}

// StoreConfig selects the result store
type StoreConfig struct {
	Backend   string `mapstructure:"backend" toml:"backend" comment:"sqlite or memory"`
	Directory string `mapstructure:"directory" toml:"directory" comment:"Where temporary store files go, empty for the system temp dir"`
	Keep      bool   `mapstructure:"keep" toml:"keep" comment:"Keep the store file after a successful run"`
}

// OutputConfig controls reports and the compare table
type OutputConfig struct {
	Format      string `mapstructure:"format" toml:"format" comment:"Cluster report format: text, json, yaml or csv"`
	Directory   string `mapstructure:"directory" toml:"directory"`
	LessVerbose bool   `mapstructure:"less_verbose" toml:"less_verbose" comment:"compare: write only name, name, distance"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Compute: ComputeConfig{
			Threads:        constants.DefaultThreads,
			ChunkSize:      constants.DefaultChunkSize,
			TimeoutSeconds: constants.DefaultOracleTimeoutSeconds,
		},
		Mash: MashConfig{
			Binary:    constants.DefaultMashBinary,
			ExtraArgs: []string{},
		},
		Clustering: ClusteringConfig{
			Threshold:     constants.DefaultDistanceThreshold,
			MissingPolicy: constants.DefaultMissingPolicy,
		},
		Input: InputConfig{
			Extensions:      slices.Clone(domain.DefaultAssemblyExtensions),
			IncludePatterns: []string{},
			ExcludePatterns: []string{},
			Recursive:       true,
		},
		Store: StoreConfig{
			Backend: constants.DefaultStoreBackend,
		},
		Output: OutputConfig{
			Format: string(domain.OutputFormatText),
		},
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Compute.Threads < 1 {
		return fmt.Errorf("compute.threads must be >= 1, got %d", c.Compute.Threads)
	}
	if c.Compute.ChunkSize < 1 {
		return fmt.Errorf("compute.chunk_size must be >= 1, got %d", c.Compute.ChunkSize)
	}
	if c.Compute.TimeoutSeconds < 0 {
		return fmt.Errorf("compute.timeout_seconds must be >= 0, got %d", c.Compute.TimeoutSeconds)
	}
	if strings.TrimSpace(c.Mash.Binary) == "" {
		return fmt.Errorf("mash.binary must not be empty")
	}
	if c.Clustering.Threshold < 0 {
		return fmt.Errorf("clustering.threshold must be >= 0, got %g", c.Clustering.Threshold)
	}
	if _, err := domain.ParseMissingPolicy(c.Clustering.MissingPolicy); err != nil {
		return fmt.Errorf("clustering.missing_policy: %w", err)
	}
	if len(c.Input.Extensions) == 0 {
		return fmt.Errorf("input.extensions must list at least one extension")
	}
	for _, ext := range c.Input.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("input.extensions: '%s' must start with a dot", ext)
		}
	}
	switch strings.ToLower(c.Store.Backend) {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.backend must be sqlite or memory, got '%s'", c.Store.Backend)
	}
	switch domain.OutputFormat(c.Output.Format) {
	case domain.OutputFormatText, domain.OutputFormatJSON, domain.OutputFormatYAML, domain.OutputFormatCSV:
	default:
		return fmt.Errorf("output.format must be one of text, json, yaml, csv, got '%s'", c.Output.Format)
	}
	return nil
}

// CollectOptions converts the [input] section for the assembly collector
func (c *Config) CollectOptions() domain.CollectOptions {
	return domain.CollectOptions{
		Recursive:       c.Input.Recursive,
		Extensions:      slices.Clone(c.Input.Extensions),
		IncludePatterns: slices.Clone(c.Input.IncludePatterns),
		ExcludePatterns: slices.Clone(c.Input.ExcludePatterns),
	}
}
