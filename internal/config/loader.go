package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/asmcluster/internal/constants"
)

// Load resolves the configuration for a run over startDir. An explicit
// configPath wins; otherwise .asmcluster.toml is searched from startDir up
// to the filesystem root. Environment variables prefixed with ASMCLUSTER_
// override file values. The returned path is empty when no file was used.
func Load(configPath, startDir string) (*Config, string, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if configPath == "" && startDir != "" {
		found, err := FindConfigFile(startDir)
		switch {
		case err == nil:
			configPath = found
		case !IsNotFound(err):
			return nil, "", fmt.Errorf("failed to search for config file: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, configPath, nil
}

// FindConfigFile walks up the directory tree to find .asmcluster.toml
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		candidate := filepath.Join(dir, constants.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// IsNotFound reports whether err means no configuration file exists
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// setDefaults registers every key so that environment overrides apply to
// keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("compute.threads", d.Compute.Threads)
	v.SetDefault("compute.chunk_size", d.Compute.ChunkSize)
	v.SetDefault("compute.timeout_seconds", d.Compute.TimeoutSeconds)

	v.SetDefault("mash.binary", d.Mash.Binary)
	v.SetDefault("mash.extra_args", d.Mash.ExtraArgs)

	v.SetDefault("clustering.threshold", d.Clustering.Threshold)
	v.SetDefault("clustering.missing_policy", d.Clustering.MissingPolicy)

	v.SetDefault("input.extensions", d.Input.Extensions)
	v.SetDefault("input.include_patterns", d.Input.IncludePatterns)
	v.SetDefault("input.exclude_patterns", d.Input.ExcludePatterns)
	v.SetDefault("input.recursive", d.Input.Recursive)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.directory", d.Store.Directory)
	v.SetDefault("store.keep", d.Store.Keep)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.directory", d.Output.Directory)
	v.SetDefault("output.less_verbose", d.Output.LessVerbose)
}
