package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const fileHeader = `# asmcluster configuration
# Values here are overridden by ASMCLUSTER_<SECTION>_<KEY> environment
# variables and by flags given on the command line.

`

// WriteTOML encodes the configuration as a commented TOML document
func (c *Config) WriteTOML(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)

	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Save writes the configuration to path. An existing file is only replaced
// when force is set.
func (c *Config) Save(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if err := c.WriteTOML(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Decode parses a TOML document on top of the defaults
func Decode(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
