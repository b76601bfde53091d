package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/asmcluster/internal/config"
	"github.com/ludo-technologies/asmcluster/internal/constants"
)

// InitCommand represents the init command
type InitCommand struct {
	force      bool
	configPath string
}

// NewInitCommand creates a new init command
func NewInitCommand() *InitCommand {
	return &InitCommand{configPath: constants.ConfigFileName}
}

// CreateCobraCommand creates the cobra command for configuration initialization
func (i *InitCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a .asmcluster.toml with the default settings and a comment on each.

asmcluster looks for this file in the target directory and its parents, so
placing it at the top of a data tree applies it to every run below.

Examples:
  # Create .asmcluster.toml in the current directory
  asmcluster init

  # Overwrite an existing file
  asmcluster init --force`,
		Args: cobra.NoArgs,
		RunE: i.runInit,
	}

	cmd.Flags().BoolVarP(&i.force, "force", "f", false, "Overwrite existing configuration file")
	cmd.Flags().StringVarP(&i.configPath, "config", "c", i.configPath, "Configuration file path")
	return cmd
}

func (i *InitCommand) runInit(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(i.configPath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	if err := config.DefaultConfig().Save(path, i.force); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created: %s\n", path)
	return nil
}

// NewInitCmd creates and returns the init cobra command
func NewInitCmd() *cobra.Command {
	return NewInitCommand().CreateCobraCommand()
}
