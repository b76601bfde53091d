package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/asmcluster/internal/config"
	"github.com/ludo-technologies/asmcluster/internal/logging"
	"github.com/ludo-technologies/asmcluster/service"
)

// loadConfig resolves the configuration for a run over targetDir and
// records which flags of cmd were given explicitly.
func loadConfig(cmd *cobra.Command, configFile, targetDir string) (*config.Config, *config.FlagTracker, error) {
	cfg, used, err := config.Load(configFile, targetDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if used != "" {
		logging.New("config").Debug("configuration loaded", slog.String("path", used))
	}
	return cfg, config.TrackFlagSet(cmd.Flags()), nil
}

// newOracle creates the mash invoker and checks that the binary exists, so a
// missing installation fails before any work is done.
func newOracle(cfg *config.Config) (*service.MashOracle, error) {
	oracle := service.NewMashOracle(service.MashOracleOptions{
		Binary:    cfg.Mash.Binary,
		ExtraArgs: cfg.Mash.ExtraArgs,
		Timeout:   cfg.Compute.Timeout(),
		Logger:    logging.New("oracle"),
	})
	if err := oracle.Available(); err != nil {
		return nil, err
	}
	return oracle, nil
}

// newProgress creates a progress manager drawing on the command's stderr
func newProgress(cmd *cobra.Command) *service.ProgressManagerImpl {
	pm := service.NewProgressManager()
	pm.SetWriter(cmd.ErrOrStderr())
	return pm
}
