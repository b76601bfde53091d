package main

import (
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/asmcluster/app"
	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/config"
	"github.com/ludo-technologies/asmcluster/internal/constants"
	"github.com/ludo-technologies/asmcluster/internal/logging"
	"github.com/ludo-technologies/asmcluster/service"
)

// CompareCommand handles the compare CLI command
type CompareCommand struct {
	configFile  string
	outputPath  string
	threshold   float64
	lessVerbose bool
	threads     int
	chunkSize   int
	timeout     int
	mash        string
	recursive   bool
}

// NewCompareCommand creates a new compare command with default values
func NewCompareCommand() *CompareCommand {
	return &CompareCommand{
		threads:   constants.DefaultThreads,
		chunkSize: constants.DefaultChunkSize,
		timeout:   constants.DefaultOracleTimeoutSeconds,
		mash:      constants.DefaultMashBinary,
	}
}

// CreateCobraCommand creates the cobra command for cross comparison
func (c *CompareCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <reference-dir> <query-dir>",
		Short: "Compare every assembly of one directory with every one of another",
		Long: `Run 'mash dist' for every assembly of the reference directory against every
assembly of the query directory and write the results as a tab-separated
table without header:

  reference  query  distance  p-value  shared-hashes

Nothing is clustered. Rows are written as each batch finishes, so a partial
table is usable when a run is interrupted.

Examples:
  # Full table
  asmcluster compare refs/ queries/ -o cross.tsv

  # Only close hits, three columns
  asmcluster compare refs/ queries/ -o hits.tsv --threshold 0.05 --less-verbose`,
		Args: cobra.ExactArgs(2),
		RunE: c.runCompare,
	}

	cmd.Flags().StringVarP(&c.configFile, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&c.outputPath, "output", "o", "", "Output table path")
	cmd.Flags().Float64VarP(&c.threshold, "threshold", "t", 0, "Only write rows with a distance below this value")
	cmd.Flags().BoolVar(&c.lessVerbose, "less-verbose", false, "Write only reference, query and distance")
	cmd.Flags().IntVarP(&c.threads, "threads", "p", c.threads, "Concurrent mash invocations")
	cmd.Flags().IntVar(&c.chunkSize, "chunk-size", c.chunkSize, "Pairs per written batch")
	cmd.Flags().IntVar(&c.timeout, "timeout", c.timeout, "Seconds allowed for one comparison, 0 for no limit")
	cmd.Flags().StringVar(&c.mash, "mash-binary", c.mash, "mash executable")
	cmd.Flags().BoolVarP(&c.recursive, "recursive", "r", false, "Collect assemblies from nested directories")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *CompareCommand) runCompare(cmd *cobra.Command, args []string) error {
	cfg, flags, err := loadConfig(cmd, c.configFile, args[0])
	if err != nil {
		return err
	}
	cfg.Compute.Threads = config.Override(flags, cfg.Compute.Threads, c.threads, "threads")
	cfg.Compute.ChunkSize = config.Override(flags, cfg.Compute.ChunkSize, c.chunkSize, "chunk-size")
	cfg.Compute.TimeoutSeconds = config.Override(flags, cfg.Compute.TimeoutSeconds, c.timeout, "timeout")
	cfg.Mash.Binary = config.Override(flags, cfg.Mash.Binary, c.mash, "mash-binary")
	cfg.Output.LessVerbose = config.Override(flags, cfg.Output.LessVerbose, c.lessVerbose, "less-verbose")
	if err := cfg.Validate(); err != nil {
		return domain.NewConfigError("invalid settings", err)
	}

	request := domain.CompareRequest{
		PathA:       args[0],
		PathB:       args[1],
		Collect:     c.collectOptions(cfg),
		Threads:     cfg.Compute.Threads,
		ChunkSize:   cfg.Compute.ChunkSize,
		LessVerbose: cfg.Output.LessVerbose,
		OutputPath:  c.outputPath,
	}
	if flags.WasSet("threshold") {
		threshold := c.threshold
		request.Threshold = &threshold
	}
	if err := request.Validate(); err != nil {
		return err
	}

	oracle, err := newOracle(cfg)
	if err != nil {
		return err
	}
	progress := newProgress(cmd)
	defer progress.Close()
	progress.Describe("Comparing")

	useCase, err := app.NewCompareUseCaseBuilder().
		WithCollector(service.NewAssemblyCollector()).
		WithDispatcherFactory(service.NewDispatcherFactory(oracle, progress, logging.New("dispatcher"))).
		WithWriterFactory(service.ComparisonWriterFactory).
		WithLogger(logging.New("compare")).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create compare use case: %w", err)
	}

	resp, err := useCase.Execute(cmd.Context(), request)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	out := cmd.ErrOrStderr()
	fmt.Fprint(out, service.FormatLabel("Comparisons", humanize.Comma(int64(resp.Stats.TotalPairs))))
	if resp.Stats.Failed > 0 {
		fmt.Fprint(out, service.FormatLabel("Failed comparisons", humanize.Comma(int64(resp.Stats.Failed))))
	}
	if request.Threshold != nil {
		fmt.Fprint(out, service.FormatLabel("Filtered rows", humanize.Comma(int64(resp.Filtered))))
	}
	fmt.Fprint(out, service.FormatLabel("Rows written", humanize.Comma(int64(resp.Written))))
	fmt.Fprintf(out, "Wrote %s\n", resp.OutputPath)
	return nil
}

// collectOptions scans only the top level of each directory unless
// --recursive is given, and also accepts .fsa files when the extensions were
// left at their defaults.
func (c *CompareCommand) collectOptions(cfg *config.Config) domain.CollectOptions {
	opts := cfg.CollectOptions()
	opts.Recursive = c.recursive
	if slices.Equal(opts.Extensions, domain.DefaultAssemblyExtensions) {
		opts.Extensions = slices.Clone(domain.CompareAssemblyExtensions)
	}
	return opts
}

// NewCompareCmd creates and returns the compare cobra command
func NewCompareCmd() *cobra.Command {
	return NewCompareCommand().CreateCobraCommand()
}
