package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/asmcluster/app"
	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/config"
	"github.com/ludo-technologies/asmcluster/internal/constants"
	"github.com/ludo-technologies/asmcluster/internal/logging"
	"github.com/ludo-technologies/asmcluster/service"
)

// ClusterCommand handles the cluster CLI command
type ClusterCommand struct {
	configFile string

	// Input
	recursive       bool
	includePatterns []string
	excludePatterns []string
	singleFolder    bool

	// Clustering
	threshold     float64
	missingPolicy string

	// Compute
	threads   int
	chunkSize int
	timeout   int
	mash      string

	// Store
	storePath    string
	storeBackend string
	keepStore    bool

	// Output
	outputPath string
	json       bool
	csv        bool
	yaml       bool
	quiet      bool
}

// NewClusterCommand creates a new cluster command with default values
func NewClusterCommand() *ClusterCommand {
	return &ClusterCommand{
		threshold:     constants.DefaultDistanceThreshold,
		missingPolicy: constants.DefaultMissingPolicy,
		threads:       constants.DefaultThreads,
		chunkSize:     constants.DefaultChunkSize,
		timeout:       constants.DefaultOracleTimeoutSeconds,
		mash:          constants.DefaultMashBinary,
		storeBackend:  constants.DefaultStoreBackend,
		recursive:     true,
	}
}

// CreateCobraCommand creates the cobra command for clustering
func (c *ClusterCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster <directory>",
		Short: "Group the assemblies of a directory by mash distance",
		Long: `Compare every pair of assemblies in a directory with 'mash dist' and group
them with average-linkage clustering cut at the distance threshold.

The grouping is written to <directory>/<directory name>_grouped.txt, one
"name<TAB>cluster" line per assembly. Nested directories are searched too
(--recursive=false turns this off). When the directory holds subfolders
with assemblies, each of them is grouped separately into its own file.

Distances are stored in a SQLite file batch by batch. With --store and
--keep-store the file survives the run, and re-running against it only
compares the pairs that are not stored yet.

Examples:
  # Group assemblies at the default threshold
  asmcluster cluster data/isolates

  # Looser grouping with more parallel mash processes
  asmcluster cluster --threshold 0.01 --threads 32 data/isolates

  # Resumable run with a JSON report
  asmcluster cluster --store run.db --keep-store --json data/isolates`,
		Args: cobra.ExactArgs(1),
		RunE: c.runCluster,
	}

	cmd.Flags().StringVarP(&c.configFile, "config", "c", "", "Path to configuration file")

	cmd.Flags().BoolVarP(&c.recursive, "recursive", "r", c.recursive, "Collect assemblies from nested directories")
	cmd.Flags().StringSliceVar(&c.includePatterns, "include", nil, "Glob patterns of assemblies to include")
	cmd.Flags().StringSliceVar(&c.excludePatterns, "exclude", nil, "Glob patterns of assemblies to exclude")
	cmd.Flags().BoolVar(&c.singleFolder, "single-folder", false, "Group the directory as one run even if subfolders hold assemblies")

	cmd.Flags().Float64VarP(&c.threshold, "threshold", "t", c.threshold, "Maximum linkage distance inside one group")
	cmd.Flags().StringVar(&c.missingPolicy, "missing-policy", c.missingPolicy, "Distance used for failed comparisons: zero or infinity")

	cmd.Flags().IntVarP(&c.threads, "threads", "p", c.threads, "Concurrent mash invocations")
	cmd.Flags().IntVar(&c.chunkSize, "chunk-size", c.chunkSize, "Pairs per stored batch")
	cmd.Flags().IntVar(&c.timeout, "timeout", c.timeout, "Seconds allowed for one comparison, 0 for no limit")
	cmd.Flags().StringVar(&c.mash, "mash-binary", c.mash, "mash executable")

	cmd.Flags().StringVar(&c.storePath, "store", "", "Result store file, reused when it exists")
	cmd.Flags().StringVar(&c.storeBackend, "store-backend", c.storeBackend, "Result store backend: sqlite or memory")
	cmd.Flags().BoolVar(&c.keepStore, "keep-store", false, "Keep the result store after a successful run")

	cmd.Flags().StringVarP(&c.outputPath, "output", "o", "", "Grouped file path (single folder only)")
	cmd.Flags().BoolVar(&c.json, "json", false, "Generate JSON report file")
	cmd.Flags().BoolVar(&c.csv, "csv", false, "Generate CSV report file")
	cmd.Flags().BoolVar(&c.yaml, "yaml", false, "Generate YAML report file")
	cmd.Flags().BoolVarP(&c.quiet, "quiet", "q", false, "Do not print the summary")

	_ = cmd.Flags().MarkHidden("store-backend")
	return cmd
}

func (c *ClusterCommand) runCluster(cmd *cobra.Command, args []string) error {
	cfg, flags, err := loadConfig(cmd, c.configFile, args[0])
	if err != nil {
		return err
	}
	c.applyOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return domain.NewConfigError("invalid settings", err)
	}

	request, err := c.createClusterRequest(cmd, cfg, args[0])
	if err != nil {
		return err
	}

	oracle, err := newOracle(cfg)
	if err != nil {
		return err
	}
	progress := newProgress(cmd)
	defer progress.Close()

	useCase, err := app.NewClusterUseCaseBuilder().
		WithCollector(service.NewAssemblyCollector()).
		WithDispatcherFactory(service.NewDispatcherFactory(oracle, progress, logging.New("dispatcher"))).
		WithClusterService(service.NewClusterService(logging.New("cluster"))).
		WithGroupWriter(service.NewGroupWriter()).
		WithOutputWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		WithFormatter(service.NewClusterReportFormatter()).
		WithProgress(progress).
		WithLogger(logging.New("cluster")).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create cluster use case: %w", err)
	}

	if _, err := useCase.Execute(cmd.Context(), *request); err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}
	return nil
}

// applyOverrides copies explicitly set flags over the loaded configuration
func (c *ClusterCommand) applyOverrides(cfg *config.Config, flags *config.FlagTracker) {
	cfg.Input.Recursive = config.Override(flags, cfg.Input.Recursive, c.recursive, "recursive")
	cfg.Input.IncludePatterns = config.Override(flags, cfg.Input.IncludePatterns, c.includePatterns, "include")
	cfg.Input.ExcludePatterns = config.Override(flags, cfg.Input.ExcludePatterns, c.excludePatterns, "exclude")
	cfg.Clustering.Threshold = config.Override(flags, cfg.Clustering.Threshold, c.threshold, "threshold")
	cfg.Clustering.MissingPolicy = config.Override(flags, cfg.Clustering.MissingPolicy, c.missingPolicy, "missing-policy")
	cfg.Compute.Threads = config.Override(flags, cfg.Compute.Threads, c.threads, "threads")
	cfg.Compute.ChunkSize = config.Override(flags, cfg.Compute.ChunkSize, c.chunkSize, "chunk-size")
	cfg.Compute.TimeoutSeconds = config.Override(flags, cfg.Compute.TimeoutSeconds, c.timeout, "timeout")
	cfg.Mash.Binary = config.Override(flags, cfg.Mash.Binary, c.mash, "mash-binary")
	cfg.Store.Backend = config.Override(flags, cfg.Store.Backend, c.storeBackend, "store-backend")
	cfg.Store.Keep = config.Override(flags, cfg.Store.Keep, c.keepStore, "keep-store")
}

// createClusterRequest builds the request from the merged configuration
func (c *ClusterCommand) createClusterRequest(cmd *cobra.Command, cfg *config.Config, dir string) (*domain.ClusterRequest, error) {
	format, _, err := service.NewOutputFormatResolver().Determine(c.json, c.csv, c.yaml, domain.OutputFormat(cfg.Output.Format))
	if err != nil {
		return nil, err
	}
	policy, err := domain.ParseMissingPolicy(cfg.Clustering.MissingPolicy)
	if err != nil {
		return nil, err
	}

	var reportWriter io.Writer
	if format == domain.OutputFormatText && !c.quiet {
		reportWriter = cmd.ErrOrStderr()
	}

	return &domain.ClusterRequest{
		Path:          dir,
		Collect:       cfg.CollectOptions(),
		Threshold:     cfg.Clustering.Threshold,
		Threads:       cfg.Compute.Threads,
		ChunkSize:     cfg.Compute.ChunkSize,
		MissingPolicy: policy,
		Store: domain.StoreOptions{
			Backend: cfg.Store.Backend,
			Path:    c.storePath,
			Dir:     cfg.Store.Directory,
			Keep:    cfg.Store.Keep,
		},
		OutputPath:      c.outputPath,
		SplitSubfolders: !c.singleFolder,
		ReportFormat:    format,
		ReportDir:       cfg.Output.Directory,
		ReportWriter:    reportWriter,
	}, nil
}

// NewClusterCmd creates and returns the cluster cobra command
func NewClusterCmd() *cobra.Command {
	return NewClusterCommand().CreateCobraCommand()
}
