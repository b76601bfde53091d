package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/analyzer"
	"github.com/ludo-technologies/asmcluster/internal/logging"
	"github.com/ludo-technologies/asmcluster/internal/store"
)

// StoreOpener opens the result store of one folder run
type StoreOpener func(ctx context.Context, backend, path string) (domain.ResultStore, error)

// ClusterUseCase orchestrates grouping the assemblies of one or more folders:
// collect, compare every pair, persist per batch, rebuild the matrix,
// cluster and write the grouped file.
type ClusterUseCase struct {
	collector   domain.AssemblyCollector
	dispatchers domain.DispatcherFactory
	clusters    domain.ClusterService
	groups      domain.GroupWriter
	output      domain.ReportWriter
	formatter   domain.ClusterReportFormatter
	progress    domain.ProgressManager
	openStore   StoreOpener
	logger      *slog.Logger
	now         func() time.Time
}

// Execute runs the use case
func (uc *ClusterUseCase) Execute(ctx context.Context, req domain.ClusterRequest) (*domain.ClusterResponse, error) {
	start := uc.now()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	policy, _ := domain.ParseMissingPolicy(string(req.MissingPolicy))

	folders, err := ResolveFolders(uc.collector, req.Path, req.SplitSubfolders, req.Collect)
	if err != nil {
		return nil, err
	}
	if len(folders) > 1 {
		if req.OutputPath != "" {
			return nil, domain.NewValidationError(
				fmt.Sprintf("--output cannot be used: %s holds %d assembly folders", req.Path, len(folders)))
		}
		if req.Store.Path != "" {
			return nil, domain.NewValidationError(
				fmt.Sprintf("--store cannot be used: %s holds %d assembly folders", req.Path, len(folders)))
		}
		uc.logger.Info("processing subfolders separately", slog.Int("folders", len(folders)))
	}

	resp := &domain.ClusterResponse{}
	for _, folder := range folders {
		result, err := uc.runFolder(ctx, folder, req, policy)
		if err != nil {
			return nil, fmt.Errorf("folder %s: %w", folder, err)
		}
		resp.Folders = append(resp.Folders, *result)
	}
	resp.Duration = uc.now().Sub(start)

	if err := uc.writeReport(resp, req); err != nil {
		return nil, err
	}
	return resp, nil
}

func (uc *ClusterUseCase) runFolder(ctx context.Context, folder string, req domain.ClusterRequest, policy domain.MissingPolicy) (*domain.FolderResult, error) {
	start := uc.now()
	logger := uc.logger.With(slog.String("folder", folder))

	items, err := uc.collector.CollectAssemblies(folder, req.Collect)
	if err != nil {
		return nil, err
	}
	source, err := analyzer.NewCombinationSource(items, folder)
	if err != nil {
		return nil, err
	}
	logger.Info("collected assemblies",
		slog.String("assemblies", humanize.Comma(int64(len(items)))),
		slog.String("pairs", humanize.Comma(int64(source.Len()))))

	rs, storePath, err := uc.openResultStore(ctx, req.Store)
	if err != nil {
		return nil, err
	}
	succeeded := false
	defer func() {
		if cerr := rs.Close(); cerr != nil {
			logger.Warn("failed to close result store", slog.String("error", cerr.Error()))
		}
		uc.cleanupStore(logger, req.Store, storePath, succeeded)
	}()

	opts := domain.DispatchOptions{Threads: req.Threads, ChunkSize: req.ChunkSize}
	if done, err := store.StoredPairs(ctx, rs); err != nil {
		return nil, domain.NewStorageError("failed to read stored pairs", err)
	} else if len(done) > 0 {
		logger.Info("resuming from stored distances",
			slog.String("store", storePath),
			slog.String("stored", humanize.Comma(int64(len(done)))))
		opts.Skip = func(p domain.Pair) bool {
			_, ok := done[domain.PairKey(p.A.Path, p.B.Path)]
			return ok
		}
	}

	if uc.progress != nil {
		uc.progress.Describe("Comparing " + filepath.Base(folder))
	}
	sink := domain.BatchSinkFunc(func(ctx context.Context, batch int, results []domain.PairResult) error {
		records := make([]domain.DistanceRecord, len(results))
		for i, r := range results {
			records[i] = r.Record()
		}
		return rs.AppendBatch(ctx, records)
	})
	stats, err := uc.dispatchers(opts).Dispatch(ctx, source, sink)
	if err != nil {
		return nil, err
	}
	if stats.Failed > 0 {
		logger.Warn("some comparisons failed",
			slog.Int("failed", stats.Failed),
			slog.String("missing_policy", string(policy)))
	}

	matrix, err := uc.clusters.BuildMatrix(ctx, items, rs, policy)
	if err != nil {
		return nil, err
	}
	assignment, _, err := uc.clusters.Cluster(ctx, items, matrix, req.Threshold)
	if err != nil {
		return nil, err
	}

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = GroupedOutputPath(folder)
	}
	err = uc.output.Write(nil, outputPath, domain.OutputFormatText, func(w io.Writer) error {
		return uc.groups.WriteGroups(w, assignment)
	})
	if err != nil {
		return nil, err
	}
	succeeded = true

	logger.Info("grouping written",
		slog.Int("clusters", assignment.ClusterCount()),
		slog.String("output", outputPath))

	return &domain.FolderResult{
		Folder:     folder,
		OutputPath: outputPath,
		Threshold:  req.Threshold,
		Assignment: *assignment,
		Groups:     assignment.Groups(),
		Stats:      *stats,
		Duration:   uc.now().Sub(start),
	}, nil
}

// openResultStore opens the configured store. Without an explicit path a
// fresh, uniquely named file is used.
func (uc *ClusterUseCase) openResultStore(ctx context.Context, opts domain.StoreOptions) (domain.ResultStore, string, error) {
	path := opts.Path
	if path == "" && !strings.EqualFold(opts.Backend, store.BackendMemory) {
		path = store.TempPath(opts.Dir)
	}
	rs, err := uc.openStore(ctx, opts.Backend, path)
	if err != nil {
		var de domain.DomainError
		if errors.As(err, &de) {
			return nil, "", err
		}
		return nil, "", domain.NewStorageError(fmt.Sprintf("failed to open result store %s", path), err)
	}
	return rs, path, nil
}

// cleanupStore removes the store file after a successful run unless asked to
// keep it. After a failure the file stays so that the run can be resumed.
func (uc *ClusterUseCase) cleanupStore(logger *slog.Logger, opts domain.StoreOptions, path string, succeeded bool) {
	if path == "" || strings.EqualFold(opts.Backend, store.BackendMemory) {
		return
	}
	if !succeeded {
		logger.Warn("result store kept for resuming", slog.String("store", path))
		return
	}
	if opts.Keep {
		logger.Info("result store kept", slog.String("store", path))
		return
	}
	if err := store.Remove(path); err != nil {
		logger.Warn("failed to remove result store", slog.String("store", path), slog.String("error", err.Error()))
	}
}

func (uc *ClusterUseCase) writeReport(resp *domain.ClusterResponse, req domain.ClusterRequest) error {
	format := req.ReportFormat
	if format == "" || format == domain.OutputFormatText {
		if req.ReportWriter == nil {
			return nil
		}
		return uc.output.Write(req.ReportWriter, "", domain.OutputFormatText, func(w io.Writer) error {
			return uc.formatter.Format(resp, domain.OutputFormatText, w)
		})
	}

	dir := req.ReportDir
	if dir == "" {
		dir = req.Path
	}
	name := fmt.Sprintf("asmcluster_%s.%s", uc.now().Format("20060102_150405"), format)
	return uc.output.Write(nil, filepath.Join(dir, name), format, func(w io.Writer) error {
		return uc.formatter.Format(resp, format, w)
	})
}

// ClusterUseCaseBuilder helps build ClusterUseCase with dependencies
type ClusterUseCaseBuilder struct {
	collector   domain.AssemblyCollector
	dispatchers domain.DispatcherFactory
	clusters    domain.ClusterService
	groups      domain.GroupWriter
	output      domain.ReportWriter
	formatter   domain.ClusterReportFormatter
	progress    domain.ProgressManager
	openStore   StoreOpener
	logger      *slog.Logger
}

// NewClusterUseCaseBuilder creates a new builder for ClusterUseCase
func NewClusterUseCaseBuilder() *ClusterUseCaseBuilder {
	return &ClusterUseCaseBuilder{}
}

// WithCollector sets the assembly collector
func (b *ClusterUseCaseBuilder) WithCollector(c domain.AssemblyCollector) *ClusterUseCaseBuilder {
	b.collector = c
	return b
}

// WithDispatcherFactory sets how pair dispatchers are created
func (b *ClusterUseCaseBuilder) WithDispatcherFactory(f domain.DispatcherFactory) *ClusterUseCaseBuilder {
	b.dispatchers = f
	return b
}

// WithClusterService sets the matrix and clustering service
func (b *ClusterUseCaseBuilder) WithClusterService(s domain.ClusterService) *ClusterUseCaseBuilder {
	b.clusters = s
	return b
}

// WithGroupWriter sets the grouped file writer
func (b *ClusterUseCaseBuilder) WithGroupWriter(w domain.GroupWriter) *ClusterUseCaseBuilder {
	b.groups = w
	return b
}

// WithOutputWriter sets the file output writer
func (b *ClusterUseCaseBuilder) WithOutputWriter(w domain.ReportWriter) *ClusterUseCaseBuilder {
	b.output = w
	return b
}

// WithFormatter sets the report formatter
func (b *ClusterUseCaseBuilder) WithFormatter(f domain.ClusterReportFormatter) *ClusterUseCaseBuilder {
	b.formatter = f
	return b
}

// WithProgress sets the progress manager used for per-folder captions. It is
// optional.
func (b *ClusterUseCaseBuilder) WithProgress(p domain.ProgressManager) *ClusterUseCaseBuilder {
	b.progress = p
	return b
}

// WithStoreOpener overrides how result stores are opened
func (b *ClusterUseCaseBuilder) WithStoreOpener(o StoreOpener) *ClusterUseCaseBuilder {
	b.openStore = o
	return b
}

// WithLogger sets the logger
func (b *ClusterUseCaseBuilder) WithLogger(l *slog.Logger) *ClusterUseCaseBuilder {
	b.logger = l
	return b
}

// Build creates the ClusterUseCase with the configured dependencies
func (b *ClusterUseCaseBuilder) Build() (*ClusterUseCase, error) {
	if b.collector == nil {
		return nil, fmt.Errorf("assembly collector is required")
	}
	if b.dispatchers == nil {
		return nil, fmt.Errorf("dispatcher factory is required")
	}
	if b.clusters == nil {
		return nil, fmt.Errorf("cluster service is required")
	}
	if b.groups == nil {
		return nil, fmt.Errorf("group writer is required")
	}
	if b.output == nil {
		return nil, fmt.Errorf("output writer is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("report formatter is required")
	}

	uc := &ClusterUseCase{
		collector:   b.collector,
		dispatchers: b.dispatchers,
		clusters:    b.clusters,
		groups:      b.groups,
		output:      b.output,
		formatter:   b.formatter,
		progress:    b.progress,
		openStore:   b.openStore,
		logger:      logging.OrDefault(b.logger, "cluster"),
		now:         time.Now,
	}
	if uc.openStore == nil {
		uc.openStore = store.New
	}
	return uc, nil
}
