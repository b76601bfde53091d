package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/analyzer"
	"github.com/ludo-technologies/asmcluster/internal/logging"
)

// CompareUseCase computes every distance between two assembly collections and
// streams them to a tab-separated table. Nothing is clustered or persisted.
type CompareUseCase struct {
	collector   domain.AssemblyCollector
	dispatchers domain.DispatcherFactory
	writers     domain.ComparisonWriterFactory
	logger      *slog.Logger
	now         func() time.Time
}

// Execute runs the use case
func (uc *CompareUseCase) Execute(ctx context.Context, req domain.CompareRequest) (*domain.CompareResponse, error) {
	start := uc.now()

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	for _, dir := range []string{req.PathA, req.PathB} {
		if err := uc.collector.ValidateDirectory(dir); err != nil {
			return nil, err
		}
	}

	left, err := uc.collector.CollectAssemblies(req.PathA, req.Collect)
	if err != nil {
		return nil, err
	}
	right, err := uc.collector.CollectAssemblies(req.PathB, req.Collect)
	if err != nil {
		return nil, err
	}
	source, err := analyzer.NewCrossSource(left, req.PathA, right, req.PathB)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("comparing collections",
		slog.String("reference", req.PathA),
		slog.String("query", req.PathB),
		slog.String("pairs", humanize.Comma(int64(source.Len()))))

	out := req.OutputWriter
	outputPath := ""
	if out == nil {
		f, err := createOutput(req.OutputPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		out = f
		outputPath = f.Name()
	}

	writer := uc.writers(out, req.Threshold, req.LessVerbose)
	stats, err := uc.dispatchers(domain.DispatchOptions{
		Threads:   req.Threads,
		ChunkSize: req.ChunkSize,
	}).Dispatch(ctx, source, writer)
	if ferr := writer.Flush(); err == nil && ferr != nil {
		err = domain.NewOutputError("failed to write comparison table", ferr)
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Info("comparison written",
		slog.Int("rows", writer.Written()),
		slog.Int("filtered", writer.Filtered()),
		slog.Int("failed", stats.Failed))

	return &domain.CompareResponse{
		CountA:     len(left),
		CountB:     len(right),
		Stats:      *stats,
		Written:    writer.Written(),
		Filtered:   writer.Filtered(),
		Duration:   uc.now().Sub(start),
		OutputPath: outputPath,
	}, nil
}

func createOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domain.NewOutputError(fmt.Sprintf("failed to create directory for %s", path), err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, domain.NewOutputError(fmt.Sprintf("failed to create output file %s", path), err)
	}
	return f, nil
}

// CompareUseCaseBuilder helps build CompareUseCase with dependencies
type CompareUseCaseBuilder struct {
	collector   domain.AssemblyCollector
	dispatchers domain.DispatcherFactory
	writers     domain.ComparisonWriterFactory
	logger      *slog.Logger
}

// NewCompareUseCaseBuilder creates a new builder for CompareUseCase
func NewCompareUseCaseBuilder() *CompareUseCaseBuilder {
	return &CompareUseCaseBuilder{}
}

// WithCollector sets the assembly collector
func (b *CompareUseCaseBuilder) WithCollector(c domain.AssemblyCollector) *CompareUseCaseBuilder {
	b.collector = c
	return b
}

// WithDispatcherFactory sets how pair dispatchers are created
func (b *CompareUseCaseBuilder) WithDispatcherFactory(f domain.DispatcherFactory) *CompareUseCaseBuilder {
	b.dispatchers = f
	return b
}

// WithWriterFactory sets how the comparison table writer is created
func (b *CompareUseCaseBuilder) WithWriterFactory(f domain.ComparisonWriterFactory) *CompareUseCaseBuilder {
	b.writers = f
	return b
}

// WithLogger sets the logger
func (b *CompareUseCaseBuilder) WithLogger(l *slog.Logger) *CompareUseCaseBuilder {
	b.logger = l
	return b
}

// Build creates the CompareUseCase with the configured dependencies
func (b *CompareUseCaseBuilder) Build() (*CompareUseCase, error) {
	if b.collector == nil {
		return nil, fmt.Errorf("assembly collector is required")
	}
	if b.dispatchers == nil {
		return nil, fmt.Errorf("dispatcher factory is required")
	}
	if b.writers == nil {
		return nil, fmt.Errorf("comparison writer factory is required")
	}
	return &CompareUseCase{
		collector:   b.collector,
		dispatchers: b.dispatchers,
		writers:     b.writers,
		logger:      logging.OrDefault(b.logger, "compare"),
		now:         time.Now,
	}, nil
}
