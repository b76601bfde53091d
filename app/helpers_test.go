package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/logging"
	"github.com/ludo-technologies/asmcluster/service"
)

// familyOracle reports 0.01 between assemblies whose names share the first
// letter and 0.5 otherwise. Pairs listed in fail are reported as failures.
type familyOracle struct {
	mu    sync.Mutex
	calls [][2]string
	fail  func(a, b domain.Item) bool
}

func (o *familyOracle) Compare(_ context.Context, a, b domain.Item) domain.PairResult {
	o.mu.Lock()
	o.calls = append(o.calls, [2]string{a.Name, b.Name})
	o.mu.Unlock()

	if o.fail != nil && o.fail(a, b) {
		return domain.PairResult{A: a, B: b, Message: "exited with status 1"}
	}
	d := 0.5
	if a.Name[0] == b.Name[0] {
		d = 0.01
	}
	return domain.PairResult{A: a, B: b, Distance: d, OK: true, PValue: "0", SharedHashes: "990/1000"}
}

func (o *familyOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

func crossFamily(a, b domain.Item) bool { return a.Name[0] != b.Name[0] }

// writeAssemblies creates one small FASTA file per name under dir
func writeAssemblies(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		content := ">" + strings.TrimSuffix(name, filepath.Ext(name)) + "\nACGT\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newClusterUseCase(t *testing.T, oracle domain.Oracle) *ClusterUseCase {
	t.Helper()
	logger := logging.Discard()
	uc, err := NewClusterUseCaseBuilder().
		WithCollector(service.NewAssemblyCollector()).
		WithDispatcherFactory(service.NewDispatcherFactory(oracle, nil, logger)).
		WithClusterService(service.NewClusterService(logger)).
		WithGroupWriter(service.NewGroupWriter()).
		WithOutputWriter(service.NewFileOutputWriter(io.Discard)).
		WithFormatter(service.NewClusterReportFormatter()).
		WithLogger(logger).
		Build()
	require.NoError(t, err)
	return uc
}

func newCompareUseCase(t *testing.T, oracle domain.Oracle) *CompareUseCase {
	t.Helper()
	logger := logging.Discard()
	uc, err := NewCompareUseCaseBuilder().
		WithCollector(service.NewAssemblyCollector()).
		WithDispatcherFactory(service.NewDispatcherFactory(oracle, nil, logger)).
		WithWriterFactory(service.ComparisonWriterFactory).
		WithLogger(logger).
		Build()
	require.NoError(t, err)
	return uc
}

// mockCollector is a testify mock of domain.AssemblyCollector
type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) CollectAssemblies(root string, opts domain.CollectOptions) ([]domain.Item, error) {
	args := m.Called(root, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockCollector) FindAssemblyFolders(root string, opts domain.CollectOptions) ([]string, error) {
	args := m.Called(root, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCollector) ValidateDirectory(path string) error {
	args := m.Called(path)
	return args.Error(0)
}
