package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/asmcluster/domain"
	"github.com/ludo-technologies/asmcluster/internal/store"
	"github.com/ludo-technologies/asmcluster/service"
)

func baseClusterRequest(path, storeDir string) domain.ClusterRequest {
	return domain.ClusterRequest{
		Path:          path,
		Threshold:     0.05,
		Threads:       2,
		ChunkSize:     2,
		MissingPolicy: domain.MissingAsZero,
		Store:         domain.StoreOptions{Backend: store.BackendSQLite, Dir: storeDir},
	}
}

func TestClusterUseCase_GroupsFolder(t *testing.T) {
	root := t.TempDir()
	folder := filepath.Join(root, "isolates")
	writeAssemblies(t, folder, "a1.fasta", "b1.fna", "a2.fa", "b2.fasta.gz")
	storeDir := t.TempDir()

	oracle := &familyOracle{}
	resp, err := newClusterUseCase(t, oracle).Execute(context.Background(), baseClusterRequest(folder, storeDir))
	require.NoError(t, err)
	require.Len(t, resp.Folders, 1)

	result := resp.Folders[0]
	assert.Equal(t, filepath.Join(folder, "isolates_grouped.txt"), result.OutputPath)
	assert.Equal(t, "a1\t1\na2\t1\nb1\t2\nb2\t2\n", readFile(t, result.OutputPath))
	assert.Equal(t, 6, result.Stats.TotalPairs)
	assert.Equal(t, 6, result.Stats.Succeeded)
	assert.Equal(t, 3, result.Stats.Batches)
	assert.Equal(t, 6, oracle.callCount())
	assert.Len(t, result.Groups, 2)

	entries, err := os.ReadDir(storeDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary store should be removed after success")
}

func TestClusterUseCase_SingleAssembly(t *testing.T) {
	folder := t.TempDir()
	writeAssemblies(t, folder, "only.fasta")

	oracle := &familyOracle{}
	resp, err := newClusterUseCase(t, oracle).Execute(context.Background(), baseClusterRequest(folder, t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, 0, oracle.callCount())
	assert.Equal(t, "only\t1\n", readFile(t, resp.Folders[0].OutputPath))
}

func TestClusterUseCase_EmptyFolder(t *testing.T) {
	folder := t.TempDir()
	writeAssemblies(t, folder, "notes.txt")

	_, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), baseClusterRequest(folder, t.TempDir()))
	require.Error(t, err)

	var empty *domain.EmptyInputError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, folder, empty.Source)
	assert.NoFileExists(t, GroupedOutputPath(folder))
}

func TestClusterUseCase_InvalidRequest(t *testing.T) {
	req := baseClusterRequest(t.TempDir(), t.TempDir())
	req.Threads = 0

	_, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.True(t, domain.HasCode(err, domain.ErrCodeInvalidInput))
}

func TestClusterUseCase_MissingDirectory(t *testing.T) {
	req := baseClusterRequest(filepath.Join(t.TempDir(), "absent"), t.TempDir())

	_, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeFileNotFound))
}

func TestClusterUseCase_MissingPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy domain.MissingPolicy
		want   string
	}{
		{"zero merges failed pairs", domain.MissingAsZero, "a1\t1\na2\t1\nb1\t1\n"},
		{"infinity keeps them apart", domain.MissingAsInfinity, "a1\t1\na2\t1\nb1\t2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folder := t.TempDir()
			writeAssemblies(t, folder, "a1.fasta", "a2.fasta", "b1.fasta")

			req := baseClusterRequest(folder, t.TempDir())
			req.Threshold = 1.0
			req.MissingPolicy = tt.policy

			oracle := &familyOracle{fail: crossFamily}
			resp, err := newClusterUseCase(t, oracle).Execute(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, 2, resp.Folders[0].Stats.Failed)
			assert.Equal(t, tt.want, readFile(t, resp.Folders[0].OutputPath))
		})
	}
}

func TestClusterUseCase_KeepStoreAndResume(t *testing.T) {
	folder := t.TempDir()
	writeAssemblies(t, folder, "a1.fasta", "a2.fasta", "b1.fasta", "b2.fasta")
	storePath := filepath.Join(t.TempDir(), "run.db")

	req := baseClusterRequest(folder, "")
	req.Store.Path = storePath
	req.Store.Keep = true

	first := &familyOracle{}
	resp, err := newClusterUseCase(t, first).Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 6, first.callCount())
	assert.FileExists(t, storePath)
	want := readFile(t, resp.Folders[0].OutputPath)

	second := &familyOracle{}
	resp, err = newClusterUseCase(t, second).Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.callCount(), "every pair should come from the kept store")
	assert.Equal(t, 6, resp.Folders[0].Stats.Skipped)
	assert.Equal(t, want, readFile(t, resp.Folders[0].OutputPath))
}

func TestClusterUseCase_ResumesPartialStore(t *testing.T) {
	folder := t.TempDir()
	writeAssemblies(t, folder, "a1.fasta", "a2.fasta", "b1.fasta")
	storePath := filepath.Join(t.TempDir(), "partial.db")

	ctx := context.Background()
	rs, err := store.Open(ctx, storePath)
	require.NoError(t, err)
	require.NoError(t, rs.AppendBatch(ctx, []domain.DistanceRecord{
		{ItemA: filepath.Join(folder, "a1.fasta"), ItemB: filepath.Join(folder, "a2.fasta"), Distance: 0.01},
	}))
	require.NoError(t, rs.Close())

	req := baseClusterRequest(folder, "")
	req.Store.Path = storePath

	oracle := &familyOracle{}
	resp, err := newClusterUseCase(t, oracle).Execute(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 2, oracle.callCount())
	assert.Equal(t, 1, resp.Folders[0].Stats.Skipped)
	assert.Equal(t, "a1\t1\na2\t1\nb1\t2\n", readFile(t, resp.Folders[0].OutputPath))
	assert.NoFileExists(t, storePath, "store should be removed after success without keep")
}

func TestClusterUseCase_StoreKeptOnFailure(t *testing.T) {
	folder := t.TempDir()
	writeAssemblies(t, folder, "a1.fasta", "a2.fasta")
	storePath := filepath.Join(t.TempDir(), "run.db")

	req := baseClusterRequest(folder, "")
	req.Store.Path = storePath
	// A directory in place of the output file makes the final write fail
	req.OutputPath = t.TempDir()

	_, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.Error(t, err)
	assert.FileExists(t, storePath)
}

func TestClusterUseCase_MemoryBackend(t *testing.T) {
	folder := t.TempDir()
	writeAssemblies(t, folder, "a1.fasta", "b1.fasta")
	storeDir := t.TempDir()

	req := baseClusterRequest(folder, storeDir)
	req.Store.Backend = store.BackendMemory

	resp, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "a1\t1\nb1\t2\n", readFile(t, resp.Folders[0].OutputPath))

	entries, err := os.ReadDir(storeDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClusterUseCase_SplitSubfolders(t *testing.T) {
	root := t.TempDir()
	writeAssemblies(t, filepath.Join(root, "run1"), "a1.fasta", "a2.fasta")
	writeAssemblies(t, filepath.Join(root, "run2"), "a1.fasta", "b1.fasta")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	req := baseClusterRequest(root, t.TempDir())
	req.SplitSubfolders = true

	resp, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Folders, 2)

	assert.Equal(t, "a1\t1\na2\t1\n", readFile(t, filepath.Join(root, "run1", "run1_grouped.txt")))
	assert.Equal(t, "a1\t1\nb1\t2\n", readFile(t, filepath.Join(root, "run2", "run2_grouped.txt")))
}

func TestClusterUseCase_NestedRunFolders(t *testing.T) {
	root := t.TempDir()
	writeAssemblies(t, filepath.Join(root, "run1", "batchA"), "a1.fasta", "a2.fasta", "b1.fasta")

	req := baseClusterRequest(root, t.TempDir())
	req.SplitSubfolders = true
	req.Collect.Recursive = true

	resp, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Folders, 1)
	assert.Equal(t, "a1\t1\na2\t1\nb1\t2\n", readFile(t, filepath.Join(root, "run1", "run1_grouped.txt")))
	assert.NoFileExists(t, filepath.Join(root, "run1", "batchA", "batchA_grouped.txt"))

	// the same layout without recursion has nothing to group
	req.Collect.Recursive = false
	_, err = newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	var empty *domain.EmptyInputError
	assert.ErrorAs(t, err, &empty)
}

func TestClusterUseCase_SingleFolderRecursive(t *testing.T) {
	root := t.TempDir()
	writeAssemblies(t, filepath.Join(root, "nested", "deeper"), "a1.fasta", "b1.fasta")
	writeAssemblies(t, filepath.Join(root, "nested"), "a2.fasta")

	req := baseClusterRequest(root, t.TempDir())
	req.Collect.Recursive = true

	resp, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Folders, 1)
	assert.Equal(t, "a2\t1\na1\t1\nb1\t2\n", readFile(t, GroupedOutputPath(root)))
	assert.NoFileExists(t, filepath.Join(root, "nested", "nested_grouped.txt"))
}

func TestClusterUseCase_SplitRejectsSingleOutput(t *testing.T) {
	root := t.TempDir()
	writeAssemblies(t, filepath.Join(root, "run1"), "a1.fasta", "a2.fasta")
	writeAssemblies(t, filepath.Join(root, "run2"), "a1.fasta", "b1.fasta")

	req := baseClusterRequest(root, t.TempDir())
	req.SplitSubfolders = true
	req.OutputPath = filepath.Join(root, "all.txt")

	_, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestClusterUseCase_Reports(t *testing.T) {
	t.Run("text summary", func(t *testing.T) {
		folder := t.TempDir()
		writeAssemblies(t, folder, "a1.fasta", "b1.fasta")

		var buf bytes.Buffer
		req := baseClusterRequest(folder, t.TempDir())
		req.ReportWriter = &buf

		_, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), folder)
	})

	t.Run("json file", func(t *testing.T) {
		folder := t.TempDir()
		writeAssemblies(t, folder, "a1.fasta", "b1.fasta")
		reportDir := t.TempDir()

		req := baseClusterRequest(folder, t.TempDir())
		req.ReportFormat = domain.OutputFormatJSON
		req.ReportDir = reportDir

		_, err := newClusterUseCase(t, &familyOracle{}).Execute(context.Background(), req)
		require.NoError(t, err)

		matches, err := filepath.Glob(filepath.Join(reportDir, "asmcluster_*.json"))
		require.NoError(t, err)
		require.Len(t, matches, 1)

		var report service.ClusterReport
		require.NoError(t, json.Unmarshal([]byte(readFile(t, matches[0])), &report))
		require.Len(t, report.Folders, 1)
		assert.Len(t, report.Folders[0].Groups, 2)
	})
}

func TestClusterUseCase_StoreOpenFailure(t *testing.T) {
	folder := t.TempDir()
	writeAssemblies(t, folder, "a1.fasta", "b1.fasta")

	uc := newClusterUseCase(t, &familyOracle{})
	uc.openStore = func(context.Context, string, string) (domain.ResultStore, error) {
		return nil, errors.New("disk full")
	}

	_, err := uc.Execute(context.Background(), baseClusterRequest(folder, t.TempDir()))
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrCodeStorageError))
	assert.Contains(t, err.Error(), "disk full")
}

func TestClusterUseCase_CollectorError(t *testing.T) {
	collector := &mockCollector{}
	collector.On("ValidateDirectory", "/data").Return(nil)
	collector.On("CollectAssemblies", "/data", mock.Anything).
		Return(nil, domain.NewInvalidInputError("permission denied", nil))

	uc := newClusterUseCase(t, &familyOracle{})
	uc.collector = collector

	_, err := uc.Execute(context.Background(), baseClusterRequest("/data", t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	collector.AssertExpectations(t)
}

func TestClusterUseCaseBuilder(t *testing.T) {
	t.Run("requires collector", func(t *testing.T) {
		_, err := NewClusterUseCaseBuilder().Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "assembly collector is required")
	})

	t.Run("requires cluster service", func(t *testing.T) {
		_, err := NewClusterUseCaseBuilder().
			WithCollector(service.NewAssemblyCollector()).
			WithDispatcherFactory(service.NewDispatcherFactory(&familyOracle{}, nil, nil)).
			Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cluster service is required")
	})

	t.Run("fills optional dependencies", func(t *testing.T) {
		uc := newClusterUseCase(t, &familyOracle{})
		assert.Nil(t, uc.progress)
		assert.NotNil(t, uc.openStore)
		assert.NotNil(t, uc.logger)
		assert.NotNil(t, uc.now)
	})
}

func TestGroupedOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "run7", "run7_grouped.txt"), GroupedOutputPath(filepath.Join("data", "run7")))
	assert.Equal(t, filepath.Join("data", "run7", "run7_grouped.txt"), GroupedOutputPath(filepath.Join("data", "run7")+string(filepath.Separator)))
}
