package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/asmcluster/internal/version"
)

const fakeMashScript = `#!/bin/sh
a=$(basename "$2")
b=$(basename "$3")
if [ "$(printf %.1s "$a")" = "$(printf %.1s "$b")" ]; then d=0.01; else d=0.5; fi
printf '%s\t%s\t%s\t0\t990/1000\n' "$2" "$3" "$d"
`

// fakeMash writes a mash stand-in reporting 0.01 for assemblies whose names
// share the first letter and 0.5 otherwise.
func fakeMash(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake mash is a shell script")
	}
	path := filepath.Join(t.TempDir(), "mash")
	require.NoError(t, os.WriteFile(path, []byte(fakeMashScript), 0o755))
	return path
}

func writeAssemblies(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(">x\nACGT\n"), 0o644))
	}
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	code, stdout, _ := execute(t, "version", "--short")
	assert.Equal(t, 0, code)
	assert.Equal(t, version.Short()+"\n", stdout)

	code, stdout, _ = execute(t, "version")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "asmcluster "))
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".asmcluster.toml")

	code, stdout, _ := execute(t, "init", "--config", path)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[clustering]")

	code, _, stderr := execute(t, "init", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = execute(t, "init", "--config", path, "--force")
	assert.Equal(t, 0, code)
}

func TestClusterCommand(t *testing.T) {
	mash := fakeMash(t)
	dir := filepath.Join(t.TempDir(), "isolates")
	writeAssemblies(t, dir, "a1.fasta", "a2.fasta", "b1.fna")

	code, _, stderr := execute(t, "cluster", dir, "--mash-binary", mash, "--threads", "2", "--chunk-size", "2", "--threshold", "0.05")
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(filepath.Join(dir, "isolates_grouped.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a1\t1\na2\t1\nb1\t2\n", string(data))
	assert.Contains(t, stderr, "Assembly Clustering Summary")
}

func TestClusterCommand_NestedLayout(t *testing.T) {
	mash := fakeMash(t)
	root := t.TempDir()
	writeAssemblies(t, filepath.Join(root, "run1", "batchA"), "a1.fasta", "a2.fasta", "b1.fasta")

	code, _, stderr := execute(t, "cluster", root, "--mash-binary", mash, "--threshold", "0.05", "--quiet")
	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(filepath.Join(root, "run1", "run1_grouped.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a1\t1\na2\t1\nb1\t2\n", string(data))

	other := t.TempDir()
	writeAssemblies(t, filepath.Join(other, "nested", "deeper"), "a1.fasta", "b1.fasta")
	code, _, stderr = execute(t, "cluster", other, "--mash-binary", mash, "--threshold", "0.05", "--quiet", "--single-folder")
	require.Equal(t, 0, code, stderr)
	data, err = os.ReadFile(filepath.Join(other, filepath.Base(other)+"_grouped.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a1\t1\nb1\t2\n", string(data))

	code, _, stderr = execute(t, "cluster", other, "--mash-binary", mash, "--single-folder", "--recursive=false")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no assemblies found")
}

func TestClusterCommand_ConfigFile(t *testing.T) {
	mash := fakeMash(t)
	root := t.TempDir()
	dir := filepath.Join(root, "isolates")
	writeAssemblies(t, dir, "a1.fasta", "b1.fasta")

	// a threshold above 0.5 puts both assemblies in one group
	cfg := "[clustering]\nthreshold = 0.9\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".asmcluster.toml"), []byte(cfg), 0o644))

	code, _, stderr := execute(t, "cluster", dir, "--mash-binary", mash, "--quiet")
	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(filepath.Join(dir, "isolates_grouped.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a1\t1\nb1\t1\n", string(data))

	// an explicit flag beats the file
	code, _, stderr = execute(t, "cluster", dir, "--mash-binary", mash, "--quiet", "--threshold", "0.05")
	require.Equal(t, 0, code, stderr)
	data, err = os.ReadFile(filepath.Join(dir, "isolates_grouped.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a1\t1\nb1\t2\n", string(data))
}

func TestClusterCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	writeAssemblies(t, dir, "a1.fasta")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing directory", []string{"cluster", filepath.Join(dir, "absent"), "--mash-binary", "sh"}, "Error:"},
		{"missing mash", []string{"cluster", dir, "--mash-binary", "asmcluster-no-such-mash"}, "not found"},
		{"bad policy", []string{"cluster", dir, "--missing-policy", "nan"}, "missing policy"},
		{"two formats", []string{"cluster", dir, "--json", "--yaml", "--mash-binary", "sh"}, "Error:"},
		{"no argument", []string{"cluster"}, "accepts 1 arg"},
		{"bad log format", []string{"--log-format", "xml", "version"}, "log-format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
	assert.NoFileExists(t, filepath.Join(dir, filepath.Base(dir)+"_grouped.txt"))
}

func TestClusterCommand_EmptyDirectory(t *testing.T) {
	mash := fakeMash(t)
	dir := t.TempDir()

	code, _, stderr := execute(t, "cluster", dir, "--mash-binary", mash)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no assemblies found")
	assert.NoFileExists(t, filepath.Join(dir, filepath.Base(dir)+"_grouped.txt"))
}

func TestCompareCommand(t *testing.T) {
	mash := fakeMash(t)
	refs := filepath.Join(t.TempDir(), "refs")
	queries := filepath.Join(t.TempDir(), "queries")
	writeAssemblies(t, refs, "a1.fasta", "b1.fasta")
	writeAssemblies(t, queries, "a9.fasta", "c9.fasta")
	out := filepath.Join(t.TempDir(), "cross.tsv")

	code, _, stderr := execute(t, "compare", refs, queries, "-o", out, "--mash-binary", mash,
		"--threshold", "0.1", "--less-verbose")
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(refs, "a1.fasta")+"\t"+filepath.Join(queries, "a9.fasta")+"\t0.01\n", string(data))
	assert.Contains(t, stderr, "Filtered rows")
}

func TestCompareCommand_TopLevelOnly(t *testing.T) {
	mash := fakeMash(t)
	refs := filepath.Join(t.TempDir(), "refs")
	queries := filepath.Join(t.TempDir(), "queries")
	writeAssemblies(t, refs, "a1.fsa")
	writeAssemblies(t, filepath.Join(refs, "old"), "a2.fasta")
	writeAssemblies(t, queries, "a9.fasta")
	out := filepath.Join(t.TempDir(), "cross.tsv")

	code, _, stderr := execute(t, "compare", refs, queries, "-o", out, "--mash-binary", mash, "--less-verbose")
	require.Equal(t, 0, code, stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(refs, "a1.fsa")+"\t"+filepath.Join(queries, "a9.fasta")+"\t0.01\n", string(data))

	code, _, stderr = execute(t, "compare", refs, queries, "-o", out, "--mash-binary", mash, "--less-verbose", "--recursive")
	require.Equal(t, 0, code, stderr)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestCompareCommand_RequiresOutput(t *testing.T) {
	code, _, stderr := execute(t, "compare", t.TempDir(), t.TempDir())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "output")
}
