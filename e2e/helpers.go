package e2e

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeMashScript stands in for `mash dist A B`. Assemblies named
// <family>_<id> are 5.0e-04 apart within a family and 0.2 apart otherwise.
// FAKE_MASH_FAIL="<base A> <base B>" makes that one pair fail and
// FAKE_MASH_FAIL_ALL makes every call fail.
const fakeMashScript = `#!/bin/sh
if [ "$1" != "dist" ]; then echo "unexpected command $1" >&2; exit 2; fi
a=$(basename "$2")
b=$(basename "$3")
if [ -n "$FAKE_MASH_FAIL_ALL" ]; then echo "mash: forced failure" >&2; exit 1; fi
if [ -n "$FAKE_MASH_FAIL" ] && [ "$FAKE_MASH_FAIL" = "$a $b" ]; then echo "mash: cannot sketch" >&2; exit 1; fi
if [ "${a%%_*}" = "${b%%_*}" ]; then d=5.0e-04; else d=0.2; fi
printf '%s\t%s\t%s\t0\t1000/1000\n' "$2" "$3" "$d"
`

// buildBinary compiles asmcluster into a temporary directory
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "asmcluster")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/asmcluster")

	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}
	cmd.Dir = projectRoot

	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build asmcluster binary: %v\n%s", err, out)
	}
	return binaryPath
}

// installFakeMash writes the fake mash into its own directory and returns a
// PATH value with that directory first
func installFakeMash(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake mash is a shell script")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mash"), []byte(fakeMashScript), 0o755); err != nil {
		t.Fatalf("Failed to write fake mash: %v", err)
	}
	return dir + string(os.PathListSeparator) + os.Getenv("PATH")
}

// createAssemblies writes a small FASTA file for every name in dir
func createAssemblies(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", dir, err)
	}
	for _, name := range names {
		content := fmt.Sprintf(">%s\nACGTACGTACGT\n", name)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to create assembly %s: %v", name, err)
		}
	}
}

// createTestConfigFile writes a .asmcluster.toml into dir
func createTestConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".asmcluster.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
}

type result struct {
	stdout   string
	stderr   string
	exitCode int
}

// runBinary executes the binary with PATH set to path and extra environment
func runBinary(t *testing.T, binary, path string, env []string, args ...string) result {
	t.Helper()

	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), "PATH="+path)
	cmd.Env = append(cmd.Env, env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := result{stdout: stdout.String(), stderr: stderr.String()}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			t.Fatalf("Failed to run %s: %v", strings.Join(args, " "), err)
		}
		res.exitCode = exitErr.ExitCode()
	}
	return res
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}
