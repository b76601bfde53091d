package version_test

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/asmcluster/internal/version"
)

func TestShort(t *testing.T) {
	assert.NotEmpty(t, version.Short())
}

func TestInfoFormat(t *testing.T) {
	lines := strings.Split(version.Info(), "\n")
	require.Len(t, lines, 5)

	expectedPrefixes := []string{"asmcluster ", "Commit:", "Built:", "Go:", "OS/Arch:"}
	for i, prefix := range expectedPrefixes {
		assert.True(t, strings.HasPrefix(lines[i], prefix), "line %d should start with %q, got %q", i+1, prefix, lines[i])
	}
	assert.Contains(t, lines[4], runtime.GOOS+"/"+runtime.GOARCH)
}

func TestMetadata(t *testing.T) {
	md := version.Metadata()
	assert.Equal(t, "asmcluster", md["tool"])
	assert.Equal(t, version.Version, md["version"])
	assert.Equal(t, runtime.Version(), md["go"])
}
