package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, 0.001, DefaultDistanceThreshold)
	assert.Equal(t, 10, DefaultThreads)
	assert.Equal(t, 1000, DefaultChunkSize)
	assert.Greater(t, DefaultOracleTimeoutSeconds, 0)
	assert.Equal(t, "_grouped.txt", GroupedFileSuffix)
}
